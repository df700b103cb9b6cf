package webhook

import (
	"encoding/json"
	"fmt"
)

/* State represents where a single endpoint delivery is in its lifecycle
 * Pending -> Validating -> Rejected | Skipped | Attempting -> Succeeded | DeadLettered
 * Failed ends a delivery that ran out of attempts without being dead-lettered (test sends, replays)
 */
type State int

const (
	Pending State = iota + 1
	Validating
	Rejected
	Skipped
	Attempting
	Succeeded
	DeadLettered
	Failed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Validating:
		return "validating"
	case Rejected:
		return "rejected"
	case Skipped:
		return "skipped"
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case DeadLettered:
		return "dead_lettered"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// NewState creates a State from a string
func NewState(str string) State {
	switch str {
	case "pending":
		return Pending
	case "validating":
		return Validating
	case "rejected":
		return Rejected
	case "skipped":
		return Skipped
	case "attempting":
		return Attempting
	case "succeeded":
		return Succeeded
	case "dead_lettered":
		return DeadLettered
	case "failed":
		return Failed
	default:
		return Pending
	}
}

// Validate checks if the state is valid
func (s State) Validate() error {
	if s < Pending || s > Failed {
		return fmt.Errorf("invalid state: %d", s)
	}
	return nil
}

// IsFinal returns true if the state is a terminal state
func (s State) IsFinal() bool {
	switch s {
	case Rejected, Skipped, Succeeded, DeadLettered, Failed:
		return true
	}
	return false
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("unmarshaling state: %w", err)
	}
	*s = NewState(str)
	return nil
}
