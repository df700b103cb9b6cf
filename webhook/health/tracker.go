package health

import (
	"math"
	"sync"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
)

const (
	// DisableThreshold is the consecutive failure count that flags an endpoint for disabling
	DisableThreshold = 5

	// GateThreshold is the score below which deliveries are skipped without a network call
	GateThreshold = 20

	// maxFailurePenalty caps the consecutive failure deduction from the score
	maxFailurePenalty = 50
)

/* Tracker keeps per-endpoint delivery statistics in memory
 * Stats are never removed automatically, only by Reset
 */
type Tracker struct {
	mu    sync.Mutex
	stats map[string]*webhook.HealthStats
	now   func() time.Time
}

// NewTracker creates an empty tracker. now may be nil.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		stats: make(map[string]*webhook.HealthStats),
		now:   now,
	}
}

/* Record adds one attempt outcome for endpointID
 * Returns true once consecutive failures reach DisableThreshold; acting on it is up to the caller
 */
func (t *Tracker) Record(endpointID string, success bool, latencyMs int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[endpointID]
	if !ok {
		s = &webhook.HealthStats{}
		t.stats[endpointID] = s
	}

	s.TotalCalls++
	if success {
		s.SuccessCount++
		s.ConsecutiveFailures = 0
		s.LastSuccessAt = t.now()
		n := float64(s.SuccessCount)
		s.AvgLatencyMs = (s.AvgLatencyMs*(n-1) + float64(latencyMs)) / n
	} else {
		s.FailureCount++
		s.ConsecutiveFailures++
		s.LastFailureAt = t.now()
	}

	return s.ConsecutiveFailures >= DisableThreshold
}

// Get returns a copy of the stats for endpointID
func (t *Tracker) Get(endpointID string) (webhook.HealthStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[endpointID]
	if !ok {
		return webhook.HealthStats{}, false
	}
	return *s, true
}

// Score returns the health score of endpointID in [0, 100]; unknown endpoints score 100
func (t *Tracker) Score(endpointID string) int {
	s, ok := t.Get(endpointID)
	if !ok {
		return 100
	}
	return Score(s)
}

// Score computes round(successRate*100 - min(consecutiveFailures*10, 50)), floored at 0
func Score(s webhook.HealthStats) int {
	if s.TotalCalls == 0 {
		return 100
	}
	penalty := math.Min(float64(s.ConsecutiveFailures*10), maxFailurePenalty)
	score := math.Round(s.SuccessRate()*100 - penalty)
	if score < 0 {
		return 0
	}
	return int(score)
}

// Healthy reports whether deliveries to endpointID should go out
func (t *Tracker) Healthy(endpointID string) bool {
	return t.Score(endpointID) >= GateThreshold
}

// Reset clears the stats for endpointID
func (t *Tracker) Reset(endpointID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.stats, endpointID)
}

// Snapshot returns a copy of every endpoint's stats
func (t *Tracker) Snapshot() map[string]webhook.HealthStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]webhook.HealthStats, len(t.stats))
	for id, s := range t.stats {
		out[id] = *s
	}
	return out
}
