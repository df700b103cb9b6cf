package webhook

import (
	"context"
	"errors"
)

// ErrDeliveryNotFound is returned by lookups that have no row for a delivery id
var ErrDeliveryNotFound = errors.New("delivery not found")

/* Small, focused interfaces following "The Go Way"
 * The pipeline consumes endpoints and produces log rows; storage is someone else's job
 */

// EndpointRegistry provides the endpoints subscribed to an event type
type EndpointRegistry interface {
	/* ListSubscribed returns enabled endpoints whose event type matches
	 * An empty slice is not an error
	 */
	ListSubscribed(ctx context.Context, eventType string) ([]Endpoint, error)
}

// DeliveryLogger persists delivery outcomes
type DeliveryLogger interface {
	/* Log writes one row per delivery outcome
	 * Callers treat it as best-effort: an error never fails a delivery
	 */
	Log(ctx context.Context, entry DeliveryLog) error
}
