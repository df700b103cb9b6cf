package delivery

import "errors"

var (
	// ErrHealthGate is returned when an endpoint's health score is below the gate
	ErrHealthGate = errors.New("endpoint health score below threshold")
	// ErrNon2xx is returned when the endpoint answers outside 200-299
	ErrNon2xx = errors.New("endpoint returned non-2xx status")
	// ErrTimeout is returned when an attempt exceeds its timeout
	ErrTimeout = errors.New("webhook attempt timed out")
	// ErrRedirect is returned when the endpoint answers with a redirect
	ErrRedirect = errors.New("endpoint redirects are not followed")
)
