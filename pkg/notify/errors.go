package notify

import "fmt"

// DeliveryError is returned when a webhook could not be delivered.
type DeliveryError struct {
	URL        string
	Attempts   int
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook delivery to %s failed after %d attempt(s) with status %d: %v", e.URL, e.Attempts, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("webhook delivery to %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}
