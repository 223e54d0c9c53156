package transcription

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus marks a response outside the 2xx range.
	ErrUnexpectedStatus = errors.New("unexpected status from transcription service")
	// ErrMalformedResponse marks a 2xx body without a string transcription field.
	ErrMalformedResponse = errors.New("malformed transcription response")
)

// ServiceError is any failure to obtain a transcription from the service.
// StatusCode is zero when no response was received.
type ServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("transcription request failed: %v", e.Err)
	case e.Body != "":
		return fmt.Sprintf("transcription service error (status %d): %v: %s", e.StatusCode, e.Err, e.Body)
	default:
		return fmt.Sprintf("transcription service error (status %d): %v", e.StatusCode, e.Err)
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request ran out of time.
func (e *ServiceError) Timeout() bool {
	return isTimeout(e.Err)
}
