package upload

import "fmt"

// ValidationError is a submission refused before any network activity.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: %s", e.Reason)
}

// ErrNoFileSelected is returned by Submit when no file has been selected.
var ErrNoFileSelected = &ValidationError{Reason: "no file selected"}
