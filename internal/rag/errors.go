package rag

import (
	"errors"
	"fmt"

	"github.com/fleetassist/backend/internal/safety"
)

// SafetyError reports a query rejected by the safety gate before any
// retrieval happened. Message is safe to show the user.
type SafetyError struct {
	Reason  safety.Reason
	Message string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("query rejected by safety gate: %s", e.Reason)
}

// AsSafetyError unwraps err into a SafetyError if it is one.
func AsSafetyError(err error) (*SafetyError, bool) {
	var se *SafetyError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
