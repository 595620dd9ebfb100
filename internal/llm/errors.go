package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a provider answers with neither text nor tool calls
var ErrEmptyResponse = errors.New("empty model response")

// ModelInvocationError reports a model call that failed after every retry
type ModelInvocationError struct {
	Stage    Stage
	Model    string
	Attempts int
	Err      error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("%s model %s failed after %d attempt(s): %v", e.Stage, e.Model, e.Attempts, e.Err)
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}
