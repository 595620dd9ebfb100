package supervisor

import "errors"

var (
	// ErrEmptyQuestion is returned when a session starts without a question
	ErrEmptyQuestion = errors.New("research question is empty")

	// ErrBudgetExceeded marks a session stopped by the iteration cap.
	// It is a termination reason, never returned from Run.
	ErrBudgetExceeded = errors.New("tool iteration budget exceeded")

	// ErrMalformedToolArguments is logged when tool arguments are not a JSON object
	ErrMalformedToolArguments = errors.New("malformed tool arguments")
)
