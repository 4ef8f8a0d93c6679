package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job id is unknown to the queue
	ErrJobNotFound = errors.New("job not found")

	// ErrJobCanceled marks a job whose execution was canceled cooperatively
	ErrJobCanceled = errors.New("job canceled")
)

// TerminalError wraps errors that must never be retried, such as a missing
// strategy for the job's target.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string {
	return "terminal error: " + e.Err.Error()
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// NewTerminalError creates a new non-retryable error
func NewTerminalError(err error) error {
	return &TerminalError{Err: err}
}

// IsTerminal reports whether the error must not be retried
func IsTerminal(err error) bool {
	var terminal *TerminalError
	return errors.As(err, &terminal)
}
