package app

import "errors"

// Exit codes returned by the canvastodo binary. Schedulers branch on them.
const (
	ExitOK                = 0
	ExitInvalidPath       = 1
	ExitAPIFailure        = 2
	ExitMissingHeader     = 3
	ExitWriteFailure      = 4
	ExitTimeZone          = 5
	ExitMissingAPIKey     = 6
	ExitMissingOutputPath = 7
	ExitMissingSettings   = 8
	ExitInvalidSettings   = 9
)

// ErrInvalidOutputPath is returned when the output file cannot live at the
// configured location.
var ErrInvalidOutputPath = errors.New("invalid output path")

// ExitError pairs a failure with the process exit code it maps to.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code for err: 0 for nil, the ExitError code
// when err wraps one, and ExitInvalidSettings otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitInvalidSettings
}
