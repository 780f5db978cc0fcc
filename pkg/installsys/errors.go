package installsys

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// RunnerFailureCode is the exit code reported for steps that never ran, for example because
// the working directory is missing or the command couldn't be parsed. Steps that ran and
// failed report the exit code of the failing command instead.
const RunnerFailureCode = 125

// StepError reports a step that ran and failed or couldn't be started.
type StepError struct {
	Plan string
	Step string
	Dir  string
	Code int
	Err  error
}

var _ error = (*StepError)(nil)

func (e StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %s failed: %s", e.Step, e.Err)
	}

	return fmt.Sprintf("step %s exited with code %d", e.Step, e.Code)
}

func (e StepError) Unwrap() error {
	return e.Err
}

// DirError reports a step whose working directory doesn't exist.
type DirError struct {
	Plan string
	Step string
	Dir  string
	Err  error
}

var _ error = (*DirError)(nil)

func (e DirError) Error() string {
	return fmt.Sprintf("step %s can't run in %s: %s", e.Step, e.Dir, e.Err)
}

func (e DirError) Unwrap() error {
	return e.Err
}

// ExitCode translates an error returned by Runner.Run into a process exit code. A failed
// step yields the exit code of the failing command, runner level failures yield
// RunnerFailureCode and nil yields zero. Anything else maps to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var stepErr *StepError
	if eris.As(err, &stepErr) {
		return stepErr.Code
	}

	var dirErr *DirError
	if eris.As(err, &dirErr) {
		return RunnerFailureCode
	}

	return 1
}
