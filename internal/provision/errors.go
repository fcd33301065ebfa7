package provision

import (
	"errors"
	"fmt"

	"github.com/danmuck/mmgctl/internal/tools"
)

var (
	ErrMissingPrerequisite = errors.New("provision: missing prerequisite")
	ErrSourceFetch         = errors.New("provision: source fetch failed")
	ErrInvalidSource       = errors.New("provision: invalid source checkout")
	ErrBuild               = errors.New("provision: build failed")
	ErrArtifactMissing     = errors.New("provision: build completed but artifact missing")
)

// StepError names the pipeline step that stopped a provisioning run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode maps a provisioning error to a process exit status.
// Failed external commands propagate their own non-zero code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *tools.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
		return int(cmdErr.ExitCode)
	}
	return 1
}
