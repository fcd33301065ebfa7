package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/mmgctl/internal/logging"
	"github.com/danmuck/mmgctl/internal/tools"
)

func main() {
	logger := logging.ConfigureRuntime()
	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
		getwd:  os.Getwd,
		finder: tools.ExecPathFinder{},
		logger: logger,
	}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mmgctl: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitError carries a specific process status out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) && ee.code > 0 {
		return ee.code
	}
	return 1
}
