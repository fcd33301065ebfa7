package tools

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// CommandRunner abstracts external command execution for provisioning steps.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, []byte, int32, error)
}

// ExecRunner executes commands on the local host.
// When Stream is set, stdout and stderr are copied to it as the command runs.
type ExecRunner struct {
	Stream io.Writer
}

// tools command-runner implementation backed by os/exec.
func (r ExecRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := exec.Command(name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	if r.Stream != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.Stream)
		cmd.Stderr = io.MultiWriter(&stderr, r.Stream)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), int32(exitErr.ExitCode()), err
	}

	exitCode := int32(1)
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

// CommandError records one failed external command with its captured output.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int32
	Stdout   []byte
	Stderr   []byte
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf(
		"command failed cmd=%s args=%q exit=%d",
		e.Name,
		strings.Join(e.Args, " "),
		e.ExitCode,
	)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += fmt.Sprintf(" stderr=%q", tail)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Exec runs one command and folds any failure into a *CommandError.
func Exec(runner CommandRunner, name string, args ...string) ([]byte, error) {
	stdout, stderr, exitCode, err := runner.Run(name, args...)
	if err == nil && exitCode == 0 {
		return stdout, nil
	}
	if err == nil {
		err = fmt.Errorf("exit status %d", exitCode)
	}
	if exitCode == 0 {
		exitCode = 1
	}
	return stdout, &CommandError{
		Name:     name,
		Args:     append([]string(nil), args...),
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Err:      err,
	}
}

func lastLine(out []byte) string {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return ""
	}
	if i := strings.LastIndexByte(trimmed, '\n'); i >= 0 {
		return strings.TrimSpace(trimmed[i+1:])
	}
	return trimmed
}
