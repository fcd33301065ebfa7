package refine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/mmgctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

type refineFakeRunner struct {
	commands [][]string
	exitCode int32
	stderr   []byte
	// writeOutput mimics mmgs dropping <stem>.o.mesh beside the input.
	writeOutput bool
}

func (r *refineFakeRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	r.commands = append(r.commands, append([]string{name}, args...))
	if r.exitCode != 0 {
		return nil, r.stderr, r.exitCode, errors.New("exit status 1")
	}
	if r.writeOutput {
		input := args[len(args)-1]
		_ = os.WriteFile(OutputPath(input), []byte("MeshVersionFormatted 2\n"), 0o644)
	}
	return nil, nil, 0, nil
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "column.mesh")
	if err := os.WriteFile(path, []byte("MeshVersionFormatted 2\nDimension 3\nEnd\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func newTestRefiner(t *testing.T, runner *refineFakeRunner) *Refiner {
	t.Helper()
	r, err := New("/opt/tools/mmgs", runner, testlog.Start(t))
	if err != nil {
		t.Fatalf("new refiner: %v", err)
	}
	return r
}

func TestDefaultOptionsArgs(t *testing.T) {
	got := DefaultOptions(0.05).Args("/tmp/in.mesh")
	want := []string{"-hmax", "0.05", "-nomove", "-ar", "1", "/tmp/in.mesh"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestArgsOmitOptionalFlags(t *testing.T) {
	got := Options{HMax: 2}.Args("in.mesh")
	want := []string{"-hmax", "2", "in.mesh"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("/work/column.mesh"); got != "/work/column.o.mesh" {
		t.Fatalf("unexpected output path: %q", got)
	}
}

func TestRefineReturnsOutput(t *testing.T) {
	runner := &refineFakeRunner{writeOutput: true}
	r := newTestRefiner(t, runner)
	input := writeInput(t)

	out, err := r.Refine(input, DefaultOptions(0.1))
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if out != OutputPath(input) {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(runner.commands) != 1 || runner.commands[0][0] != "/opt/tools/mmgs" {
		t.Fatalf("unexpected commands: %v", runner.commands)
	}
}

func TestRefineRejectsNonPositiveHMax(t *testing.T) {
	runner := &refineFakeRunner{}
	r := newTestRefiner(t, runner)
	_, err := r.Refine(writeInput(t), DefaultOptions(0))
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	if len(runner.commands) != 0 {
		t.Fatalf("mmgs ran with invalid options: %v", runner.commands)
	}
}

func TestRefineFailure(t *testing.T) {
	runner := &refineFakeRunner{exitCode: 1, stderr: []byte("## ERROR: UNABLE TO LOAD MESH\n")}
	r := newTestRefiner(t, runner)
	_, err := r.Refine(writeInput(t), DefaultOptions(0.1))
	if !errors.Is(err, ErrRefineFailed) {
		t.Fatalf("expected ErrRefineFailed, got %v", err)
	}
}

func TestRefineOutputMissing(t *testing.T) {
	r := newTestRefiner(t, &refineFakeRunner{})
	_, err := r.Refine(writeInput(t), DefaultOptions(0.1))
	if !errors.Is(err, ErrOutputMissing) {
		t.Fatalf("expected ErrOutputMissing, got %v", err)
	}
}

func TestNewRejectsEmptyBinary(t *testing.T) {
	if _, err := New(" ", nil, nil); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}
