package tools

import (
	"os/exec"
	"runtime"
)

// PathFinder resolves command names against the command search path.
type PathFinder interface {
	LookPath(name string) (string, error)
}

// ExecPathFinder looks commands up with os/exec against the process PATH.
type ExecPathFinder struct{}

func (ExecPathFinder) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// DefaultJobs is the build parallelism used when the core count is unknown.
const DefaultJobs = 4

// Jobs picks build parallelism: an explicit positive request wins, then the
// reported core count, then DefaultJobs.
func Jobs(requested int, cores func() int) int {
	if requested > 0 {
		return requested
	}
	if cores == nil {
		cores = runtime.NumCPU
	}
	if n := cores(); n > 0 {
		return n
	}
	return DefaultJobs
}
