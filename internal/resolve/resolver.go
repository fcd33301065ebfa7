// Package resolve locates the mmgs binary for client code at runtime.
//
// Resolution is read-only: it never installs, builds or caches anything, and
// a Resolver is safe for concurrent use.
package resolve

import (
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/mmgctl/internal/layout"
	"github.com/danmuck/mmgctl/internal/tools"
)

// EnvOverride names the variable that bypasses all detection when non-empty.
const EnvOverride = "BPY_GEOMETRIES_MMGS_PATH"

var ErrNotFound = errors.New("mmgs binary not found")

// Source says which strategy produced a Resolution.
type Source string

const (
	SourceOverride Source = "override"
	SourceVendor   Source = "vendor"
	SourcePath     Source = "path"
)

// Resolution is one lookup outcome. Path is opaque to callers.
type Resolution struct {
	Path   string
	Source Source
}

// Config is the injected view of the environment a Resolver consults.
type Config struct {
	Layout     layout.Layout
	Getenv     func(string) string
	Finder     tools.PathFinder
	Stat       func(string) (os.FileInfo, error)
	Candidates []string
}

type Resolver struct {
	layout     layout.Layout
	getenv     func(string) string
	finder     tools.PathFinder
	stat       func(string) (os.FileInfo, error)
	candidates []string
}

func New(cfg Config) *Resolver {
	getenv := cfg.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	finder := cfg.Finder
	if finder == nil {
		finder = tools.ExecPathFinder{}
	}
	stat := cfg.Stat
	if stat == nil {
		stat = os.Stat
	}
	candidates := cfg.Candidates
	if len(candidates) == 0 {
		candidates = layout.PathCandidates
	}
	return &Resolver{
		layout:     cfg.Layout,
		getenv:     getenv,
		finder:     finder,
		stat:       stat,
		candidates: append([]string(nil), candidates...),
	}
}

// Resolve applies override, vendor artifact, then PATH candidates in order.
// ok is false when no strategy produced a location.
func (r *Resolver) Resolve() (Resolution, bool) {
	// The override is trusted verbatim, without an existence check.
	if v := r.getenv(EnvOverride); v != "" {
		return Resolution{Path: v, Source: SourceOverride}, true
	}

	if r.layout.Root != "" {
		artifact := r.layout.Artifact()
		if info, err := r.stat(artifact); err == nil && !info.IsDir() {
			return Resolution{Path: artifact, Source: SourceVendor}, true
		}
	}

	for _, name := range r.candidates {
		if path, err := r.finder.LookPath(name); err == nil {
			return Resolution{Path: path, Source: SourcePath}, true
		}
	}
	return Resolution{}, false
}

// Lookup is Resolve with the negative result turned into an actionable error.
func (r *Resolver) Lookup() (string, error) {
	res, ok := r.Resolve()
	if !ok {
		return "", r.NotFound()
	}
	return res.Path, nil
}

// NotFound is the ErrNotFound error Lookup returns, with install hints for
// this resolver's layout.
func (r *Resolver) NotFound() error {
	vendor := r.layout.Artifact()
	if r.layout.Root == "" {
		vendor = "vendor/mmg/build/bin/" + layout.ArtifactName
	}
	return fmt.Errorf(
		"%w. Install MMG and either:\n"+
			"  1. set %s to the mmgs binary\n"+
			"  2. run `mmgctl install` to build %s\n"+
			"  3. add %s to your PATH",
		ErrNotFound,
		EnvOverride,
		vendor,
		r.candidates[len(r.candidates)-1],
	)
}
