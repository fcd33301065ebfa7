package provision

import (
	"fmt"
	"os"
	"strconv"
)

// build configures a release build and compiles it; reruns are incremental.
func (r *run) build() error {
	src := r.p.layout.SourceDir()
	buildDir := r.p.layout.BuildDir()
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("%w: create build dir: %v", ErrBuild, err)
	}

	if _, err := r.exec("cmake", "-S", src, "-B", buildDir, "-DCMAKE_BUILD_TYPE=Release"); err != nil {
		return fmt.Errorf("%w: configure: %w", ErrBuild, err)
	}
	if _, err := r.exec("make", "-C", buildDir, "-j"+strconv.Itoa(r.p.jobs)); err != nil {
		return fmt.Errorf("%w: compile: %w", ErrBuild, err)
	}
	return nil
}
