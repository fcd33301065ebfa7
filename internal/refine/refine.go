// Package refine runs a resolved mmgs binary on a Medit surface mesh.
package refine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danmuck/mmgctl/internal/tools"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidOptions = errors.New("refine: invalid options")
	ErrRefineFailed   = errors.New("refine: mmgs failed")
	ErrOutputMissing  = errors.New("refine: mmgs output not found")
)

// OutputSuffix is appended by mmgs to the input stem.
const OutputSuffix = ".o.mesh"

// Options mirror the mmgs flags used for isotropic roughening.
type Options struct {
	// HMax is the maximum edge length; it must be positive.
	HMax float64
	// KeepVertices passes -nomove so existing vertices stay in place.
	KeepVertices bool
	// RidgeAngle is the -ar value in degrees; zero omits the flag.
	RidgeAngle float64
}

// DefaultOptions returns the flags the geometry library uses.
func DefaultOptions(hmax float64) Options {
	return Options{HMax: hmax, KeepVertices: true, RidgeAngle: 1}
}

type Refiner struct {
	binary string
	runner tools.CommandRunner
	logger zerolog.Logger
}

// New binds a refiner to a binary path, typically from resolve.Lookup.
func New(binary string, runner tools.CommandRunner, logger *zerolog.Logger) (*Refiner, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, fmt.Errorf("%w: empty mmgs binary", ErrInvalidOptions)
	}
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &Refiner{binary: binary, runner: runner, logger: l}, nil
}

// Args builds the mmgs argument list for input.
func (o Options) Args(input string) []string {
	args := []string{"-hmax", formatFloat(o.HMax)}
	if o.KeepVertices {
		args = append(args, "-nomove")
	}
	if o.RidgeAngle != 0 {
		args = append(args, "-ar", formatFloat(o.RidgeAngle))
	}
	return append(args, input)
}

func (o Options) Validate() error {
	if !(o.HMax > 0) {
		return fmt.Errorf("%w: hmax must be > 0, got %v", ErrInvalidOptions, o.HMax)
	}
	if o.RidgeAngle < 0 || o.RidgeAngle > 180 {
		return fmt.Errorf("%w: ridge angle must be within [0, 180], got %v", ErrInvalidOptions, o.RidgeAngle)
	}
	return nil
}

// OutputPath is where mmgs writes the refined mesh for input.
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + OutputSuffix
}

// Refine runs mmgs on input and returns the refined mesh path.
func (r *Refiner) Refine(input string, opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%w: input %s: %v", ErrInvalidOptions, abs, err)
	}

	args := opts.Args(abs)
	r.logger.Info().Str("cmd", r.binary).Strs("args", args).Msg("refine exec")
	if _, err := tools.Exec(r.runner, r.binary, args...); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefineFailed, err)
	}

	out := OutputPath(abs)
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("%w: expected %s", ErrOutputMissing, out)
	}
	r.logger.Info().Str("output", out).Msg("refine complete")
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
