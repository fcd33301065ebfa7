package provision

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/mmgctl/internal/layout"
	"github.com/danmuck/mmgctl/internal/tools"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultRepoURL = "https://github.com/MmgTools/mmg.git"

// Step names, in execution order.
const (
	StepPrerequisites = "ensure_prerequisites"
	StepSource        = "ensure_source"
	StepBuild         = "build"
	StepVerify        = "verify"
)

// DefaultPrerequisites are the build tools the build step invokes. They are
// always checked; ExtraPrerequisites only add to them.
var DefaultPrerequisites = []string{"cmake", "make"}

// Config is the explicit provisioner setup. Nothing is read from the ambient
// environment after construction.
type Config struct {
	Layout             layout.Layout
	RepoURL            string
	Branch             string
	Ref                string
	Jobs               int
	ExtraPrerequisites []string
	Runner             tools.CommandRunner
	Finder             tools.PathFinder
	Cores              func() int
	Now                func() time.Time
	Logger             *zerolog.Logger
}

// Provisioner runs the fixed prerequisite -> source -> build -> verify pipeline.
type Provisioner struct {
	layout        layout.Layout
	repoURL       string
	branch        string
	ref           string
	jobs          int
	prerequisites []string
	runner        tools.CommandRunner
	finder        tools.PathFinder
	now           func() time.Time
	logger        zerolog.Logger
	steps         []Step
}

// Step is one named stage of a provisioning run.
type Step struct {
	Name string
	Run  func(*run) error
}

// StepReport records how long a completed (or failed) step took.
type StepReport struct {
	Name     string
	Duration time.Duration
}

// Result describes a successful provisioning run.
type Result struct {
	RunID    string
	Artifact string
	Jobs     int
	Commit   string
	Steps    []StepReport
}

// run carries per-invocation state through the steps.
type run struct {
	p      *Provisioner
	log    zerolog.Logger
	commit string
}

func New(cfg Config) (*Provisioner, error) {
	if strings.TrimSpace(cfg.Layout.Root) == "" {
		return nil, fmt.Errorf("provision: layout root is required")
	}

	repoURL := strings.TrimSpace(cfg.RepoURL)
	if repoURL == "" {
		repoURL = DefaultRepoURL
	}
	prereqs := mergeNames(DefaultPrerequisites, cfg.ExtraPrerequisites)
	runner := cfg.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	finder := cfg.Finder
	if finder == nil {
		finder = tools.ExecPathFinder{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	p := &Provisioner{
		layout:        cfg.Layout,
		repoURL:       repoURL,
		branch:        strings.TrimSpace(cfg.Branch),
		ref:           strings.TrimSpace(cfg.Ref),
		jobs:          tools.Jobs(cfg.Jobs, cfg.Cores),
		prerequisites: prereqs,
		runner:        runner,
		finder:        finder,
		now:           now,
		logger:        logger,
	}
	p.steps = []Step{
		{Name: StepPrerequisites, Run: (*run).ensurePrerequisites},
		{Name: StepSource, Run: (*run).ensureSource},
		{Name: StepBuild, Run: (*run).build},
		{Name: StepVerify, Run: (*run).verify},
	}
	return p, nil
}

// Steps lists the pipeline step names in execution order.
func (p *Provisioner) Steps() []string {
	out := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		out = append(out, step.Name)
	}
	return out
}

// Jobs is the build parallelism this provisioner passes to make.
func (p *Provisioner) Jobs() int {
	return p.jobs
}

// Run executes every step in order and stops at the first failure.
func (p *Provisioner) Run() (Result, error) {
	runID := uuid.NewString()
	r := &run{
		p:   p,
		log: p.logger.With().Str("run_id", runID).Logger(),
	}
	result := Result{RunID: runID, Jobs: p.jobs}

	r.log.Info().
		Str("root", p.layout.Root).
		Str("upstream", p.repoURL).
		Int("jobs", p.jobs).
		Msg("provision start")

	for _, step := range p.steps {
		started := p.now()
		r.log.Info().Str("step", step.Name).Msg("provision step start")
		err := step.Run(r)
		elapsed := p.now().Sub(started)
		result.Steps = append(result.Steps, StepReport{Name: step.Name, Duration: elapsed})
		if err != nil {
			r.log.Error().Err(err).Str("step", step.Name).Dur("duration", elapsed).Msg("provision step failed")
			return result, &StepError{Step: step.Name, Err: err}
		}
		r.log.Info().Str("step", step.Name).Dur("duration", elapsed).Msg("provision step done")
	}

	result.Artifact = p.layout.Artifact()
	result.Commit = r.commit
	if err := WriteReceipt(p.layout.Receipt(), p.receiptFor(result)); err != nil {
		r.log.Warn().Err(err).Str("path", p.layout.Receipt()).Msg("receipt write failed")
	}
	r.log.Info().Str("artifact", result.Artifact).Msg("provision complete")
	return result, nil
}

func (r *run) ensurePrerequisites() error {
	var missing []string
	for _, name := range r.p.prerequisites {
		path, err := r.p.finder.LookPath(name)
		if err != nil {
			missing = append(missing, name)
			continue
		}
		r.log.Debug().Str("tool", name).Str("path", path).Msg("prerequisite found")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not found on PATH", ErrMissingPrerequisite, strings.Join(missing, ", "))
	}
	return nil
}

func (r *run) verify() error {
	artifact := r.p.layout.Artifact()
	info, err := os.Stat(artifact)
	if err != nil {
		return fmt.Errorf("%w: expected %s: %v", ErrArtifactMissing, artifact, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: expected regular file at %s", ErrArtifactMissing, artifact)
	}
	return nil
}

// exec runs one external command and logs it the same way for every step.
func (r *run) exec(name string, args ...string) ([]byte, error) {
	r.log.Info().Str("cmd", name).Strs("args", args).Msg("provision exec")
	return tools.Exec(r.p.runner, name, args...)
}

// mergeNames appends extra to base, dropping blanks and duplicates.
func mergeNames(base []string, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, raw := range list {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
