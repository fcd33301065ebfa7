package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/mmgctl/internal/config"
	"github.com/danmuck/mmgctl/internal/layout"
	"github.com/danmuck/mmgctl/internal/provision"
	"github.com/danmuck/mmgctl/internal/refine"
	"github.com/danmuck/mmgctl/internal/resolve"
	"github.com/danmuck/mmgctl/internal/tools"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds the process dependencies so commands can run against fakes.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	getwd  func() (string, error)
	// runner overrides the exec runner built from config when set.
	runner tools.CommandRunner
	finder tools.PathFinder
	logger zerolog.Logger

	rootFlag   string
	configFlag string
	jobsFlag   int
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "mmgctl",
		Short:         "mmgctl - build and locate the mmgs remeshing binary",
		Long:          "Without a subcommand mmgctl provisions vendor/mmg and prints the built artifact path.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runInstall,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.rootFlag, "root", "", "repository root (default: nearest parent holding .git, pyproject.toml or mmgctl.toml)")
	root.PersistentFlags().StringVar(&a.configFlag, "config", "", "config file (default: <root>/mmgctl.toml)")
	root.PersistentFlags().IntVarP(&a.jobsFlag, "jobs", "j", 0, "build parallelism (default: number of cores)")

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Clone or update vendor/mmg, build it in release mode and verify mmgs_O3",
		Args:  cobra.NoArgs,
		RunE:  a.runInstall,
	}

	var showSource bool
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the mmgs binary client code would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runResolve(showSource)
		},
	}
	resolveCmd.Flags().BoolVar(&showSource, "source", false, "also print which strategy matched")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last build receipt and the current resolution",
		Args:  cobra.NoArgs,
		RunE:  a.runStatus,
	}

	var refineOpts refine.Options
	var allowMove bool
	refineCmd := &cobra.Command{
		Use:   "refine <input.mesh>",
		Short: "Run the resolved mmgs on a Medit mesh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refineOpts.KeepVertices = !allowMove
			return a.runRefine(args[0], refineOpts)
		},
	}
	refineCmd.Flags().Float64Var(&refineOpts.HMax, "hmax", 0, "maximum edge length (required)")
	refineCmd.Flags().Float64Var(&refineOpts.RidgeAngle, "ridge-angle", 1, "ridge detection angle in degrees, 0 to omit -ar")
	refineCmd.Flags().BoolVar(&allowMove, "move", false, "let mmgs move existing vertices (omit -nomove)")
	_ = refineCmd.MarkFlagRequired("hmax")

	var force bool
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mmgctl.toml",
	}
	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigInit(force)
		},
	}
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	configValidateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file",
		Args:  cobra.NoArgs,
		RunE:  a.runConfigValidate,
	}
	configCmd.AddCommand(configInitCmd, configValidateCmd)

	root.AddCommand(installCmd, resolveCmd, statusCmd, refineCmd, configCmd)
	return root
}

// settings is the merged view of flags, config file and defaults.
type settings struct {
	cfg        config.Config
	configPath string
	layout     layout.Layout
}

// locate picks the repository root and config path from flags or the working dir.
func (a *app) locate() (string, string, error) {
	root := strings.TrimSpace(a.rootFlag)
	if root == "" {
		wd, err := a.getwd()
		if err != nil {
			return "", "", err
		}
		if root, err = layout.FindRoot(wd); err != nil {
			return "", "", err
		}
	}
	configPath := strings.TrimSpace(a.configFlag)
	if configPath == "" {
		configPath = filepath.Join(root, config.FileName)
	}
	return root, configPath, nil
}

func (a *app) load() (settings, error) {
	root, configPath, err := a.locate()
	if err != nil {
		return settings{}, err
	}
	// an explicit --config must exist; the default location is optional
	var cfg config.Config
	found := true
	if strings.TrimSpace(a.configFlag) != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, found, err = config.LoadOptional(configPath)
	}
	if err != nil {
		return settings{}, err
	}
	if found {
		a.logger.Debug().Str("path", configPath).Msg("config loaded")
	}

	if strings.TrimSpace(a.rootFlag) == "" && cfg.Root != "" {
		root = cfg.Root
	}
	if a.jobsFlag > 0 {
		cfg.Jobs = a.jobsFlag
	}

	l, err := layout.New(root)
	if err != nil {
		return settings{}, err
	}
	return settings{cfg: cfg, configPath: configPath, layout: l}, nil
}

func (a *app) commandRunner(cfg config.Config) tools.CommandRunner {
	if a.runner != nil {
		return a.runner
	}
	if cfg.StreamOutput {
		return tools.ExecRunner{Stream: a.stderr}
	}
	return tools.ExecRunner{}
}

func (a *app) resolver(s settings) *resolve.Resolver {
	return resolve.New(resolve.Config{
		Layout: s.layout,
		Getenv: a.getenv,
		Finder: a.finder,
	})
}

func (a *app) runInstall(cmd *cobra.Command, args []string) error {
	s, err := a.load()
	if err != nil {
		return err
	}
	p, err := provision.New(provision.Config{
		Layout:             s.layout,
		RepoURL:            s.cfg.Upstream,
		Branch:             s.cfg.Branch,
		Ref:                s.cfg.Ref,
		Jobs:               s.cfg.Jobs,
		ExtraPrerequisites: s.cfg.ExtraPrerequisites,
		Runner:             a.commandRunner(s.cfg),
		Finder:             a.finder,
		Logger:             &a.logger,
	})
	if err != nil {
		return err
	}

	result, err := p.Run()
	if err != nil {
		return &exitError{code: provision.ExitCode(err), err: err}
	}
	fmt.Fprintln(a.stdout, result.Artifact)
	return nil
}

func (a *app) runResolve(showSource bool) error {
	s, err := a.load()
	if err != nil {
		return err
	}
	r := a.resolver(s)
	res, ok := r.Resolve()
	if !ok {
		return &exitError{code: 1, err: r.NotFound()}
	}
	if showSource {
		fmt.Fprintf(a.stdout, "%s\t%s\n", res.Path, res.Source)
		return nil
	}
	fmt.Fprintln(a.stdout, res.Path)
	return nil
}

func (a *app) runStatus(cmd *cobra.Command, args []string) error {
	s, err := a.load()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "root:      %s\n", s.layout.Root)
	fmt.Fprintf(a.stdout, "artifact:  %s\n", s.layout.Artifact())

	receipt, err := provision.ReadReceipt(s.layout.Receipt())
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(a.stdout, "receipt:   none")
	case err != nil:
		return err
	default:
		fmt.Fprintf(a.stdout, "receipt:   run %s built %s\n", receipt.RunID, receipt.BuiltAt.Format(time.RFC3339))
		fmt.Fprintf(a.stdout, "upstream:  %s\n", receipt.Upstream)
		if receipt.Commit != "" {
			fmt.Fprintf(a.stdout, "commit:    %s\n", receipt.Commit)
		}
		fmt.Fprintf(a.stdout, "jobs:      %d\n", receipt.Jobs)
	}

	if res, ok := a.resolver(s).Resolve(); ok {
		fmt.Fprintf(a.stdout, "resolved:  %s (%s)\n", res.Path, res.Source)
	} else {
		fmt.Fprintln(a.stdout, "resolved:  not found")
	}
	return nil
}

func (a *app) runRefine(input string, opts refine.Options) error {
	s, err := a.load()
	if err != nil {
		return err
	}
	binary, err := a.resolver(s).Lookup()
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	r, err := refine.New(binary, a.commandRunner(s.cfg), &a.logger)
	if err != nil {
		return err
	}
	out, err := r.Refine(input, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, out)
	return nil
}

func (a *app) runConfigInit(force bool) error {
	_, configPath, err := a.locate()
	if err != nil {
		return err
	}
	if err := config.WriteTemplate(configPath, force); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s\n", configPath)
	return nil
}

func (a *app) runConfigValidate(cmd *cobra.Command, args []string) error {
	_, configPath, err := a.locate()
	if err != nil {
		return err
	}
	if _, err := config.Load(configPath); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "validated %s\n", configPath)
	return nil
}
