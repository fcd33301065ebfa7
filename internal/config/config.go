package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up at the repository root.
const FileName = "mmgctl.toml"

const DefaultUpstream = "https://github.com/MmgTools/mmg.git"

// Config is the provisioning setup after defaults and file overlay.
// ExtraPrerequisites are checked on PATH in addition to cmake and make.
type Config struct {
	Root               string
	Upstream           string
	Branch             string
	Ref                string
	Jobs               int
	ExtraPrerequisites []string
	StreamOutput       bool
}

type fileConfig struct {
	Root               string   `toml:"root"`
	Upstream           string   `toml:"upstream"`
	Branch             string   `toml:"branch"`
	Ref                string   `toml:"ref"`
	Jobs               int      `toml:"jobs"`
	ExtraPrerequisites []string `toml:"extra_prerequisites"`
	StreamOutput       bool     `toml:"stream_build_output"`
}

func Default() Config {
	return Config{
		Upstream:     DefaultUpstream,
		StreamOutput: true,
	}
}

// Load overlays the keys defined in path onto Default. A relative root is
// taken relative to the config file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("root") {
		root := strings.TrimSpace(raw.Root)
		if root != "" && !filepath.IsAbs(root) {
			root = filepath.Join(filepath.Dir(path), root)
		}
		cfg.Root = root
	}
	if meta.IsDefined("upstream") {
		cfg.Upstream = strings.TrimSpace(raw.Upstream)
	}
	if meta.IsDefined("branch") {
		cfg.Branch = strings.TrimSpace(raw.Branch)
	}
	if meta.IsDefined("ref") {
		cfg.Ref = strings.TrimSpace(raw.Ref)
	}
	if meta.IsDefined("jobs") {
		cfg.Jobs = raw.Jobs
	}
	if meta.IsDefined("extra_prerequisites") {
		cfg.ExtraPrerequisites = normalizeList(raw.ExtraPrerequisites)
	}
	if meta.IsDefined("stream_build_output") {
		cfg.StreamOutput = raw.StreamOutput
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, returning Default when path does not exist.
func LoadOptional(path string) (Config, bool, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return Config{}, false, err
	}
	return cfg, true, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Upstream) == "" {
		return fmt.Errorf("upstream is required")
	}
	if cfg.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", cfg.Jobs)
	}
	if cfg.Branch != "" && strings.ContainsAny(cfg.Branch, " \t") {
		return fmt.Errorf("branch %q contains whitespace", cfg.Branch)
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
