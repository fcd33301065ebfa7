package provision

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Receipt is the informational record of the last successful run.
type Receipt struct {
	RunID    string        `toml:"run_id"`
	Upstream string        `toml:"upstream"`
	Branch   string        `toml:"branch,omitempty"`
	Ref      string        `toml:"ref,omitempty"`
	Commit   string        `toml:"commit,omitempty"`
	Jobs     int           `toml:"jobs"`
	Artifact string        `toml:"artifact"`
	BuiltAt  time.Time     `toml:"built_at"`
	Steps    []ReceiptStep `toml:"steps"`
}

type ReceiptStep struct {
	Name       string `toml:"name"`
	DurationMS int64  `toml:"duration_ms"`
}

func (p *Provisioner) receiptFor(result Result) Receipt {
	steps := make([]ReceiptStep, 0, len(result.Steps))
	for _, s := range result.Steps {
		steps = append(steps, ReceiptStep{Name: s.Name, DurationMS: s.Duration.Milliseconds()})
	}
	return Receipt{
		RunID:    result.RunID,
		Upstream: p.repoURL,
		Branch:   p.branch,
		Ref:      p.ref,
		Commit:   result.Commit,
		Jobs:     result.Jobs,
		Artifact: result.Artifact,
		BuiltAt:  p.now().UTC().Truncate(time.Second),
		Steps:    steps,
	}
}

func WriteReceipt(path string, receipt Receipt) error {
	data, err := toml.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("receipt encode failed (%s): %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ReadReceipt(path string) (Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Receipt{}, fmt.Errorf("receipt load failed (%s): %w", path, err)
	}
	var receipt Receipt
	if err := toml.Unmarshal(data, &receipt); err != nil {
		return Receipt{}, fmt.Errorf("receipt parse failed (%s): %w", path, err)
	}
	return receipt, nil
}
