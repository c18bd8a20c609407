package output

import (
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// Manifest is the machine-readable companion to a CSV series: enough
// metadata for plotting tools to label a run without re-parsing flags.
type Manifest struct {
	RunID       string        `yaml:"run_id"`
	Target      string        `yaml:"target"`
	Mode        string        `yaml:"mode"`
	Concurrency int           `yaml:"concurrency"`
	Warmup      time.Duration `yaml:"warmup"`
	Duration    time.Duration `yaml:"duration"`
	StartedAt   time.Time     `yaml:"started_at"`

	Rows        int64 `yaml:"rows"`
	Samples     int64 `yaml:"samples"`
	LateDropped int64 `yaml:"late_dropped,omitempty"`
	Stalled     bool  `yaml:"workers_stalled,omitempty"`
}

// NewRunID returns a lexicographically sortable unique run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// WriteManifest writes the manifest as YAML next to the CSV output.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by a previous run.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
