package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/torosent/loadpulse/internal/threshold"
)

// Mode selects how workers build requests against the target.
type Mode string

const (
	// ModeFixed issues the same request every time.
	ModeFixed Mode = "fixed"
	// ModeRange walks the target with HTTP Range requests, simulating
	// sequential reads with occasional random seeks.
	ModeRange Mode = "range"
)

// Config holds every knob for a run. It is built once by the Loader and
// passed explicitly to the pieces that need it.
type Config struct {
	TargetURL        string            `mapstructure:"target"`
	Method           string            `mapstructure:"method"`
	Headers          map[string]string `mapstructure:"headers"`
	Body             string            `mapstructure:"body"`
	BodyFile         string            `mapstructure:"body_file"`
	Concurrency      int               `mapstructure:"concurrency"`
	Rate             int               `mapstructure:"rate"`
	Warmup           time.Duration     `mapstructure:"warmup"`
	Duration         time.Duration     `mapstructure:"duration"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	GracefulShutdown time.Duration     `mapstructure:"graceful_shutdown"`
	Out              string            `mapstructure:"out"`
	NoSave           bool              `mapstructure:"no_save"`
	Mode             Mode              `mapstructure:"mode"`
	ChunkSize        int64             `mapstructure:"chunk_size"`
	SeekProb         float64           `mapstructure:"seek_prob"`
	Seed             int64             `mapstructure:"seed"`
	ExpectJSON       string            `mapstructure:"expect_json"`
	Thresholds       []string          `mapstructure:"thresholds"`
	JSONOutput       bool              `mapstructure:"json_output"`
	LogErrors        bool              `mapstructure:"log_errors"`
	Tracing          TracingConfig     `mapstructure:"tracing"`
	ConfigFile       string            `mapstructure:"-"`
}

// TracingConfig configures the OpenTelemetry provider. Zero value means
// tracing is off and the provider is a no-op.
type TracingConfig struct {
	Enable      bool    `mapstructure:"enable"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether spans should be created and exported.
func (t TracingConfig) Enabled() bool {
	return t.Enable
}

// ShouldPropagate reports whether W3C trace headers should be injected
// into outgoing requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enable && t.Propagate
}

// ValidationError aggregates every problem found in a Config so the user
// sees them all at once.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil {
		issues = append(issues, fmt.Sprintf("target is not a valid URL: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("target must be an http or https URL, got %q", target))
	}

	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High rate limit configured (%d RPS). Ensure you have authorization to test the target system.", c.Rate))
	}
	if c.Concurrency > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High concurrency configured (%d workers). Ensure you have authorization to test the target system.", c.Concurrency))
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.Duration <= 0 {
		issues = append(issues, "duration must be > 0")
	}
	if c.Warmup < 0 {
		issues = append(issues, "warmup must be >= 0")
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and bodyFile are mutually exclusive")
	}
	if !c.NoSave && strings.TrimSpace(c.Out) == "" {
		issues = append(issues, "out is required unless no-save is set")
	}

	switch c.Mode {
	case ModeFixed:
	case ModeRange:
		if c.ChunkSize <= 0 {
			issues = append(issues, "chunk-size must be > 0 in range mode")
		}
		if c.SeekProb < 0 || c.SeekProb > 1 {
			issues = append(issues, "seek-prob must be between 0 and 1")
		}
	default:
		issues = append(issues, fmt.Sprintf("mode must be 'fixed' or 'range', got %q", c.Mode))
	}

	for _, expr := range c.Thresholds {
		if _, err := threshold.Parse(expr); err != nil {
			issues = append(issues, fmt.Sprintf("threshold %q: %v", expr, err))
		}
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}
