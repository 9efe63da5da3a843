// Package config resolves ci-telemetry settings from the environment and
// command-line flags. Flags win over the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ErrNoInput is returned when neither a process nor a file event log is configured.
var ErrNoInput = errors.New("no event log specified: set --proc-events and/or --file-events")

// CustomAttribute defines a span attribute computed from an expression.
type CustomAttribute struct {
	Name       string
	Expression string
}

// EnvConfig holds the settings that can come from the environment.
type EnvConfig struct {
	Workspace            string `env:"GITHUB_WORKSPACE"`
	JobName              string `env:"GITHUB_JOB"`
	ProcEventsFile       string `env:"PROC_TRACE_EVENTS_FILE"`
	FileEventsFile       string `env:"FILE_TRACE_EVENTS_FILE"`
	MinDuration          int64  `env:"PROC_TRACE_MIN_DURATION" envDefault:"-1"`
	TraceSystemProcesses bool   `env:"PROC_TRACE_SYS_ENABLE" envDefault:"false"`
	Top                  int    `env:"FILE_TRACE_TOP" envDefault:"10"`
	Attributes           string `env:"CI_TELEMETRY_ATTRIBUTES"`
	LogLevel             string `env:"CI_TELEMETRY_LOG_LEVEL" envDefault:"info"`
	TraceID              string `env:"CI_TELEMETRY_TRACE_ID"`
	ParentID             string `env:"CI_TELEMETRY_PARENT_ID"`
}

// ParseEnvConfig reads EnvConfig from the process environment.
func ParseEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// ParseEnvConfigFrom reads EnvConfig from the given variables instead of the process environment.
func ParseEnvConfigFrom(environ map[string]string) (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Config is the resolved run configuration.
type Config struct {
	ProcEventsFile       string
	FileEventsFile       string
	Workspace            string
	JobName              string
	MinDuration          int64
	TraceSystemProcesses bool
	Top                  int
	Format               string
	Output               string
	CustomAttributes     []CustomAttribute
	LogLevel             string
	// TraceID groups exported spans; any string is accepted and hashed if needed.
	TraceID string
	// ParentID is the span ID the exported root span hangs under.
	ParentID string
}

// FromEnv builds a Config seeded with environment values.
func FromEnv(envCfg *EnvConfig) (*Config, error) {
	attrs, err := ParseAttributeString(envCfg.Attributes)
	if err != nil {
		return nil, fmt.Errorf("CI_TELEMETRY_ATTRIBUTES: %w", err)
	}

	return &Config{
		ProcEventsFile:       envCfg.ProcEventsFile,
		FileEventsFile:       envCfg.FileEventsFile,
		Workspace:            envCfg.Workspace,
		JobName:              envCfg.JobName,
		MinDuration:          envCfg.MinDuration,
		TraceSystemProcesses: envCfg.TraceSystemProcesses,
		Top:                  envCfg.Top,
		Format:               FormatMarkdown,
		CustomAttributes:     attrs,
		LogLevel:             envCfg.LogLevel,
		TraceID:              envCfg.TraceID,
		ParentID:             envCfg.ParentID,
	}, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.ProcEventsFile == "" && c.FileEventsFile == "" {
		return ErrNoInput
	}
	if c.FileEventsFile != "" && c.Workspace == "" {
		return fmt.Errorf("a workspace is required to rank file accesses (--workspace or GITHUB_WORKSPACE)")
	}
	switch c.Format {
	case FormatMarkdown, FormatJSON:
	default:
		return fmt.Errorf("unsupported format %q: want %s or %s", c.Format, FormatMarkdown, FormatJSON)
	}
	if c.Top < 0 {
		return fmt.Errorf("top must not be negative, got %d", c.Top)
	}
	if c.MinDuration < -1 {
		return fmt.Errorf("min duration must be -1 or greater, got %d", c.MinDuration)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// ParseAttribute parses a single NAME=EXPR definition.
// The expression may itself contain '='.
func ParseAttribute(s string) (CustomAttribute, error) {
	name, expr, ok := strings.Cut(s, "=")
	if !ok {
		return CustomAttribute{}, fmt.Errorf("invalid attribute format %q: expected NAME=EXPR", s)
	}
	name = strings.TrimSpace(name)
	expr = strings.TrimSpace(expr)
	if name == "" {
		return CustomAttribute{}, fmt.Errorf("invalid attribute %q: name cannot be empty", s)
	}
	if expr == "" {
		return CustomAttribute{}, fmt.Errorf("invalid attribute %q: expression cannot be empty", s)
	}
	return CustomAttribute{Name: name, Expression: expr}, nil
}

// ParseAttributeString parses semicolon separated NAME=EXPR definitions.
// Empty sections are skipped.
func ParseAttributeString(s string) ([]CustomAttribute, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var attrs []CustomAttribute
	for _, section := range strings.Split(s, ";") {
		if strings.TrimSpace(section) == "" {
			continue
		}
		attr, err := ParseAttribute(section)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}
