package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mrzor/ci-telemetry/internal/accessrank"
	"github.com/mrzor/ci-telemetry/internal/attributes"
	"github.com/mrzor/ci-telemetry/internal/config"
	"github.com/mrzor/ci-telemetry/internal/eventprocessor"
	"github.com/mrzor/ci-telemetry/internal/otel"
	"github.com/mrzor/ci-telemetry/internal/output"
	"github.com/mrzor/ci-telemetry/internal/proctrace"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"
)

type reportFlags struct {
	procEvents  string
	fileEvents  string
	workspace   string
	minDuration int64
	traceSys    bool
	top         int
	format      string
	output      string
	attributes  []string
	logLevel    string
}

func newReportCmd(environ map[string]string) *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Correlate trace logs and write a job report",
		Long: `Correlate the process event log, rank workspace file reads from the file
event log and write the result.

Every flag falls back to its environment variable:
  --proc-events      PROC_TRACE_EVENTS_FILE
  --file-events      FILE_TRACE_EVENTS_FILE
  --workspace        GITHUB_WORKSPACE
  --min-duration     PROC_TRACE_MIN_DURATION
  --trace-sys-procs  PROC_TRACE_SYS_ENABLE
  --top              FILE_TRACE_TOP
  --attribute        CI_TELEMETRY_ATTRIBUTES (NAME=EXPR;NAME=EXPR)
  --log-level        CI_TELEMETRY_LOG_LEVEL

Spans are exported when OTEL_EXPORTER_OTLP_ENDPOINT or
OTEL_EXPORTER_OTLP_TRACES_ENDPOINT is set.

Examples:
  ci-telemetry report --proc-events proc.log >> "$GITHUB_STEP_SUMMARY"
  ci-telemetry report --file-events files.log --workspace . --top 20
  ci-telemetry report --proc-events proc.log --format json --output trace.json
  ci-telemetry report --proc-events proc.log -a 'ci.subcommand=args[1]'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Flags(), &flags, environ)
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), cfg, environ, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.procEvents, "proc-events", "", "Process event log (JSON lines)")
	f.StringVar(&flags.fileEvents, "file-events", "", "File event log (JSON lines)")
	f.StringVar(&flags.workspace, "workspace", "", "Workspace directory whose files are ranked")
	f.Int64Var(&flags.minDuration, "min-duration", proctrace.NoMinDuration, "Keep only commands longer than this many milliseconds (-1 keeps all)")
	f.BoolVar(&flags.traceSys, "trace-sys-procs", false, "Include common system utilities such as sed and grep")
	f.IntVar(&flags.top, "top", 10, "Number of most accessed files to report (0 for all)")
	f.StringVar(&flags.format, "format", config.FormatMarkdown, "Output format (markdown, json)")
	f.StringVarP(&flags.output, "output", "o", "", "Write the report to this file instead of stdout")
	f.StringArrayVarP(&flags.attributes, "attribute", "a", nil, "Custom span attribute NAME=EXPR (repeatable)")
	f.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

// resolveConfig loads the environment and applies the flags that were set.
func resolveConfig(fs *pflag.FlagSet, flags *reportFlags, environ map[string]string) (*config.Config, error) {
	envCfg, err := config.ParseEnvConfigFrom(environ)
	if err != nil {
		return nil, err
	}
	cfg, err := config.FromEnv(envCfg)
	if err != nil {
		return nil, err
	}

	if fs.Changed("proc-events") {
		cfg.ProcEventsFile = flags.procEvents
	}
	if fs.Changed("file-events") {
		cfg.FileEventsFile = flags.fileEvents
	}
	if fs.Changed("workspace") {
		cfg.Workspace = flags.workspace
	}
	if fs.Changed("min-duration") {
		cfg.MinDuration = flags.minDuration
	}
	if fs.Changed("trace-sys-procs") {
		cfg.TraceSystemProcesses = flags.traceSys
	}
	if fs.Changed("top") {
		cfg.Top = flags.top
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	cfg.Format = flags.format
	cfg.Output = flags.output

	for _, a := range flags.attributes {
		attr, err := config.ParseAttribute(a)
		if err != nil {
			return nil, err
		}
		cfg.CustomAttributes = append(cfg.CustomAttributes, attr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runReport(ctx context.Context, cfg *config.Config, environ map[string]string, stdout, stderr io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	logger.Debug("starting ci-telemetry", "version", version, "commit", commit, "built", date)

	out := stdout
	if cfg.Output != "" {
		f, createErr := os.Create(cfg.Output)
		if createErr != nil {
			return fmt.Errorf("creating report file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				err = errors.Join(err, fmt.Errorf("closing report file: %w", closeErr))
			}
		}()
		out = f
	}

	var handlers []eventprocessor.ResultHandler
	switch cfg.Format {
	case config.FormatJSON:
		handlers = append(handlers, &output.JSONWriter{W: out})
	default:
		handlers = append(handlers, &output.MarkdownWriter{W: out, Title: cfg.JobName})
	}

	tracer, cleanupOTEL, err := setupOTEL(ctx, environ, logger)
	if err != nil {
		return err
	}
	defer cleanupOTEL()

	if tracer != nil {
		evaluator, err := attributes.NewEvaluator(cfg.CustomAttributes, logger)
		if err != nil {
			return err
		}
		handlers = append(handlers, output.NewSpanExporter(tracer, evaluator, cfg.JobName, cfg.TraceID, cfg.ParentID))
	} else if len(cfg.CustomAttributes) > 0 {
		logger.Warn("custom attributes are only used for spans; OTLP export is not configured")
	}

	processor := eventprocessor.NewProcessor(eventprocessor.Options{
		ProcEventsFile: cfg.ProcEventsFile,
		FileEventsFile: cfg.FileEventsFile,
		Correlator: proctrace.Options{
			MinDuration:          cfg.MinDuration,
			TraceSystemProcesses: cfg.TraceSystemProcesses,
			Logger:               logger,
		},
		Rank: accessrank.Options{
			Workspace: cfg.Workspace,
			Limit:     cfg.Top,
		},
		Logger: logger,
	}, handlers...)

	_, err = processor.Run(ctx)
	return err
}

// setupOTEL initializes the OTEL provider when an endpoint is configured.
// The returned tracer is nil when export is disabled.
func setupOTEL(ctx context.Context, environ map[string]string, logger *slog.Logger) (trace.Tracer, func(), error) {
	otelCfg, err := config.ParseOTELConfigFrom(environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse OTEL config: %w", err)
	}
	if !otelCfg.Enabled() {
		return nil, func() {}, nil
	}

	versionInfo := fmt.Sprintf("%s (%s)", version, commit)
	tp, err := otel.InitProvider(ctx, otelCfg, versionInfo, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.ShutdownProvider(shutdownCtx, tp); err != nil {
			logger.Error("shutting down OTEL provider", "error", err)
		}
	}

	return tp.Tracer("ci-telemetry"), cleanup, nil
}
