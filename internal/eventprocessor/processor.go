package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mrzor/ci-telemetry/internal/accessrank"
	"github.com/mrzor/ci-telemetry/internal/fileevent"
	"github.com/mrzor/ci-telemetry/internal/proctrace"
	"golang.org/x/sync/errgroup"
)

// Result is everything extracted from one job's trace logs.
type Result struct {
	// ProcessTraced is set when a process event log was parsed.
	ProcessTraced bool
	Commands      []proctrace.CompletedCommand
	ProcessStats  proctrace.Stats

	// FileTraced is set when a file event log was parsed.
	FileTraced bool
	FileEvents int
	FileAccess []accessrank.PathCount
}

// ResultHandler publishes a Result.
type ResultHandler interface {
	HandleResult(ctx context.Context, result *Result) error
}

// Options selects the logs to parse and how.
type Options struct {
	// ProcEventsFile is the process event log. Empty skips process tracing.
	ProcEventsFile string
	// FileEventsFile is the file event log. Empty skips file tracing.
	FileEventsFile string
	Correlator     proctrace.Options
	Rank           accessrank.Options
	Logger         *slog.Logger
}

// Processor coordinates parsing and output.
type Processor struct {
	opts     Options
	logger   *slog.Logger
	handlers []ResultHandler
}

// NewProcessor creates a new processor.
func NewProcessor(opts Options, handlers ...ResultHandler) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Correlator.Logger == nil {
		opts.Correlator.Logger = logger
	}
	return &Processor{
		opts:     opts,
		logger:   logger,
		handlers: handlers,
	}
}

// Collect parses the configured logs concurrently.
func (p *Processor) Collect(ctx context.Context) (*Result, error) {
	var (
		res        Result
		commands   []proctrace.CompletedCommand
		stats      proctrace.Stats
		fileEvents []fileevent.FileEvent
		procTraced bool
		fileTraced bool
	)

	g, gctx := errgroup.WithContext(ctx)

	if p.opts.ProcEventsFile != "" {
		g.Go(func() error {
			var err error
			commands, stats, err = proctrace.Parse(gctx, p.opts.ProcEventsFile, p.opts.Correlator)
			procTraced = err == nil
			return err
		})
	}

	if p.opts.FileEventsFile != "" {
		g.Go(func() error {
			var err error
			fileEvents, err = fileevent.Parse(gctx, p.opts.FileEventsFile, p.logger)
			fileTraced = err == nil
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.ProcessTraced = procTraced
	res.Commands = commands
	res.ProcessStats = stats
	res.FileTraced = fileTraced
	res.FileEvents = len(fileEvents)
	if fileTraced {
		res.FileAccess = accessrank.Rank(fileEvents, p.opts.Rank)
	}

	p.logger.Info("collected trace results",
		"commands", len(res.Commands),
		"file_events", res.FileEvents,
		"ranked_files", len(res.FileAccess),
	)
	return &res, nil
}

// Run collects the results and passes them to every handler.
// Handler errors are joined; a failing handler does not stop the others.
func (p *Processor) Run(ctx context.Context) (*Result, error) {
	res, err := p.Collect(ctx)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, h := range p.handlers {
		if err := h.HandleResult(ctx, res); err != nil {
			p.logger.Error("handling result", "handler", fmt.Sprintf("%T", h), "error", err)
			errs = append(errs, err)
		}
	}
	return res, errors.Join(errs...)
}
