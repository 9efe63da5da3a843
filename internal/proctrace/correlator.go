package proctrace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mrzor/ci-telemetry/internal/linereader"
)

var (
	// ErrMalformed marks a line that is not a usable process event.
	ErrMalformed = errors.New("malformed process event")
	// ErrUnknownEvent marks a well-formed line with an unexpected event kind.
	ErrUnknownEvent = errors.New("unknown process event")
)

// NoMinDuration disables the minimum duration filter.
const NoMinDuration int64 = -1

// Options configures a Correlator.
type Options struct {
	// MinDuration keeps only commands whose duration is strictly greater.
	MinDuration int64
	// TraceSystemProcesses disables the system process ignore list.
	TraceSystemProcesses bool
	// Logger receives per-line warnings and the final summary. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns options with no duration filter and system
// processes ignored.
func DefaultOptions() Options {
	return Options{MinDuration: NoMinDuration}
}

// Stats counts what the correlator saw. It is diagnostic only.
type Stats struct {
	Exec      int `json:"exec"`
	Exit      int `json:"exit"`
	Unknown   int `json:"unknown"`
	Malformed int `json:"malformed"`
	Ignored   int `json:"ignored"`
	Dropped   int `json:"dropped"`
}

// Correlator matches EXEC events with their EXIT. It is not safe for
// concurrent use; feed it from a single goroutine.
type Correlator struct {
	opts      Options
	logger    *slog.Logger
	active    map[int]*record // PID -> most recent unmatched EXEC
	replaced  map[int]*record // PID -> EXEC displaced by a newer EXEC for the same PID
	completed []CompletedCommand
	stats     Stats
}

// NewCorrelator creates a correlator with empty tables.
func NewCorrelator(opts Options) *Correlator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		opts:     opts,
		logger:   logger,
		active:   make(map[int]*record),
		replaced: make(map[int]*record),
	}
}

// Feed processes one log line. The returned error wraps ErrMalformed or
// ErrUnknownEvent; either way the line has been accounted for and the
// caller should carry on with the next one.
func (c *Correlator) Feed(line []byte) error {
	ev, err := decodeRecord(line)
	if err != nil {
		c.stats.Malformed++
		return err
	}

	if !c.opts.TraceSystemProcesses && IsSystemProcess(ev.name()) {
		c.stats.Ignored++
		return nil
	}

	switch *ev.Event {
	case EventExec:
		c.handleExec(ev)
	case EventExit:
		c.handleExit(ev)
	default:
		c.stats.Unknown++
		return fmt.Errorf("%w: %q (pid %d)", ErrUnknownEvent, *ev.Event, *ev.PID)
	}
	return nil
}

func (c *Correlator) handleExec(ev *record) {
	pid := *ev.PID
	if prev, ok := c.active[pid]; ok {
		if _, ok := c.replaced[pid]; ok {
			// Only the most recently displaced EXEC is kept.
			c.stats.Dropped++
		}
		c.replaced[pid] = prev
	}
	c.active[pid] = ev
	c.stats.Exec++
}

func (c *Correlator) handleExit(ev *record) {
	pid := *ev.PID
	c.stats.Exit++

	// A replaced record only exists while its PID has an active one.
	active, ok := c.active[pid]
	if !ok {
		return
	}
	delete(c.active, pid)
	active.fillFrom(ev)

	if replaced, ok := c.replaced[pid]; ok {
		delete(c.replaced, pid)
		replaced.fillFrom(ev)
		// Its own EXIT was never seen; it is taken to end when the process
		// that reused its PID ends.
		duration := active.startTime() + active.duration() - replaced.startTime()
		replaced.Duration = &duration
		c.emit(replaced)
	}
	c.emit(active)
}

func (c *Correlator) emit(r *record) {
	cmd := r.command()
	if cmd.Duration > c.opts.MinDuration {
		c.completed = append(c.completed, cmd)
	}
}

// Finish drops unmatched records and returns the completed commands
// ordered by start time. Commands starting at the same time keep the order
// they were completed in. The correlator is reset afterwards.
func (c *Correlator) Finish() ([]CompletedCommand, Stats) {
	c.stats.Dropped += len(c.active) + len(c.replaced)

	completed := c.completed
	slices.SortStableFunc(completed, func(a, b CompletedCommand) int {
		switch {
		case a.StartTime < b.StartTime:
			return -1
		case a.StartTime > b.StartTime:
			return 1
		default:
			return 0
		}
	})
	stats := c.stats

	c.active = make(map[int]*record)
	c.replaced = make(map[int]*record)
	c.completed = nil
	c.stats = Stats{}

	return completed, stats
}

// Parse correlates the process trace log at logPath. Bad lines are logged
// and skipped; only a failure to open or read the file is returned.
func Parse(ctx context.Context, logPath string, opts Options) ([]CompletedCommand, Stats, error) {
	c := NewCorrelator(opts)

	err := linereader.ReadFile(ctx, logPath, func(lineNo int, line string, err error) {
		if err != nil {
			c.stats.Malformed++
			c.logger.Warn("skipping process event", "line", lineNo, "error", err)
			return
		}
		if err := c.Feed([]byte(line)); err != nil {
			c.logger.Warn("skipping process event", "line", lineNo, "error", err)
		}
	})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("parsing process events: %w", err)
	}

	completed, stats := c.Finish()
	c.logger.Debug("parsed process events",
		"path", logPath,
		"exec", stats.Exec,
		"exit", stats.Exit,
		"unknown", stats.Unknown,
		"malformed", stats.Malformed,
		"ignored", stats.Ignored,
		"dropped", stats.Dropped,
		"completed", len(completed),
	)
	return completed, stats, nil
}
