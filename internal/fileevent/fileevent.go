// Package fileevent parses file-access trace logs.
//
// Each line of the log is one JSON object emitted by the file tracer when a
// process opens a file. Relative file names are resolved against the
// process working directory at the time of the open, so every parsed event
// carries an absolute path. Events are returned sorted by time.
package fileevent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/mrzor/ci-telemetry/internal/linereader"
)

// FileEvent is a single file open observed by the tracer.
type FileEvent struct {
	Time     int64  `json:"time"`
	ProcName string `json:"procName"`
	UID      int    `json:"uid"`
	PID      int    `json:"pid"`
	PPID     int    `json:"ppid"`
	PwdDepth int    `json:"pwdDepth"`
	Pwd      string `json:"pwd"`
	FileName string `json:"fileName"`
	Flags    int    `json:"flags"`
	Mode     int    `json:"mode"`
}

// ErrMalformed marks a line that is not a usable file event.
var ErrMalformed = errors.New("malformed file event")

// wireEvent shadows the required fields so their absence can be told
// apart from an empty value.
type wireEvent struct {
	FileEvent
	Pwd      *string `json:"pwd"`
	FileName *string `json:"fileName"`
}

// ParseLine decodes one log line and resolves its file name.
// pwd and fileName are required and must resolve to an absolute path.
// Unknown JSON fields are ignored.
func ParseLine(line []byte) (FileEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return FileEvent{}, fmt.Errorf("%w: decoding file event: %v", ErrMalformed, err)
	}
	if w.FileName == nil || *w.FileName == "" {
		return FileEvent{}, fmt.Errorf("%w: missing fileName", ErrMalformed)
	}
	if w.Pwd == nil {
		return FileEvent{}, fmt.Errorf("%w: missing pwd", ErrMalformed)
	}

	ev := w.FileEvent
	ev.Pwd = *w.Pwd
	ev.FileName = resolve(ev.Pwd, *w.FileName)
	if !strings.HasPrefix(ev.FileName, "/") {
		return FileEvent{}, fmt.Errorf("%w: %q does not resolve to an absolute path", ErrMalformed, *w.FileName)
	}
	return ev, nil
}

// resolve joins a relative name onto pwd. Trace paths are always POSIX.
func resolve(pwd, name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return path.Join(pwd, name)
}

// Parse reads the log at logPath and returns its events sorted by time.
// Lines that fail to decode are logged and skipped. Only a failure to
// open or read the file is returned.
func Parse(ctx context.Context, logPath string, logger *slog.Logger) ([]FileEvent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var events []FileEvent
	skipped := 0
	err := linereader.ReadFile(ctx, logPath, func(lineNo int, line string, err error) {
		var ev FileEvent
		if err == nil {
			ev, err = ParseLine([]byte(line))
		}
		if err != nil {
			skipped++
			logger.Warn("skipping file event", "line", lineNo, "error", err)
			return
		}
		events = append(events, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("parsing file events: %w", err)
	}

	SortByTime(events)

	logger.Debug("parsed file events", "path", logPath, "events", len(events), "skipped", skipped)
	return events, nil
}

// SortByTime orders events by ascending time, keeping input order on ties.
func SortByTime(events []FileEvent) {
	slices.SortStableFunc(events, func(a, b FileEvent) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		default:
			return 0
		}
	})
}
