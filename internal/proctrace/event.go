package proctrace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Event kinds written by the process tracer.
const (
	EventExec = "EXEC"
	EventExit = "EXIT"
)

// CompletedCommand is an EXEC record merged with the EXIT that ended it.
type CompletedCommand struct {
	TS        string   `json:"ts"`
	Event     string   `json:"event"`
	Name      string   `json:"name"`
	UID       int      `json:"uid"`
	PID       int      `json:"pid"`
	PPID      string   `json:"ppid"`
	StartTime int64    `json:"startTime"`
	FileName  string   `json:"fileName"`
	Args      []string `json:"args"`
	Duration  int64    `json:"duration"`
	ExitCode  int      `json:"exitCode"`
}

// EndTime is the start time plus the duration, in the same unit (milliseconds).
func (c CompletedCommand) EndTime() int64 {
	return c.StartTime + c.Duration
}

// looseString decodes a JSON string or number into its textual form.
// Tracers disagree on whether ppid and ts are quoted.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = looseString(num.String())
	return nil
}

// record is a partially known process event. A nil field was absent on
// the wire and is still unknown.
type record struct {
	Event     *string      `json:"event"`
	PID       *int         `json:"pid"`
	TS        *looseString `json:"ts"`
	Name      *string      `json:"name"`
	UID       *int         `json:"uid"`
	PPID      *looseString `json:"ppid"`
	StartTime *int64       `json:"startTime"`
	FileName  *string      `json:"fileName"`
	Args      []string     `json:"args"`
	Duration  *int64       `json:"duration"`
	ExitCode  *int         `json:"exitCode"`
}

// decodeRecord parses one log line. The event kind and pid are required.
func decodeRecord(line []byte) (*record, error) {
	var r record
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if r.Event == nil {
		return nil, fmt.Errorf("%w: missing event", ErrMalformed)
	}
	if r.PID == nil {
		return nil, fmt.Errorf("%w: missing pid", ErrMalformed)
	}
	return &r, nil
}

// fillFrom copies every field of other that r does not have yet.
func (r *record) fillFrom(other *record) {
	if r.Event == nil {
		r.Event = other.Event
	}
	if r.PID == nil {
		r.PID = other.PID
	}
	if r.TS == nil {
		r.TS = other.TS
	}
	if r.Name == nil {
		r.Name = other.Name
	}
	if r.UID == nil {
		r.UID = other.UID
	}
	if r.PPID == nil {
		r.PPID = other.PPID
	}
	if r.StartTime == nil {
		r.StartTime = other.StartTime
	}
	if r.FileName == nil {
		r.FileName = other.FileName
	}
	if r.Args == nil {
		r.Args = other.Args
	}
	if r.Duration == nil {
		r.Duration = other.Duration
	}
	if r.ExitCode == nil {
		r.ExitCode = other.ExitCode
	}
}

func (r *record) name() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}

func (r *record) startTime() int64 {
	return deref(r.StartTime)
}

func (r *record) duration() int64 {
	return deref(r.Duration)
}

// command converts the record, unknown fields becoming zero values.
func (r *record) command() CompletedCommand {
	return CompletedCommand{
		TS:        string(deref(r.TS)),
		Event:     deref(r.Event),
		Name:      deref(r.Name),
		UID:       deref(r.UID),
		PID:       deref(r.PID),
		PPID:      string(deref(r.PPID)),
		StartTime: deref(r.StartTime),
		FileName:  deref(r.FileName),
		Args:      slices.Clone(r.Args),
		Duration:  deref(r.Duration),
		ExitCode:  deref(r.ExitCode),
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
