package fileevent

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "file-events.log")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return p
}

func TestParseLine_RelativePathResolved(t *testing.T) {
	ev, err := ParseLine([]byte(`{"time":1,"procName":"go","pwd":"/work","fileName":"rel/x.txt","flags":0}`))

	require.NoError(t, err)
	assert.Equal(t, "/work/rel/x.txt", ev.FileName)
	assert.Equal(t, "go", ev.ProcName)
}

func TestParseLine_AbsolutePathUnchanged(t *testing.T) {
	ev, err := ParseLine([]byte(`{"pwd":"/work","fileName":"/abs/x.txt"}`))

	require.NoError(t, err)
	assert.Equal(t, "/abs/x.txt", ev.FileName)
}

func TestParseLine_DotSegmentsCleaned(t *testing.T) {
	ev, err := ParseLine([]byte(`{"pwd":"/work/sub","fileName":"../go.mod"}`))

	require.NoError(t, err)
	assert.Equal(t, "/work/go.mod", ev.FileName)
}

func TestParseLine_AllFields(t *testing.T) {
	ev, err := ParseLine([]byte(`{"time":42,"procName":"node","uid":1001,"pid":7,"ppid":3,"pwdDepth":2,"pwd":"/w","fileName":"a","flags":32768,"mode":420,"extra":"ignored"}`))

	require.NoError(t, err)
	assert.Equal(t, FileEvent{
		Time:     42,
		ProcName: "node",
		UID:      1001,
		PID:      7,
		PPID:     3,
		PwdDepth: 2,
		Pwd:      "/w",
		FileName: "/w/a",
		Flags:    32768,
		Mode:     420,
	}, ev)
}

func TestParseLine_Invalid(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"truncated json", `{"fileName":`, "decoding file event"},
		{"empty object", `{}`, "missing fileName"},
		{"missing fileName", `{"time":1,"pwd":"/work"}`, "missing fileName"},
		{"empty fileName", `{"pwd":"/work","fileName":""}`, "missing fileName"},
		{"missing pwd", `{"time":1,"fileName":"main.go"}`, "missing pwd"},
		{"relative without pwd", `{"pwd":"","fileName":"main.go"}`, "absolute path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine([]byte(tt.line))

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLine_AbsoluteNameWithoutPwd(t *testing.T) {
	ev, err := ParseLine([]byte(`{"pwd":"","fileName":"/etc/hosts"}`))

	require.NoError(t, err)
	assert.Equal(t, "/etc/hosts", ev.FileName)
}

func TestParse_SortsByTime(t *testing.T) {
	p := writeLog(t,
		`{"time":30,"pwd":"/w","fileName":"c"}`,
		`{"time":10,"pwd":"/w","fileName":"a"}`,
		`{"time":20,"pwd":"/w","fileName":"b1"}`,
		`{"time":20,"pwd":"/w","fileName":"b2"}`,
	)

	events, err := Parse(context.Background(), p, nil)

	require.NoError(t, err)
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.FileName
	}
	assert.Equal(t, []string{"/w/a", "/w/b1", "/w/b2", "/w/c"}, names)
}

func TestParse_MalformedLineSkipped(t *testing.T) {
	p := writeLog(t,
		`{"time":1,"pwd":"/w","fileName":"a"}`,
		`not json at all`,
		`{"time":2,"pwd":"/w","fileName":"b"}`,
	)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	events, err := Parse(context.Background(), p, logger)

	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Contains(t, logs.String(), "skipping file event")
	assert.Contains(t, logs.String(), "line=2")
}

func TestParse_IncompleteEventsSkipped(t *testing.T) {
	p := writeLog(t,
		`{"time":1,"pwd":"/w","fileName":"a"}`,
		`{}`,
		`{"time":2,"fileName":"b"}`,
		`{"time":3,"pwd":"/w"}`,
		`{"time":4,"pwd":"/w","fileName":"c"}`,
	)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	events, err := Parse(context.Background(), p, logger)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "/w/a", events[0].FileName)
	assert.Equal(t, "/w/c", events[1].FileName)
	for _, line := range []string{"line=2", "line=3", "line=4"} {
		assert.Contains(t, logs.String(), line)
	}
}

func TestParse_OverlongLineSkipped(t *testing.T) {
	p := writeLog(t,
		`{"time":1,"pwd":"/w","fileName":"a"}`,
		`{"time":2,"pwd":"/w","fileName":"`+strings.Repeat("x", 17<<20)+`"}`,
		`{"time":3,"pwd":"/w","fileName":"b"}`,
	)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	events, err := Parse(context.Background(), p, logger)

	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Contains(t, logs.String(), "line=2")
	assert.Contains(t, logs.String(), "line exceeds maximum size")
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse(context.Background(), filepath.Join(t.TempDir(), "missing.log"), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
