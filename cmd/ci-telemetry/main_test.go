package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrzor/ci-telemetry/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	procLog = filepath.Join("..", "..", "internal", "eventprocessor", "testdata", "proc-events.log")
	fileLog = filepath.Join("..", "..", "internal", "eventprocessor", "testdata", "file-events.log")
)

func execute(t *testing.T, environ map[string]string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(environ)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestReport_JSONFromFlags(t *testing.T) {
	stdout, _, err := execute(t, map[string]string{},
		"report",
		"--proc-events", procLog,
		"--file-events", fileLog,
		"--workspace", "/work/app",
		"--top", "1",
		"--format", "json",
	)
	require.NoError(t, err)

	var got struct {
		Commands []struct {
			Name string `json:"name"`
		} `json:"commands"`
		FileAccess []struct {
			Path  string `json:"path"`
			Count int    `json:"count"`
		} `json:"fileAccess"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Len(t, got.Commands, 5)
	require.Len(t, got.FileAccess, 1)
	assert.Equal(t, "/work/app/main.go", got.FileAccess[0].Path)
	assert.Equal(t, 3, got.FileAccess[0].Count)
}

func TestReport_MarkdownFromEnvironment(t *testing.T) {
	stdout, _, err := execute(t, map[string]string{
		"PROC_TRACE_EVENTS_FILE":  procLog,
		"PROC_TRACE_MIN_DURATION": "1000",
		"GITHUB_JOB":              "build",
	}, "report")
	require.NoError(t, err)

	assert.Contains(t, stdout, "# build\n")
	assert.Contains(t, stdout, "    make :crit, 1700000000000, 1700000003100\n")
	assert.Contains(t, stdout, "    go :crit, 1700000000020, 1700000002520\n")
	assert.NotContains(t, stdout, "compile")
	assert.NotContains(t, stdout, "## File Access")
}

func TestReport_FlagOverridesEnvironment(t *testing.T) {
	stdout, _, err := execute(t, map[string]string{
		"PROC_TRACE_EVENTS_FILE":  procLog,
		"PROC_TRACE_MIN_DURATION": "1000",
	}, "report", "--min-duration", "-1", "--trace-sys-procs")
	require.NoError(t, err)

	assert.Contains(t, stdout, "compile")
	assert.Contains(t, stdout, "| sh |")
}

func TestReport_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")

	stdout, _, err := execute(t, map[string]string{}, "report", "--proc-events", procLog, "-o", path)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Process Trace")
}

func TestReport_LogsSkippedLines(t *testing.T) {
	_, stderr, err := execute(t, map[string]string{}, "report", "--proc-events", procLog)
	require.NoError(t, err)

	assert.Contains(t, stderr, "skipping process event")
	assert.Contains(t, stderr, "line=5")
}

func TestReport_NoInput(t *testing.T) {
	_, _, err := execute(t, map[string]string{}, "report")

	assert.ErrorIs(t, err, config.ErrNoInput)
}

func TestReport_InvalidAttribute(t *testing.T) {
	_, _, err := execute(t, map[string]string{}, "report", "--proc-events", procLog, "-a", "novalue")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NAME=EXPR")
}

func TestReport_MissingLog(t *testing.T) {
	_, _, err := execute(t, map[string]string{}, "report", "--proc-events", filepath.Join(t.TempDir(), "none.log"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, nil, "version")

	require.NoError(t, err)
	assert.Equal(t, "ci-telemetry dev (commit: unknown, built: unknown)\n", stdout)
}
