package output

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/mrzor/ci-telemetry/internal/eventprocessor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, (&JSONWriter{W: &buf}).HandleResult(context.Background(), sampleResult()))

	var got struct {
		Commands []struct {
			Name      string   `json:"name"`
			PPID      string   `json:"ppid"`
			StartTime int64    `json:"startTime"`
			Args      []string `json:"args"`
			ExitCode  int      `json:"exitCode"`
		} `json:"commands"`
		FileAccess []struct {
			Path  string `json:"path"`
			Count int    `json:"count"`
		} `json:"fileAccess"`
		Stats map[string]int `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	require.Len(t, got.Commands, 2)
	assert.Equal(t, "make", got.Commands[0].Name)
	assert.Equal(t, "50", got.Commands[0].PPID)
	assert.Equal(t, int64(1700000000000), got.Commands[0].StartTime)
	assert.Equal(t, []string{"make", "build"}, got.Commands[0].Args)
	assert.Equal(t, 2, got.Commands[0].ExitCode)

	require.Len(t, got.FileAccess, 2)
	assert.Equal(t, "/work/app/main.go", got.FileAccess[0].Path)
	assert.Equal(t, 3, got.FileAccess[0].Count)

	assert.Equal(t, 2, got.Stats["exec"])
}

func TestJSONWriter_EmptyResult(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, (&JSONWriter{W: &buf}).HandleResult(context.Background(), &eventprocessor.Result{}))

	assert.JSONEq(t, `{"commands": [], "fileAccess": []}`, buf.String())
}
