package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mrzor/ci-telemetry/internal/accessrank"
	"github.com/mrzor/ci-telemetry/internal/eventprocessor"
	"github.com/mrzor/ci-telemetry/internal/proctrace"
)

// JSONWriter writes the result as an indented JSON document.
type JSONWriter struct {
	W io.Writer
}

type jsonReport struct {
	Commands   []proctrace.CompletedCommand `json:"commands"`
	FileAccess []accessrank.PathCount       `json:"fileAccess"`
	Stats      *proctrace.Stats             `json:"stats,omitempty"`
}

// HandleResult implements eventprocessor.ResultHandler.
func (j *JSONWriter) HandleResult(_ context.Context, res *eventprocessor.Result) error {
	report := jsonReport{
		Commands:   res.Commands,
		FileAccess: res.FileAccess,
	}
	// Untraced sections are written as empty arrays, not null.
	if report.Commands == nil {
		report.Commands = []proctrace.CompletedCommand{}
	}
	if report.FileAccess == nil {
		report.FileAccess = []accessrank.PathCount{}
	}
	if res.ProcessTraced {
		stats := res.ProcessStats
		report.Stats = &stats
	}

	enc := json.NewEncoder(j.W)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("writing json report: %w", err)
	}
	return nil
}
