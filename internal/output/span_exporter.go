package output

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mrzor/ci-telemetry/internal/attributes"
	"github.com/mrzor/ci-telemetry/internal/eventprocessor"
	"github.com/mrzor/ci-telemetry/internal/procmeta"
	"github.com/mrzor/ci-telemetry/internal/proctrace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	JobSpanName     = "ci.job"
	CommandSpanName = "process.exec"
)

// SpanExporter records completed commands as OpenTelemetry spans.
type SpanExporter struct {
	tracer    trace.Tracer
	evaluator *attributes.Evaluator
	jobName   string
	traceID   trace.TraceID
	parentID  trace.SpanID
	warnings  []attribute.KeyValue
}

// NewSpanExporter creates an exporter. traceID and parentID may be empty;
// values that are not valid hex IDs are handled as described by
// attributes.TraceIDFromString and attributes.ParentIDFromString. evaluator
// may be nil.
func NewSpanExporter(tracer trace.Tracer, evaluator *attributes.Evaluator, jobName, traceID, parentID string) *SpanExporter {
	tid, tidWarnings := attributes.TraceIDFromString(traceID)
	pid, pidWarnings := attributes.ParentIDFromString(parentID)

	return &SpanExporter{
		tracer:    tracer,
		evaluator: evaluator,
		jobName:   jobName,
		traceID:   tid,
		parentID:  pid,
		warnings:  append(tidWarnings, pidWarnings...),
	}
}

// HandleResult implements eventprocessor.ResultHandler.
func (s *SpanExporter) HandleResult(ctx context.Context, res *eventprocessor.Result) error {
	if !res.ProcessTraced || len(res.Commands) == 0 {
		return nil
	}

	ctx = s.rootContext(ctx)

	jobStart, jobEnd := res.Commands[0].StartTime, res.Commands[0].EndTime()
	for _, cmd := range res.Commands[1:] {
		jobStart = min(jobStart, cmd.StartTime)
		jobEnd = max(jobEnd, cmd.EndTime())
	}

	jobAttrs := []attribute.KeyValue{
		attribute.Int("ci.commands", len(res.Commands)),
		attribute.Int("ci.events.malformed", res.ProcessStats.Malformed),
		attribute.Int("ci.events.dropped", res.ProcessStats.Dropped),
	}
	if s.jobName != "" {
		jobAttrs = append(jobAttrs, attribute.String("ci.job.name", s.jobName))
	}
	jobAttrs = append(jobAttrs, s.warnings...)

	jobCtx, jobSpan := s.tracer.Start(ctx, JobSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(time.UnixMilli(jobStart)),
		trace.WithAttributes(jobAttrs...),
	)

	// Commands are sorted by start time, so a parent is exported before
	// its children.
	spans := procmeta.NewManager[context.Context]()
	failed := 0
	for i := range res.Commands {
		cmd := &res.Commands[i]

		parentCtx := jobCtx
		if ppid, err := strconv.Atoi(cmd.PPID); err == nil {
			if pctx, ok := spans.Lookup(ppid, cmd.StartTime); ok {
				parentCtx = pctx
			}
		}

		cmdCtx := s.exportCommand(parentCtx, cmd)
		spans.Add(procmeta.Lifetime{PID: cmd.PID, Start: cmd.StartTime, End: cmd.EndTime()}, cmdCtx)

		if cmd.ExitCode != 0 {
			failed++
		}
	}

	if failed > 0 {
		jobSpan.SetStatus(codes.Error, fmt.Sprintf("%d commands failed", failed))
	}
	jobSpan.End(trace.WithTimestamp(time.UnixMilli(jobEnd)))
	return nil
}

// rootContext attaches the configured trace as a remote parent.
func (s *SpanExporter) rootContext(ctx context.Context) context.Context {
	if !s.traceID.IsValid() {
		return ctx
	}

	parentID := s.parentID
	if !parentID.IsValid() {
		// A span context needs a span ID; derive a stable one from the trace.
		copy(parentID[:], s.traceID[8:])
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    s.traceID,
		SpanID:     parentID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

func (s *SpanExporter) exportCommand(ctx context.Context, cmd *proctrace.CompletedCommand) context.Context {
	attrs := []attribute.KeyValue{
		semconv.ProcessPID(cmd.PID),
		semconv.ProcessExecutableName(cmd.Name),
		semconv.ProcessExecutablePath(cmd.FileName),
		semconv.ProcessCommandArgs(cmd.Args...),
		semconv.ProcessCommandLine(strings.Join(cmd.Args, " ")),
		attribute.Int("process.owner.uid", cmd.UID),
		attribute.Int("process.exit_code", cmd.ExitCode),
	}
	if ppid, err := strconv.Atoi(cmd.PPID); err == nil {
		attrs = append(attrs, semconv.ProcessParentPID(ppid))
	}
	if s.evaluator != nil {
		attrs = append(attrs, s.evaluator.Evaluate(cmd)...)
	}

	cmdCtx, span := s.tracer.Start(ctx, CommandSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(time.UnixMilli(cmd.StartTime)),
		trace.WithAttributes(attrs...),
	)
	if cmd.ExitCode != 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("exit code %d", cmd.ExitCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(time.UnixMilli(cmd.EndTime())))

	return cmdCtx
}
