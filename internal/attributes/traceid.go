package attributes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDFromString turns s into a trace ID.
// Returns the trace ID and any warnings to attach to the spans.
// An empty s yields the zero trace ID; the SDK then generates a random one.
func TraceIDFromString(s string) (trace.TraceID, []attribute.KeyValue) {
	s = strings.TrimSpace(s)
	if s == "" {
		return trace.TraceID{}, nil
	}

	if len(s) == 32 {
		if traceID, err := trace.TraceIDFromHex(strings.ToLower(s)); err == nil {
			return traceID, nil
		}
	}

	// Not a trace ID - hash it with SHA-256 and use the first 16 bytes
	hash := sha256.Sum256([]byte(s))
	var traceID trace.TraceID
	copy(traceID[:], hash[:16])

	warnings := []attribute.KeyValue{
		attribute.String("_trace_id_input", s),
		attribute.String("_trace_id_invalid_warning", fmt.Sprintf("%q is not a valid 32-char hex trace ID, used SHA-256 hash %s instead", s, hex.EncodeToString(hash[:16]))),
	}
	return traceID, warnings
}

// ParentIDFromString turns s into a parent span ID.
// If s is empty or invalid, returns the zero span ID (no parent).
func ParentIDFromString(s string) (trace.SpanID, []attribute.KeyValue) {
	s = strings.TrimSpace(s)
	if s == "" {
		return trace.SpanID{}, nil
	}

	if len(s) == 16 {
		if spanID, err := trace.SpanIDFromHex(strings.ToLower(s)); err == nil {
			return spanID, nil
		}
	}

	warnings := []attribute.KeyValue{
		attribute.String("_parent_id_input", s),
		attribute.String("_parent_id_invalid_warning", fmt.Sprintf("%q is not a valid 16-char hex span ID, using null parent ID instead", s)),
	}
	return trace.SpanID{}, warnings
}
