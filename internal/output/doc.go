// Package output publishes an eventprocessor.Result.
//
// Every type here implements eventprocessor.ResultHandler:
//   - MarkdownWriter renders a job summary: a mermaid gantt chart of the
//     commands, a command table and the most accessed workspace files.
//   - JSONWriter writes the same data as one JSON document.
//   - SpanExporter turns each command into an OpenTelemetry span under a
//     single job span, nesting children under their parent process.
//
// Writers only format; parsing and ranking happen in eventprocessor.
package output
