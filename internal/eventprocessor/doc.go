// Package eventprocessor runs the trace parsers and hands their results to
// the output handlers.
//
// Architecture:
//
//	┌────────────────────┐        ┌────────────────────┐
//	│ process events log │        │  file events log   │
//	└─────────┬──────────┘        └─────────┬──────────┘
//	          │ goroutine                   │ goroutine
//	          ▼                             ▼
//	┌────────────────────┐        ┌────────────────────┐
//	│ proctrace          │        │ fileevent          │
//	│ - EXEC/EXIT pairs  │        │ - resolve paths    │
//	│ - PID reuse        │        │ - sort by time     │
//	│ - filters          │        └─────────┬──────────┘
//	└─────────┬──────────┘                  ▼
//	          │                   ┌────────────────────┐
//	          │                   │ accessrank         │
//	          │                   │ - workspace reads  │
//	          │                   └─────────┬──────────┘
//	          └──────────────┬──────────────┘
//	                         ▼
//	                      Result ──→ ResultHandler (markdown, json, spans)
//
// The two parsers share no state and run concurrently. A handler failure
// does not stop the remaining handlers.
package eventprocessor
