// Package proctrace rebuilds completed command executions from a process
// trace log.
//
// The tracer writes one JSON object per line: an EXEC when a process image
// starts and an EXIT when it ends. The Correlator pairs them by PID.
// Operating systems recycle PIDs quickly, so a second EXEC can arrive for a
// PID whose first process has not been seen exiting. The displaced record
// is parked in the replaced table and completed by the next EXIT for that
// PID. Its end is taken to be the end of the process that reused the PID.
//
// Per-PID state machine:
//
//	            EXEC
//	┌──────┐ ─────────► ┌────────┐
//	│ none │            │ active │ ◄─┐
//	└──────┘ ◄───────── └───┬────┘   │ EXEC (old active moves
//	   ▲        EXIT        │        │       to replaced)
//	   │   emit active      └────────┘
//	   │
//	   │   EXIT with replaced present:
//	   │     replaced.duration = active.start + active.duration - replaced.start
//	   └──── emit replaced, then active
//
// A replaced record whose displacer never completes, and any record still
// active at end of stream, is dropped: a command is never built from a
// single observed boundary. An EXIT for a PID with no active record
// completes nothing.
//
// Fields present on both records prefer the EXEC value; the EXIT only fills
// what the EXEC lacked (duration, exitCode). When one EXIT completes both an
// active and a replaced record, both carry that EXIT's exit code.
package proctrace
