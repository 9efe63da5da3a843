// Package attributes computes extra span attributes for completed commands.
//
// Custom attributes are expr-lang expressions evaluated against a command:
//
//	name, fileName, cmdline  string
//	args                     []string
//	pid, uid, exitCode       int
//	ppid                     string
//	startTime, duration      int64 (milliseconds)
//
// A map result expands into one attribute per key (name.key).
//
// Trace and parent span IDs taken from the environment are validated here.
// An invalid trace ID is hashed with SHA-256 into a valid one, so that any
// stable string (a CI run ID, for example) groups the spans of several jobs
// under one trace. An invalid parent ID results in no parent.
package attributes
