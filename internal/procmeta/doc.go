// Package procmeta indexes values by process ID and lifetime.
//
// PIDs are reused over a CI job, so a PID alone does not name a process.
// Manager keeps every lifetime recorded for a PID and answers which one
// was alive at a given instant.
//
// Queries (read-only):
//   - Lookup(pid, at) - Value of the latest lifetime covering at
//
// Commands (mutations):
//   - Add(lifetime, value) - Record a lifetime
//
// Thread-safe with RWMutex for concurrent access.
package procmeta
