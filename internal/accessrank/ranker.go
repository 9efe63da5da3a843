// Package accessrank counts how often workspace files are read during a job.
package accessrank

import (
	"slices"
	"strings"

	"github.com/mrzor/ci-telemetry/internal/fileevent"
)

// open(2) flag bits as encoded by the Linux tracer.
const (
	accessModeMask = 0o3      // O_ACCMODE
	directoryFlag  = 0o200000 // O_DIRECTORY
)

// PathCount is one ranked entry.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Options controls which events are counted.
type Options struct {
	// Workspace is the directory a file must be in to be counted.
	Workspace string
	// Limit truncates the ranking. Zero means no limit.
	Limit int
}

// Ignored reports whether ev is excluded from counting.
func Ignored(ev fileevent.FileEvent, workspace string) bool {
	switch {
	case ev.ProcName == "git":
		return true
	case !inWorkspace(ev.FileName, workspace):
		return true
	case ev.Flags&directoryFlag != 0:
		return true
	case ev.Flags&accessModeMask != 0:
		return true
	}
	return false
}

// inWorkspace reports whether name is workspace itself or lies below it.
// An empty workspace contains every absolute path.
func inWorkspace(name, workspace string) bool {
	ws := strings.TrimRight(workspace, "/")
	return name == ws || strings.HasPrefix(name, ws+"/")
}

// Rank counts read-only accesses per path and orders them by descending
// count. Paths with equal counts keep the order they were first seen in.
func Rank(events []fileevent.FileEvent, opts Options) []PathCount {
	index := make(map[string]int)
	var ranking []PathCount

	for _, ev := range events {
		if Ignored(ev, opts.Workspace) {
			continue
		}
		i, ok := index[ev.FileName]
		if !ok {
			i = len(ranking)
			index[ev.FileName] = i
			ranking = append(ranking, PathCount{Path: ev.FileName})
		}
		ranking[i].Count++
	}

	slices.SortStableFunc(ranking, func(a, b PathCount) int {
		return b.Count - a.Count
	})

	if opts.Limit > 0 && len(ranking) > opts.Limit {
		ranking = ranking[:opts.Limit]
	}
	return ranking
}
