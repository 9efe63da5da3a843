package accessrank

import (
	"testing"

	"github.com/mrzor/ci-telemetry/internal/fileevent"
	"github.com/stretchr/testify/assert"
)

const (
	oRdonly    = 0x0
	oWronly    = 0x1
	oRdwr      = 0x2
	oCloexec   = 0o2000000
	oDirectory = 0o200000
)

func read(proc, name string) fileevent.FileEvent {
	return fileevent.FileEvent{ProcName: proc, FileName: name, Flags: oRdonly | oCloexec}
}

func TestRank_OrdersByCount(t *testing.T) {
	events := []fileevent.FileEvent{
		read("go", "/work/b"),
		read("go", "/work/a"),
		read("go", "/work/a"),
		read("go", "/work/a"),
	}

	got := Rank(events, Options{Workspace: "/work"})

	assert.Equal(t, []PathCount{{"/work/a", 3}, {"/work/b", 1}}, got)
}

func TestRank_TiesKeepEncounterOrder(t *testing.T) {
	events := []fileevent.FileEvent{
		read("go", "/work/z"),
		read("go", "/work/y"),
		read("go", "/work/x"),
		read("go", "/work/y"),
		read("go", "/work/z"),
	}

	got := Rank(events, Options{Workspace: "/work"})

	assert.Equal(t, []PathCount{{"/work/z", 2}, {"/work/y", 2}, {"/work/x", 1}}, got)
}

func TestRank_Exclusions(t *testing.T) {
	events := []fileevent.FileEvent{
		read("go", "/work/a"),
		read("go", "/work/a"),
		read("go", "/work/a"),
		read("go", "/work/b"),
		{ProcName: "go", FileName: "/work/c", Flags: oRdonly | oDirectory},
		read("git", "/work/d"),
		{ProcName: "go", FileName: "/work/e", Flags: oWronly},
		{ProcName: "go", FileName: "/work/f", Flags: oRdwr},
		read("go", "/etc/passwd"),
	}

	got := Rank(events, Options{Workspace: "/work"})

	assert.Equal(t, []PathCount{{"/work/a", 3}, {"/work/b", 1}}, got)
}

func TestRank_Limit(t *testing.T) {
	events := []fileevent.FileEvent{
		read("go", "/work/a"),
		read("go", "/work/a"),
		read("go", "/work/b"),
		read("go", "/work/c"),
	}

	got := Rank(events, Options{Workspace: "/work", Limit: 2})

	assert.Equal(t, []PathCount{{"/work/a", 2}, {"/work/b", 1}}, got)
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil, Options{Workspace: "/work"}))
}

func TestIgnored(t *testing.T) {
	tests := []struct {
		name string
		ev   fileevent.FileEvent
		want bool
	}{
		{"plain read", read("make", "/work/Makefile"), false},
		{"git", read("git", "/work/.git/HEAD"), true},
		{"outside workspace", read("make", "/usr/include/stdio.h"), true},
		{"sibling sharing prefix", read("make", "/workspace/Makefile"), true},
		{"workspace root", read("make", "/work"), false},
		{"directory", fileevent.FileEvent{ProcName: "ls", FileName: "/work", Flags: oDirectory}, true},
		{"write only", fileevent.FileEvent{ProcName: "cc", FileName: "/work/a.o", Flags: oWronly}, true},
		{"read write", fileevent.FileEvent{ProcName: "cc", FileName: "/work/a.o", Flags: oRdwr}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ignored(tt.ev, "/work"))
			assert.Equal(t, tt.want, Ignored(tt.ev, "/work/"), "trailing slash")
		})
	}
}

func TestIgnored_EmptyWorkspace(t *testing.T) {
	assert.False(t, Ignored(read("make", "/usr/include/stdio.h"), ""))
	assert.False(t, Ignored(read("make", "/usr/include/stdio.h"), "/"))
}
