package proctrace

// systemProcesses are short-lived shell helpers that flood CI traces without
// telling anything about the build. They are skipped unless system process
// tracing is enabled.
var systemProcesses = map[string]struct{}{
	"awk":      {},
	"basename": {},
	"cat":      {},
	"cut":      {},
	"date":     {},
	"dirname":  {},
	"env":      {},
	"expr":     {},
	"grep":     {},
	"head":     {},
	"id":       {},
	"ls":       {},
	"mkdir":    {},
	"ps":       {},
	"readlink": {},
	"rm":       {},
	"sed":      {},
	"sh":       {},
	"sleep":    {},
	"sort":     {},
	"tail":     {},
	"tr":       {},
	"uname":    {},
	"wc":       {},
	"which":    {},
	"whoami":   {},
}

// IsSystemProcess reports whether name is on the system process ignore list.
func IsSystemProcess(name string) bool {
	_, ok := systemProcesses[name]
	return ok
}
