package procmeta

// Lifetime is the interval a process held its PID, in milliseconds.
type Lifetime struct {
	PID   int
	Start int64
	End   int64
}

// Covers reports whether t falls within the lifetime, bounds included.
func (l Lifetime) Covers(t int64) bool {
	return l.Start <= t && t <= l.End
}
