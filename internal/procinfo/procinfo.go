// Package procinfo inspects running processes. The predict command uses
// it to find the start time of the earliest running emerge, which decides
// whether a pending package counts as in progress; the package list
// itself comes from pretend output or the resume list.
package procinfo

import "time"

// Kind classifies a process for the purposes of "is this an emerge
// build": the interpreter wrapping the emerge script is not the process
// whose argv we want to display.
type Kind int

const (
	KindOther Kind = iota
	KindEmerge
	KindPython
)

// Proc is the subset of process state emlop needs: enough to find
// currently-running emerge invocations and their start time. Build
// tmpdirs are not stored here; GetAll reports them through its tmpdirs
// argument.
type Proc struct {
	Kind    Kind
	Cmdline string
	Start   int64
	PID     int
	PPID    int
}

// ClockTicks returns jiffies per second. On Linux it is overridable via
// CLK_TCK for tests, since the real value is a libc sysconf constant Go
// has no portable accessor for; elsewhere it is always 100.
func ClockTicks() int64 {
	return clockTicks()
}

func epochNow() int64 {
	return time.Now().Unix()
}
