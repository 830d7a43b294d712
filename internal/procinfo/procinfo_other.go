//go:build !linux

package procinfo

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

func clockTicks() int64 { return 100 }

// GetAll enumerates processes via gopsutil on platforms without a /proc
// filesystem to hand-parse. tmpdirs is never populated here: gopsutil
// exposes no portable way to walk a process's open file descriptors, so
// build-tmpdir discovery (Linux-only in the upstream tool too) is simply
// unavailable outside Linux.
func GetAll(tmpdirs *[]string) (map[int]Proc, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	out := make(map[int]Proc, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		ppid, _ := p.Ppid()
		createMs, err := p.CreateTime()
		if err != nil {
			continue
		}
		args, _ := p.CmdlineSlice()
		kind := KindOther
		switch {
		case name == "emerge":
			kind = KindEmerge
		case strings.HasPrefix(name, "python"):
			kind = KindPython
		}
		out[int(p.Pid)] = Proc{
			Kind:    kind,
			Cmdline: strings.Join(args, " "),
			Start:   createMs / 1000,
			PID:     int(p.Pid),
			PPID:    int(ppid),
		}
	}
	return out, nil
}
