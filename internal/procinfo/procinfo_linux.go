//go:build linux

package procinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

func clockTicks() int64 {
	if v, err := strconv.ParseInt(os.Getenv("CLK_TCK"), 10, 64); err == nil && v > 0 {
		return v
	}
	return 100
}

// wrapperRE strips the interpreter + script path portage uses to invoke
// emerge under a versioned python (e.g. "/usr/bin/python3.12
// /usr/lib/portage/python3.12/emerge"), leaving just the emerge argv.
var wrapperRE = regexp.MustCompile(`^[a-z/-]+(python|bash|sandbox)[0-9.]* [a-z/-]+python[0-9.]*/`)

// GetAll enumerates every process under /proc, returning a pid->Proc map
// and appending any build tmpdirs discovered along the way (most likely
// candidate first). A single unreadable /proc/<pid> entry (the process
// exited mid-scan) is skipped rather than failing the whole scan.
func GetAll(tmpdirs *[]string) (map[int]Proc, error) {
	clocktick := ClockTicks()
	timeRef, err := timeReference(clocktick)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("listing /proc: %w", err)
	}
	out := make(map[int]Proc, len(entries))
	for _, e := range entries {
		p, ok := getProc(e.Name(), clocktick, timeRef, tmpdirs)
		if ok {
			out[p.PID] = p
		}
	}
	return out, nil
}

func timeReference(clocktick int64) (int64, error) {
	b, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, fmt.Errorf("reading /proc/uptime: %w", err)
	}
	fields := strings.Fields(string(b))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty /proc/uptime")
	}
	whole, _, _ := strings.Cut(fields[0], ".")
	uptime, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing /proc/uptime: %w", err)
	}
	return epochNow() - uptime, nil
}

func getProc(name string, clocktick, timeRef int64, tmpdirs *[]string) (Proc, bool) {
	pid, err := strconv.Atoi(name)
	if err != nil {
		return Proc{}, false
	}
	dir := filepath.Join("/proc", name)
	stat, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return Proc{}, false
	}
	s := string(stat)
	open, close := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || close < 0 || close < open {
		return Proc{}, false
	}
	comm := s[open+1 : close]
	var kind Kind
	switch {
	case comm == "emerge":
		extendTmpdirs(dir, tmpdirs)
		kind = KindEmerge
	case strings.HasPrefix(comm, "python"):
		kind = KindPython
	default:
		kind = KindOther
	}
	fields := strings.Fields(s[close+1:])
	if len(fields) < 20 {
		return Proc{}, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return Proc{}, false
	}
	startTicks, err := strconv.ParseInt(fields[19], 10, 64)
	if err != nil {
		return Proc{}, false
	}
	cmdline, _ := os.ReadFile(filepath.Join(dir, "cmdline"))
	return Proc{
		Kind:    kind,
		Cmdline: normalizeCmdline(string(cmdline)),
		Start:   timeRef + startTicks/clocktick,
		PID:     pid,
		PPID:    ppid,
	}, true
}

func normalizeCmdline(raw string) string {
	s := strings.Trim(strings.ReplaceAll(raw, "\x00", " "), " ")
	return wrapperRE.ReplaceAllString(s, "")
}

// extendTmpdirs looks for an open "build.log" fd among proc's file
// descriptors and, if found, registers the directory five levels above it
// (portage's tmpdir layout is
// <tmpdir>/portage/<category>/<pkg-ver>/temp/build.log) as a tmpdir
// candidate, most-recently-found first.
func extendTmpdirs(procDir string, tmpdirs *[]string) {
	entries, err := os.ReadDir(filepath.Join(procDir, "fd"))
	if err != nil {
		return
	}
	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(procDir, "fd", e.Name()))
		if err != nil || filepath.Base(target) != "build.log" {
			continue
		}
		d := target
		ok := true
		for i := 0; i < 5; i++ {
			parent := filepath.Dir(d)
			if parent == d {
				ok = false
				break
			}
			d = parent
		}
		if !ok {
			continue
		}
		already := false
		for _, t := range *tmpdirs {
			if t == d {
				already = true
				break
			}
		}
		if !already {
			*tmpdirs = append([]string{d}, *tmpdirs...)
		}
	}
}
