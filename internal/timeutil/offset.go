// Package timeutil resolves the UTC offset emlop renders dates with, and
// parses/formats the dates and durations that flow through the rest of
// the core.
package timeutil

import (
	"log/slog"
	"time"
)

// GetOffset resolves the location used to render dates. When utc is true
// (or local-offset discovery fails) it returns time.UTC. This must be
// called once, before any worker goroutine is spawned: querying the local
// offset from multiple goroutines is not guaranteed reliable on every
// platform.
func GetOffset(utc bool) *time.Location {
	if utc {
		return time.UTC
	}
	now := time.Now()
	name, offset := now.Zone()
	if name == "" && offset == 0 {
		slog.Warn("falling back to UTC: local offset unavailable")
		return time.UTC
	}
	return time.FixedZone(name, offset)
}
