package timezone

import (
	"log/slog"
	"time"
)

// vendor sites each report their own IANA timezone in site settings,
// so there is no single correct process-wide location. UTC is the
// fallback whenever a site's timezone is missing or unparseable.
var Fallback = time.UTC

// Resolve parses an IANA timezone name, falling back to UTC since a
// bad vendor timezone should never take down a sync cycle.
func Resolve(name string) *time.Location {
	if name == "" {
		return Fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown site timezone, using UTC", "timezone", name)
		return Fallback
	}
	return loc
}

func Now(loc *time.Location) time.Time {
	if loc == nil {
		loc = Fallback
	}
	return time.Now().In(loc)
}

// Date formats a time as the calendar-date key used by vendor endpoints
// and the schedule map.
func Date(t time.Time) string {
	return t.Format("2006-01-02")
}
