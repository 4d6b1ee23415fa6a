// Package clock provides the wall clock and the "yesterday in Tokyo" helper
// used to pick the default target date.
package clock

import (
	"time"

	"mext-relay/internal/pipeline"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System implements Clock using time.Now.
type System struct{}

// Now returns the current time in UTC.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant. Used by tests and -date overrides.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Yesterday returns the calendar date one day before now, as seen in loc.
func Yesterday(now time.Time, loc *time.Location) pipeline.CalendarDate {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()
	return pipeline.DateOf(time.Date(y, m, d-1, 0, 0, 0, 0, loc))
}
