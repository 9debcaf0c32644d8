package shared

import "time"

// Clock supplies the current time. Services resolve "today" through it so
// audit dates are deterministic under test and respect the configured zone.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// ZoneClock is the production clock pinned to an IANA time zone.
type ZoneClock struct {
	loc *time.Location
}

// NewZoneClock builds a ZoneClock, falling back to UTC on a bad zone name.
func NewZoneClock(zone string) *ZoneClock {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	return &ZoneClock{loc: loc}
}

// Now returns the current time in the configured zone.
func (c *ZoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today returns midnight of the current day in the configured zone.
func (c *ZoneClock) Today() time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
}

// FixedClock pins time for tests.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

func (c FixedClock) Today() time.Time {
	return time.Date(c.At.Year(), c.At.Month(), c.At.Day(), 0, 0, 0, 0, c.At.Location())
}
