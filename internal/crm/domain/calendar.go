package domain

import "time"

// Calendar defines "today" in the company time zone.
type Calendar struct {
	now func() time.Time
	loc *time.Location
}

// NewCalendar returns a calendar for loc. A nil loc means UTC and a nil now
// means time.Now.
func NewCalendar(loc *time.Location, now func() time.Time) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Calendar{now: now, loc: loc}
}

// Now returns the current instant in the calendar location.
func (c Calendar) Now() time.Time {
	if c.now == nil {
		return time.Now().In(c.location())
	}
	return c.now().In(c.location())
}

// Location returns the calendar time zone.
func (c Calendar) Location() *time.Location {
	return c.location()
}

func (c Calendar) location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// StartOfDay returns local midnight of the day containing t.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	local := t.In(c.location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.location())
}

// Today returns local midnight of the current day.
func (c Calendar) Today() time.Time {
	return c.StartOfDay(c.Now())
}

// AddDays moves t by whole calendar days, keeping wall-clock time across DST.
func (c Calendar) AddDays(t time.Time, days int) time.Time {
	return t.In(c.location()).AddDate(0, 0, days)
}

// SameDay reports whether a and b fall on the same local date.
func (c Calendar) SameDay(a, b time.Time) bool {
	return c.StartOfDay(a).Equal(c.StartOfDay(b))
}

// Window is a half-open time range [From, To). A zero From is unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// OverdueWindow covers everything scheduled before today.
func (c Calendar) OverdueWindow() Window {
	return Window{To: c.Today()}
}

// TodayWindow covers the current local day.
func (c Calendar) TodayWindow() Window {
	today := c.Today()
	return Window{From: today, To: c.AddDays(today, 1)}
}

// UpcomingWindow covers days whole days starting tomorrow.
func (c Calendar) UpcomingWindow(days int) Window {
	tomorrow := c.AddDays(c.Today(), 1)
	return Window{From: tomorrow, To: c.AddDays(tomorrow, days)}
}
