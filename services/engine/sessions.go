package engine

import "time"

// SessionClock maps UTC bar timestamps onto reference-timezone session
// windows. The zone comes from tzdata, not a fixed offset, so session
// boundaries hold steady when the other side of a trade relationship
// (e.g. US markets) shifts for daylight saving. Brisbane itself has no
// DST, which is exactly why it is the reference.
type SessionClock struct {
	loc        *time.Location
	dayEndMins int
}

// NewSessionClock builds a clock from a validated instrument config.
func NewSessionClock(cfg *InstrumentConfig) (*SessionClock, error) {
	loc, err := time.LoadLocation(cfg.ReferenceZone)
	if err != nil {
		return nil, &InputValidationError{Field: "reference_zone", Value: cfg.ReferenceZone, Reason: err.Error()}
	}
	end, err := parseClock(cfg.DayEnd)
	if err != nil {
		return nil, err
	}
	return &SessionClock{loc: loc, dayEndMins: end}, nil
}

// Location returns the reference timezone.
func (c *SessionClock) Location() *time.Location { return c.loc }

// TradingDay maps a UTC instant to its trading day.
func (c *SessionClock) TradingDay(utc time.Time) (Day, error) {
	if utc.IsZero() {
		return "", &InputValidationError{Field: "timestamp", Value: "0", Reason: "zero timestamp"}
	}
	return DayOf(utc, c.loc), nil
}

// Classify names the window whose [start, end) span contains the instant,
// or reports none. Window times are reference-timezone wall clock.
func (c *SessionClock) Classify(utc time.Time, windows []WindowConfig) (string, bool) {
	m := c.minuteOfDay(utc)
	for _, w := range windows {
		start, _ := parseClock(w.Start)
		end, _ := parseClock(w.End)
		if m >= start && m < end {
			return w.Name, true
		}
	}
	return "", false
}

// WindowBounds returns the UTC [start, end) of a window on a given day.
func (c *SessionClock) WindowBounds(day Day, w WindowConfig) (time.Time, time.Time, error) {
	midnight, err := day.Time(c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := parseClock(w.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseClock(w.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return midnight.Add(time.Duration(start) * time.Minute).UTC(),
		midnight.Add(time.Duration(end) * time.Minute).UTC(), nil
}

// DayBounds returns the UTC span of the trading day: local midnight up to
// the configured session cutoff. Bars past the cutoff belong to no session.
func (c *SessionClock) DayBounds(day Day) (time.Time, time.Time, error) {
	midnight, err := day.Time(c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return midnight.UTC(), midnight.Add(time.Duration(c.dayEndMins) * time.Minute).UTC(), nil
}

func (c *SessionClock) minuteOfDay(utc time.Time) int {
	local := utc.In(c.loc)
	return local.Hour()*60 + local.Minute()
}

// BarsIn filters bars whose timestamp falls inside [start, end).
// Input must already be ascending; the slice view preserves order.
func BarsIn(bars []Bar, start, end time.Time) []Bar {
	var out []Bar
	for _, b := range bars {
		if !b.Timestamp.Before(start) && b.Timestamp.Before(end) {
			out = append(out, b)
		}
	}
	return out
}

// BarsAfter returns bars strictly after t and before end. This is the
// post-window view the simulator is allowed to see.
func BarsAfter(bars []Bar, t, end time.Time) []Bar {
	var out []Bar
	for _, b := range bars {
		if b.Timestamp.After(t) && b.Timestamp.Before(end) {
			out = append(out, b)
		}
	}
	return out
}
