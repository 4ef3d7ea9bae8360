package engine

import "time"

// Bar is one immutable OHLCV bar keyed by its UTC open timestamp.
// Bars arrive minute-resolution and strictly ordered; gaps are real and
// are never filled in.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Direction of a breakout attempt.
type Direction string

const (
	DirUp   Direction = "UP"
	DirDown Direction = "DOWN"
)

// Directions in the fixed order rows are emitted per window.
var Directions = []Direction{DirUp, DirDown}

// Outcome of one (day, window, direction) slot.
type Outcome string

const (
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomeNoTrade Outcome = "NO_TRADE"
)

// ContextUnknown marks a context field whose source row does not exist
// (partial rebuild, first day of a range). Never assumed, always explicit.
const ContextUnknown = "UNKNOWN"

// Day is a trading day: the calendar date in the reference timezone,
// formatted YYYY-MM-DD. String keys keep feature-table rows and map
// lookups trivially comparable.
type Day string

const dayLayout = "2006-01-02"

// DayOf maps a UTC instant to its trading day in loc.
func DayOf(utc time.Time, loc *time.Location) Day {
	return Day(utc.In(loc).Format(dayLayout))
}

// Time returns local midnight of the day in loc.
func (d Day) Time(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, string(d), loc)
	if err != nil {
		return time.Time{}, &InputValidationError{Field: "day", Value: string(d), Reason: "want YYYY-MM-DD"}
	}
	return t, nil
}

// Next returns the following calendar day.
func (d Day) Next(loc *time.Location) (Day, error) {
	t, err := d.Time(loc)
	if err != nil {
		return "", err
	}
	return Day(t.AddDate(0, 0, 1).Format(dayLayout)), nil
}

// Prev returns the preceding calendar day.
func (d Day) Prev(loc *time.Location) (Day, error) {
	t, err := d.Time(loc)
	if err != nil {
		return "", err
	}
	return Day(t.AddDate(0, 0, -1).Format(dayLayout)), nil
}
