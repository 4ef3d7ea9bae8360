package engine

// OpeningRange is the aggregated high/low of one window on one day.
// Defined=false is the sentinel for "no bars in window" — an expected
// condition (holidays, feed gaps) that must never collapse into a
// numeric zero-width range.
type OpeningRange struct {
	Day       Day
	Window    string
	Defined   bool
	High      float64
	Low       float64
	SizeTicks float64
	BarCount  int
}

// Mid returns the direction-neutral midpoint.
func (r OpeningRange) Mid() float64 { return (r.High + r.Low) / 2 }

// BuildRange aggregates the window's bars into an OpeningRange. Bars must
// be the ascending sub-sequence the session clock classified into the
// window; zero bars yields an undefined range, not an error. Identical
// input always yields an identical range.
func BuildRange(day Day, window string, bars []Bar, tickSize float64) (OpeningRange, error) {
	if tickSize <= 0 {
		return OpeningRange{}, &InputValidationError{Field: "tick_size", Value: "<=0", Reason: "must be positive"}
	}
	r := OpeningRange{Day: day, Window: window}
	if len(bars) == 0 {
		return r, nil
	}
	r.Defined = true
	r.High = bars[0].High
	r.Low = bars[0].Low
	for _, b := range bars[1:] {
		if b.High > r.High {
			r.High = b.High
		}
		if b.Low < r.Low {
			r.Low = b.Low
		}
	}
	r.BarCount = len(bars)
	if r.High < r.Low {
		return OpeningRange{}, &IntegrityError{Day: day, Window: window, Reason: "range high below low"}
	}
	r.SizeTicks = (r.High - r.Low) / tickSize
	return r, nil
}
