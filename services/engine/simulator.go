package engine

import (
	"math"
	"time"
)

// ExitReason terminates a simulated trade.
type ExitReason string

const (
	ExitTarget ExitReason = "TARGET"
	ExitStop   ExitReason = "STOP"
	ExitNone   ExitReason = "NONE" // session ended with neither level touched
)

// SimulatedTrade is the at-most-one trade per (day, window, direction)
// under the first-qualifying-breakout policy.
type SimulatedTrade struct {
	Direction     Direction
	EntryTime     time.Time
	EntryPrice    float64
	StopPrice     float64
	TargetPrice   float64
	RiskTicks     float64
	ConfirmCloses int
	ExitReason    ExitReason
	ExitTime      time.Time
	ExitPrice     float64
	MAETicks      float64
	MFETicks      float64
}

// Simulate walks the post-window bars for one direction and returns the
// first confirmed breakout simulated to target, stop, or session end.
// nil means no qualifying breakout occurred — an expected outcome, not
// an error.
//
// bars must be strictly after windowEnd (the zero-lookahead constraint);
// any bar at or before it is an integrity violation, not bad input, since
// the pipeline owns that filtering.
func Simulate(rng OpeningRange, dir Direction, bars []Bar, w WindowConfig, rr, tickSize float64, windowEnd time.Time) (*SimulatedTrade, error) {
	if !rng.Defined {
		return nil, nil
	}
	if rr <= 0 {
		return nil, &InputValidationError{Field: "rr", Value: "<=0", Reason: "must be positive"}
	}
	for _, b := range bars {
		if !b.Timestamp.After(windowEnd) {
			return nil, &IntegrityError{Day: rng.Day, Window: rng.Window, Direction: dir,
				Reason: "post-window scan received a bar at or before window end"}
		}
	}

	entryIdx, ok := findConfirmation(rng, dir, bars, w.ConfirmationCloses)
	if !ok {
		return nil, nil
	}

	// Exit scanning starts past the confirming bar: its high/low predate
	// the decision. A NEXT_OPEN fill bar can itself exit the trade.
	var entryPrice float64
	scanFrom := entryIdx + 1
	entryBar := bars[entryIdx]
	switch w.EntryMode {
	case EntryNextOpen:
		if entryIdx+1 >= len(bars) {
			return nil, nil // confirmation on the session's last bar, no fill
		}
		entryBar = bars[entryIdx+1]
		entryPrice = entryBar.Open
	default:
		entryPrice = entryBar.Close
	}

	var stop float64
	switch w.StopMode {
	case StopHalf:
		stop = rng.Mid()
	default:
		if dir == DirUp {
			stop = rng.Low
		} else {
			stop = rng.High
		}
	}

	risk := math.Abs(entryPrice - stop)
	var target float64
	if dir == DirUp {
		target = entryPrice + risk*rr
	} else {
		target = entryPrice - risk*rr
	}

	tr := &SimulatedTrade{
		Direction:     dir,
		EntryTime:     entryBar.Timestamp,
		EntryPrice:    entryPrice,
		StopPrice:     stop,
		TargetPrice:   target,
		RiskTicks:     risk / tickSize,
		ConfirmCloses: w.ConfirmationCloses,
		ExitReason:    ExitNone,
	}

	for _, b := range bars[scanFrom:] {
		tr.updateExcursions(b, tickSize)
		switch ResolveFirstTouch(b, dir, target, stop) {
		case TouchStop:
			tr.ExitReason = ExitStop
			tr.ExitTime = b.Timestamp
			tr.ExitPrice = stop
			return tr, nil
		case TouchTarget:
			tr.ExitReason = ExitTarget
			tr.ExitTime = b.Timestamp
			tr.ExitPrice = target
			return tr, nil
		}
	}
	return tr, nil
}

// findConfirmation returns the index of the bar completing N consecutive
// closes beyond the boundary, scanning forward in time.
func findConfirmation(rng OpeningRange, dir Direction, bars []Bar, n int) (int, bool) {
	if n < 1 {
		n = 1
	}
	run := 0
	for i, b := range bars {
		beyond := b.Close > rng.High
		if dir == DirDown {
			beyond = b.Close < rng.Low
		}
		if beyond {
			run++
			if run == n {
				return i, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

func (t *SimulatedTrade) updateExcursions(b Bar, tickSize float64) {
	var adverse, favorable float64
	if t.Direction == DirUp {
		adverse = (t.EntryPrice - b.Low) / tickSize
		favorable = (b.High - t.EntryPrice) / tickSize
	} else {
		adverse = (b.High - t.EntryPrice) / tickSize
		favorable = (t.EntryPrice - b.Low) / tickSize
	}
	if adverse > t.MAETicks {
		t.MAETicks = adverse
	}
	if favorable > t.MFETicks {
		t.MFETicks = favorable
	}
}
