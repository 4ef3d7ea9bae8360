package engine

import "time"

// RRHit records whether an auxiliary risk:reward target was reached
// before the stop, letting edge scripts study alternative targets without
// re-running the simulator. The first configured target is canonical and
// drives Outcome/RMultiple.
type RRHit struct {
	RR  float64 `json:"rr"`
	Hit bool    `json:"hit"`
}

// WindowOutcome is a same-day context entry: the outcome of an earlier
// window's slot, in configured chronological order.
type WindowOutcome struct {
	Window    string    `json:"window"`
	Direction Direction `json:"direction"`
	Outcome   string    `json:"outcome"`
}

// FeatureRow is the unit of persistence: one immutable row per
// (day, window, direction). Rows are write-once-then-replace; a rebuild
// of a date range regenerates exactly that range.
type FeatureRow struct {
	Instrument string
	Day        Day
	Window     string
	Direction  Direction

	Outcome   Outcome
	RMultiple float64
	RR        float64

	RangeDefined bool
	RangeHigh    float64
	RangeLow     float64
	RangeTicks   float64
	BarCount     int
	Filtered     bool // range outside min/max ticks filter

	EntryTime   time.Time // zero when no trade
	EntryPrice  float64
	StopPrice   float64
	TargetPrice float64
	ExitTime    time.Time
	ExitReason  ExitReason
	RiskTicks   float64
	MAETicks    float64
	MFETicks    float64
	RRHits      []RRHit

	// Strictly backward-looking context. Missing source rows record
	// UNKNOWN, never an assumption.
	PriorDayOutcome      string // same (window, direction), previous trading day
	EarlierOutcomes      []WindowOutcome
	PreSessionDefined    bool
	PreSessionRangeTicks float64

	ConfigHash string
}

// Key identifies the row's primary-key tuple.
func (r FeatureRow) Key() RowKey { return RowKey{r.Day, r.Window, r.Direction} }

// RowKey is the feature table's primary key.
type RowKey struct {
	Day       Day
	Window    string
	Direction Direction
}

// RowContext carries the backward-looking inputs the assembler folds into
// a row. The pipeline builds it from rows already assembled earlier in the
// same day plus the prior day's persisted rows.
type RowContext struct {
	PriorDay   map[RowKey]Outcome // prior trading day's final outcomes
	Earlier    []WindowOutcome    // this day's earlier windows, chronological
	PreSession *OpeningRange      // context window range, nil when unconfigured
}

// AssembleRow combines range, trade, and outcome into one feature row.
// trade may be nil (NO_TRADE).
func AssembleRow(cfg *InstrumentConfig, rng OpeningRange, w WindowConfig, dir Direction,
	trade *SimulatedTrade, outcome Outcome, rMultiple, rr float64, filtered bool,
	rrHits []RRHit, ctx RowContext) FeatureRow {

	row := FeatureRow{
		Instrument:   cfg.Instrument,
		Day:          rng.Day,
		Window:       w.Name,
		Direction:    dir,
		Outcome:      outcome,
		RMultiple:    rMultiple,
		RR:           rr,
		RangeDefined: rng.Defined,
		BarCount:     rng.BarCount,
		Filtered:     filtered,
		RRHits:       rrHits,
		ExitReason:   ExitNone,
		ConfigHash:   cfg.Hash(),
	}
	if rng.Defined {
		row.RangeHigh = rng.High
		row.RangeLow = rng.Low
		row.RangeTicks = rng.SizeTicks
	}
	if trade != nil {
		row.EntryTime = trade.EntryTime
		row.EntryPrice = trade.EntryPrice
		row.StopPrice = trade.StopPrice
		row.TargetPrice = trade.TargetPrice
		row.ExitTime = trade.ExitTime
		row.ExitReason = trade.ExitReason
		row.RiskTicks = trade.RiskTicks
		row.MAETicks = trade.MAETicks
		row.MFETicks = trade.MFETicks
	}

	row.PriorDayOutcome = ContextUnknown
	if ctx.PriorDay != nil {
		if out, ok := ctx.PriorDay[RowKey{Window: w.Name, Direction: dir}]; ok {
			row.PriorDayOutcome = string(out)
		}
	}
	row.EarlierOutcomes = ctx.Earlier
	if ctx.PreSession != nil && ctx.PreSession.Defined {
		row.PreSessionDefined = true
		row.PreSessionRangeTicks = ctx.PreSession.SizeTicks
	}
	return row
}
