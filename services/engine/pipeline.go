package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BarSource supplies immutable 1m bars strictly ordered by ascending UTC
// timestamp, gaps passed through.
type BarSource interface {
	Bars(ctx context.Context, instrument string, fromUTC, toUTC time.Time) ([]Bar, error)
}

// FeatureStore owns the feature table. Replace atomically swaps all rows
// whose day falls in [from, to], leaving rows outside untouched; on error
// the range keeps its prior state.
type FeatureStore interface {
	Replace(ctx context.Context, instrument string, from, to Day, rows []FeatureRow) error
	Rows(ctx context.Context, instrument string, day Day) ([]FeatureRow, error)
}

// DayStatus is the per-day verdict in a run report.
type DayStatus string

const (
	DayOK      DayStatus = "ok"
	DaySkipped DayStatus = "skip"
	DayFailed  DayStatus = "fail"
)

// DayResult is one line of the per-day outcome log.
type DayResult struct {
	Day    Day
	Status DayStatus
	Rows   int
	Reason string
}

// RunReport summarizes one batch run.
type RunReport struct {
	RunID      string
	Instrument string
	ConfigHash string
	From, To   Day
	Days       []DayResult
	OK         int
	Skipped    int
	Failed     int
}

// Pipeline computes and persists feature rows for one instrument. Strictly
// sequential by design: each day's context windows read the immediately
// preceding day's already-assembled rows, so cross-day parallelism would
// let a day observe a not-yet-written predecessor.
type Pipeline struct {
	cfg   *InstrumentConfig
	clock *SessionClock
	bars  BarSource
	store FeatureStore
	log   *zap.Logger
}

// NewPipeline validates the config once and wires the pipeline. The
// validated config is the single source of truth for every downstream
// component.
func NewPipeline(cfg *InstrumentConfig, bars BarSource, store FeatureStore, log *zap.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clock, err := NewSessionClock(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, clock: clock, bars: bars, store: store, log: log}, nil
}

// Run (re)computes feature rows for every configured window and direction
// on every trading day in [from, to], ascending, writing each day before
// moving to the next. Recoverable trouble (data gaps, bad bars for one
// day, a failed write) is recorded and the run continues; an
// IntegrityError aborts immediately with the offending slot identified.
func (p *Pipeline) Run(ctx context.Context, from, to Day) (*RunReport, error) {
	loc := p.clock.Location()
	start, err := from.Time(loc)
	if err != nil {
		return nil, err
	}
	end, err := to.Time(loc)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, &InputValidationError{Field: "date_range", Value: fmt.Sprintf("%s..%s", from, to), Reason: "to before from"}
	}

	report := &RunReport{
		RunID:      uuid.NewString(),
		Instrument: p.cfg.Instrument,
		ConfigHash: p.cfg.Hash(),
		From:       from,
		To:         to,
	}
	p.log.Info("batch run starting",
		zap.String("run_id", report.RunID),
		zap.String("instrument", p.cfg.Instrument),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("config_hash", p.cfg.Hash()))

	prior, err := p.priorOutcomes(ctx, from)
	if err != nil {
		p.log.Warn("prior day unavailable, context starts unknown", zap.Error(err))
		prior = nil
	}

	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		day := Day(cur.Format(dayLayout))

		rows, res, err := p.runDay(ctx, day, prior)
		if err != nil {
			var integ *IntegrityError
			if errors.As(err, &integ) {
				p.log.Error("integrity violation, aborting run",
					zap.String("day", string(integ.Day)),
					zap.String("window", integ.Window),
					zap.String("direction", string(integ.Direction)),
					zap.String("reason", integ.Reason))
				return report, err
			}
			var inval *InputValidationError
			if errors.As(err, &inval) {
				// Fatal for this day only, not the batch.
				res = DayResult{Day: day, Status: DayFailed, Reason: inval.Error()}
				rows = nil
			} else {
				return report, err
			}
		}
		report.Days = append(report.Days, res)
		switch res.Status {
		case DayOK:
			report.OK++
			p.log.Info("day ok", zap.String("day", string(day)), zap.Int("rows", res.Rows))
		case DaySkipped:
			report.Skipped++
			p.log.Warn("day skipped", zap.String("day", string(day)), zap.String("reason", res.Reason))
		case DayFailed:
			report.Failed++
			p.log.Error("day failed", zap.String("day", string(day)), zap.String("reason", res.Reason))
		}

		// Next day's context comes from what this day actually produced.
		prior = outcomesByKey(rows)
	}

	p.log.Info("batch run finished",
		zap.String("run_id", report.RunID),
		zap.Int("ok", report.OK), zap.Int("skipped", report.Skipped), zap.Int("failed", report.Failed))
	return report, nil
}

// runDay computes and persists one trading day. Returned rows are nil for
// skipped or failed days so the caller carries empty context forward.
func (p *Pipeline) runDay(ctx context.Context, day Day, prior map[RowKey]Outcome) ([]FeatureRow, DayResult, error) {
	dayStart, dayEnd, err := p.clock.DayBounds(day)
	if err != nil {
		return nil, DayResult{}, err
	}

	// One bar load per day; every window works off this slice.
	bars, err := p.bars.Bars(ctx, p.cfg.Instrument, dayStart, dayEnd)
	if err != nil {
		return nil, DayResult{Day: day, Status: DaySkipped, Reason: fmt.Sprintf("bar load: %v", err)}, nil
	}
	if len(bars) == 0 {
		return nil, DayResult{Day: day, Status: DaySkipped, Reason: (&DataGapError{Day: day}).Error()}, nil
	}
	if err := verifyAscending(bars); err != nil {
		return nil, DayResult{Day: day, Status: DaySkipped, Reason: err.Error()}, nil
	}

	rows, err := p.computeDay(day, bars, prior)
	if err != nil {
		return nil, DayResult{}, err
	}

	if err := p.store.Replace(ctx, p.cfg.Instrument, day, day, rows); err != nil {
		return nil, DayResult{Day: day, Status: DayFailed, Reason: (&PersistenceError{Op: "replace", Err: err}).Error()}, nil
	}
	return rows, DayResult{Day: day, Status: DayOK, Rows: len(rows)}, nil
}

// computeDay assembles every (window, direction) row for one day, windows
// in configured chronological order so same-day context stays backward-
// looking.
func (p *Pipeline) computeDay(day Day, bars []Bar, prior map[RowKey]Outcome) ([]FeatureRow, error) {
	var preSession *OpeningRange
	if cw := p.cfg.ContextWindow(); cw != nil {
		start, end, err := p.clock.WindowBounds(day, *cw)
		if err != nil {
			return nil, err
		}
		rng, err := BuildRange(day, cw.Name, BarsIn(bars, start, end), p.cfg.TickSize)
		if err != nil {
			return nil, err
		}
		preSession = &rng
	}

	_, dayEnd, err := p.clock.DayBounds(day)
	if err != nil {
		return nil, err
	}

	var rows []FeatureRow
	var earlier []WindowOutcome
	for _, w := range p.cfg.TradingWindows() {
		start, end, err := p.clock.WindowBounds(day, w)
		if err != nil {
			return nil, err
		}
		rng, err := BuildRange(day, w.Name, BarsIn(bars, start, end), p.cfg.TickSize)
		if err != nil {
			return nil, err
		}
		post := BarsAfter(bars, end, dayEnd)

		filtered := rangeFiltered(rng, w)
		ctx := RowContext{
			PriorDay:   prior,
			Earlier:    append([]WindowOutcome(nil), earlier...),
			PreSession: preSession,
		}

		for _, dir := range Directions {
			row, err := p.computeSlot(rng, w, dir, post, end, filtered, ctx)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
			earlier = append(earlier, WindowOutcome{Window: w.Name, Direction: dir, Outcome: string(row.Outcome)})
		}
	}
	return rows, nil
}

// computeSlot simulates and classifies one (window, direction) slot.
func (p *Pipeline) computeSlot(rng OpeningRange, w WindowConfig, dir Direction,
	post []Bar, windowEnd time.Time, filtered bool, ctx RowContext) (FeatureRow, error) {

	rr := w.RRTargets[0]
	var trade *SimulatedTrade
	var rrHits []RRHit

	if rng.Defined && !filtered {
		var err error
		trade, err = Simulate(rng, dir, post, w, rr, p.cfg.TickSize, windowEnd)
		if err != nil {
			return FeatureRow{}, tagSlot(err, rng.Day, w.Name, dir)
		}
		rrHits = append(rrHits, RRHit{RR: rr, Hit: trade != nil && trade.ExitReason == ExitTarget})
		for _, aux := range w.RRTargets[1:] {
			t, err := Simulate(rng, dir, post, w, aux, p.cfg.TickSize, windowEnd)
			if err != nil {
				return FeatureRow{}, tagSlot(err, rng.Day, w.Name, dir)
			}
			rrHits = append(rrHits, RRHit{RR: aux, Hit: t != nil && t.ExitReason == ExitTarget})
		}
	}

	outcome, rMultiple, err := ClassifyOutcome(trade, rr, p.cfg.Cost, p.cfg.TickValue)
	if err != nil {
		return FeatureRow{}, tagSlot(err, rng.Day, w.Name, dir)
	}
	return AssembleRow(p.cfg, rng, w, dir, trade, outcome, rMultiple, rr, filtered, rrHits, ctx), nil
}

// priorOutcomes fetches the persisted rows of the day before the run's
// first day; absent rows mean context starts unknown.
func (p *Pipeline) priorOutcomes(ctx context.Context, first Day) (map[RowKey]Outcome, error) {
	prev, err := first.Prev(p.clock.Location())
	if err != nil {
		return nil, err
	}
	rows, err := p.store.Rows(ctx, p.cfg.Instrument, prev)
	if err != nil {
		return nil, &PersistenceError{Op: "rows", Err: err}
	}
	return outcomesByKey(rows), nil
}

func outcomesByKey(rows []FeatureRow) map[RowKey]Outcome {
	if len(rows) == 0 {
		return nil
	}
	m := make(map[RowKey]Outcome, len(rows))
	for _, r := range rows {
		m[RowKey{Window: r.Window, Direction: r.Direction}] = r.Outcome
	}
	return m
}

func rangeFiltered(rng OpeningRange, w WindowConfig) bool {
	if !rng.Defined {
		return false
	}
	if w.MinRangeTicks > 0 && rng.SizeTicks < w.MinRangeTicks {
		return true
	}
	if w.MaxRangeTicks > 0 && rng.SizeTicks > w.MaxRangeTicks {
		return true
	}
	return false
}

func verifyAscending(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return &InputValidationError{Field: "bars",
				Value: bars[i].Timestamp.UTC().Format(time.RFC3339), Reason: "not strictly ascending"}
		}
	}
	return nil
}

// tagSlot stamps day/window/direction onto integrity errors raised below
// the pipeline, where only part of the identity is known.
func tagSlot(err error, day Day, window string, dir Direction) error {
	var integ *IntegrityError
	if errors.As(err, &integ) {
		if integ.Day == "" {
			integ.Day = day
		}
		if integ.Window == "" {
			integ.Window = window
		}
		if integ.Direction == "" {
			integ.Direction = dir
		}
		return integ
	}
	return err
}
