package store

import (
	"context"
	"sort"
	"time"

	"github.com/jbot-bit/orb-pipeline/services/engine"
)

// Memory is a deterministic in-process store used by tests and the
// determinism/idempotency property checks. Single-writer like the real
// backends; no locking needed under the sequential batch model.
type Memory struct {
	bars map[string][]engine.Bar
	rows map[string]map[engine.Day][]engine.FeatureRow

	// FailReplace forces the next Replace to fail, for persistence-error
	// paths in tests.
	FailReplace error
}

func NewMemory() *Memory {
	return &Memory{
		bars: make(map[string][]engine.Bar),
		rows: make(map[string]map[engine.Day][]engine.FeatureRow),
	}
}

func (m *Memory) Close() error                           { return nil }
func (m *Memory) EnsureSchema(ctx context.Context) error { return nil }

// SetBars replaces the instrument's bar series (kept sorted).
func (m *Memory) SetBars(instrument string, bars []engine.Bar) {
	cp := append([]engine.Bar(nil), bars...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })
	m.bars[instrument] = cp
}

func (m *Memory) InsertBars(ctx context.Context, instrument string, bars []engine.Bar) error {
	m.SetBars(instrument, append(m.bars[instrument], bars...))
	return nil
}

func (m *Memory) Bars(ctx context.Context, instrument string, fromUTC, toUTC time.Time) ([]engine.Bar, error) {
	var out []engine.Bar
	for _, b := range m.bars[instrument] {
		if !b.Timestamp.Before(fromUTC) && b.Timestamp.Before(toUTC) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) Replace(ctx context.Context, instrument string, from, to engine.Day, rows []engine.FeatureRow) error {
	if m.FailReplace != nil {
		err := m.FailReplace
		m.FailReplace = nil
		return err
	}
	byDay := m.rows[instrument]
	if byDay == nil {
		byDay = make(map[engine.Day][]engine.FeatureRow)
		m.rows[instrument] = byDay
	}
	for d := range byDay {
		if d >= from && d <= to {
			delete(byDay, d)
		}
	}
	for _, r := range rows {
		byDay[r.Day] = append(byDay[r.Day], r)
	}
	return nil
}

func (m *Memory) Rows(ctx context.Context, instrument string, day engine.Day) ([]engine.FeatureRow, error) {
	return append([]engine.FeatureRow(nil), m.rows[instrument][day]...), nil
}

// AllRows returns every stored row ordered by (day, window, direction),
// for whole-table assertions.
func (m *Memory) AllRows(instrument string) []engine.FeatureRow {
	var out []engine.FeatureRow
	for _, rows := range m.rows[instrument] {
		out = append(out, rows...)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Window != b.Window {
			return a.Window < b.Window
		}
		return a.Direction < b.Direction
	})
	return out
}
