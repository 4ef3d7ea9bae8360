package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jbot-bit/orb-pipeline/services/engine"
)

func testRow(day engine.Day, window string, dir engine.Direction) engine.FeatureRow {
	entry := time.Date(2024, 6, 10, 23, 2, 0, 0, time.UTC)
	return engine.FeatureRow{
		Instrument:   "MGC",
		Day:          day,
		Window:       window,
		Direction:    dir,
		Outcome:      engine.OutcomeWin,
		RMultiple:    2.0,
		RR:           2.0,
		RangeDefined: true,
		RangeHigh:    2650.0,
		RangeLow:     2648.0,
		RangeTicks:   20,
		BarCount:     1,
		EntryTime:    entry,
		EntryPrice:   2650.2,
		StopPrice:    2648.0,
		TargetPrice:  2654.6,
		ExitTime:     entry.Add(time.Minute),
		ExitReason:   engine.ExitTarget,
		RiskTicks:    22,
		MAETicks:     2,
		MFETicks:     45,
		RRHits:       []engine.RRHit{{RR: 2.0, Hit: true}},
		PriorDayOutcome: engine.ContextUnknown,
		EarlierOutcomes: []engine.WindowOutcome{
			{Window: "0900", Direction: engine.DirUp, Outcome: "WIN"},
		},
		PreSessionDefined:    true,
		PreSessionRangeTicks: 20,
		ConfigHash:           "deadbeefdeadbeef",
	}
}

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteFeatureRoundTrip(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	want := testRow("2024-06-11", "1000", engine.DirUp)
	require.NoError(t, s.Replace(ctx, "MGC", "2024-06-11", "2024-06-11", []engine.FeatureRow{want}))

	got, err := s.Rows(ctx, "MGC", "2024-06-11")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, want, got[0])
}

func TestSQLiteReplaceIsScopedAndIdempotent(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	d1 := testRow("2024-06-11", "1000", engine.DirUp)
	d2 := testRow("2024-06-12", "1000", engine.DirUp)
	require.NoError(t, s.Replace(ctx, "MGC", "2024-06-11", "2024-06-12", []engine.FeatureRow{d1, d2}))

	// Rebuild day 2 only with a changed outcome; day 1 must be untouched.
	d2b := d2
	d2b.Outcome = engine.OutcomeLoss
	d2b.RMultiple = -1.0
	require.NoError(t, s.Replace(ctx, "MGC", "2024-06-12", "2024-06-12", []engine.FeatureRow{d2b}))

	got1, err := s.Rows(ctx, "MGC", "2024-06-11")
	require.NoError(t, err)
	require.Equal(t, []engine.FeatureRow{d1}, got1)

	got2, err := s.Rows(ctx, "MGC", "2024-06-12")
	require.NoError(t, err)
	require.Equal(t, []engine.FeatureRow{d2b}, got2)

	// Replaying the identical write changes nothing.
	require.NoError(t, s.Replace(ctx, "MGC", "2024-06-12", "2024-06-12", []engine.FeatureRow{d2b}))
	again, err := s.Rows(ctx, "MGC", "2024-06-12")
	require.NoError(t, err)
	require.Equal(t, got2, again)
}

func TestSQLiteReplaceWithNoRowsClearsRange(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	d1 := testRow("2024-06-11", "1000", engine.DirUp)
	require.NoError(t, s.Replace(ctx, "MGC", "2024-06-11", "2024-06-11", []engine.FeatureRow{d1}))
	require.NoError(t, s.Replace(ctx, "MGC", "2024-06-11", "2024-06-11", nil))

	got, err := s.Rows(ctx, "MGC", "2024-06-11")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSQLiteBars(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC)
	bars := []engine.Bar{
		{Timestamp: base, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Timestamp: base.Add(time.Minute), Open: 1.5, High: 2.5, Low: 1.0, Close: 2.0, Volume: 5},
	}
	require.NoError(t, s.InsertBars(ctx, "MGC", bars))
	// Re-import must dedup by (instrument, ts).
	require.NoError(t, s.InsertBars(ctx, "MGC", bars))

	got, err := s.Bars(ctx, "MGC", base, base.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, bars[:1], got)

	all, err := s.Bars(ctx, "MGC", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, bars, all)
}

func TestOpenUnsupportedBackend(t *testing.T) {
	_, err := Open("mongodb", "")
	require.Error(t, err)
}
