package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func assembleFixture(t *testing.T, ctx RowContext) FeatureRow {
	t.Helper()
	cfg := DefaultMGC()
	require.NoError(t, cfg.Validate())
	rng := OpeningRange{Day: "2024-06-11", Window: "1000", Defined: true, High: 2650, Low: 2648, SizeTicks: 20, BarCount: 1}
	w := cfg.Windows[2]
	return AssembleRow(cfg, rng, w, DirUp, nil, OutcomeNoTrade, 0, 2.0, false, nil, ctx)
}

func TestAssembleRowUnknownContext(t *testing.T) {
	row := assembleFixture(t, RowContext{})
	require.Equal(t, ContextUnknown, row.PriorDayOutcome)
	require.Empty(t, row.EarlierOutcomes)
	require.False(t, row.PreSessionDefined)
	require.Zero(t, row.PreSessionRangeTicks)
	require.NotEmpty(t, row.ConfigHash)
	require.Equal(t, ExitNone, row.ExitReason)
}

func TestAssembleRowPriorDayLookup(t *testing.T) {
	ctx := RowContext{
		PriorDay: map[RowKey]Outcome{
			{Window: "1000", Direction: DirUp}: OutcomeLoss,
		},
		PreSession: &OpeningRange{Defined: true, SizeTicks: 35},
	}
	row := assembleFixture(t, ctx)
	require.Equal(t, "LOSS", row.PriorDayOutcome)
	require.True(t, row.PreSessionDefined)
	require.InDelta(t, 35.0, row.PreSessionRangeTicks, 1e-9)
}

func TestRowKey(t *testing.T) {
	row := assembleFixture(t, RowContext{})
	require.Equal(t, RowKey{Day: "2024-06-11", Window: "1000", Direction: DirUp}, row.Key())
}
