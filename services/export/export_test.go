package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jbot-bit/orb-pipeline/services/engine"
)

func sampleRows() []engine.FeatureRow {
	entry := time.Date(2024, 6, 10, 23, 2, 0, 0, time.UTC)
	return []engine.FeatureRow{
		{
			Instrument: "MGC", Day: "2024-06-11", Window: "0900", Direction: engine.DirUp,
			Outcome: engine.OutcomeWin, RMultiple: 2.0, RR: 2.0,
			RangeDefined: true, RangeHigh: 2650, RangeLow: 2648, RangeTicks: 20, BarCount: 1,
			EntryTime: entry, EntryPrice: 2650.2, StopPrice: 2648, TargetPrice: 2654.6,
			ExitTime: entry.Add(time.Minute), ExitReason: engine.ExitTarget,
			RiskTicks: 22, MAETicks: 2, MFETicks: 45,
			RRHits:          []engine.RRHit{{RR: 2.0, Hit: true}},
			PriorDayOutcome: engine.ContextUnknown,
			ConfigHash:      "deadbeefdeadbeef",
		},
		{
			Instrument: "MGC", Day: "2024-06-11", Window: "0900", Direction: engine.DirDown,
			Outcome: engine.OutcomeNoTrade, RangeDefined: true, RangeHigh: 2650, RangeLow: 2648,
			RangeTicks: 20, BarCount: 1, ExitReason: engine.ExitNone,
			PriorDayOutcome: engine.ContextUnknown, ConfigHash: "deadbeefdeadbeef",
		},
	}
}

func TestFactory(t *testing.T) {
	require.IsType(t, CSVSaver{}, NewSaver("csv"))
	require.IsType(t, ParquetSaver{}, NewSaver("Parquet"))
	require.IsType(t, JSONSaver{}, NewSaver(" json "))
	require.Nil(t, NewSaver("xlsx"))
	require.Panics(t, func() { MustSaver("xlsx") })
}

func TestFromFeatureRows(t *testing.T) {
	out := FromFeatureRows(sampleRows())
	require.Len(t, out, 2)
	require.Equal(t, "WIN", out[0].Outcome)
	require.Equal(t, "2024-06-11", out[0].Day)
	require.Equal(t, `[{"rr":2,"hit":true}]`, out[0].RRHits)
	require.Equal(t, sampleRows()[0].EntryTime.Unix(), out[0].EntryTime)
	require.Zero(t, out[1].EntryTime) // no trade, no entry
}

func TestJSONSaverRoundTrip(t *testing.T) {
	rows := FromFeatureRows(sampleRows())
	path := filepath.Join(t.TempDir(), "features.json")
	require.NoError(t, JSONSaver{}.Save(rows, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []Row
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, rows, got)
}

func TestCSVSaverWritesHeaderAndRows(t *testing.T) {
	rows := FromFeatureRows(sampleRows())
	path := filepath.Join(t.TempDir(), "features.csv")
	require.NoError(t, CSVSaver{}.Save(rows, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "instrument", records[0][0])
	require.Equal(t, "MGC", records[1][0])
	require.Equal(t, "WIN", records[1][4])
	require.Equal(t, "NO_TRADE", records[2][4])
}
