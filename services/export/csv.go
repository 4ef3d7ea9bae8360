package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CSVSaver writes the batch as a headered CSV file.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"instrument", "day", "window", "direction", "outcome", "r_multiple", "rr",
		"range_defined", "range_high", "range_low", "range_ticks", "bar_count", "filtered",
		"entry_time", "entry_price", "stop_price", "target_price", "exit_time", "exit_reason",
		"risk_ticks", "mae_ticks", "mfe_ticks", "rr_hits", "prior_day_outcome", "earlier_outcomes",
		"pre_session_defined", "pre_session_range_ticks", "config_hash",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Instrument, r.Day, r.Window, r.Direction, r.Outcome,
			fmtF(r.RMultiple), fmtF(r.RR),
			fmtB(r.RangeDefined), fmtF(r.RangeHigh), fmtF(r.RangeLow), fmtF(r.RangeTicks),
			strconv.Itoa(int(r.BarCount)), fmtB(r.Filtered),
			strconv.FormatInt(r.EntryTime, 10), fmtF(r.EntryPrice), fmtF(r.StopPrice), fmtF(r.TargetPrice),
			strconv.FormatInt(r.ExitTime, 10), r.ExitReason,
			fmtF(r.RiskTicks), fmtF(r.MAETicks), fmtF(r.MFETicks),
			r.RRHits, r.PriorDayOutcome, r.EarlierOutcomes,
			fmtB(r.PreSessionDefined), fmtF(r.PreSessionRangeTicks), r.ConfigHash,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtF(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func fmtB(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
