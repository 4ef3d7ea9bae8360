// Package export flattens feature rows into files the dashboard and
// report tooling read. Savers are format implementations behind a small
// interface; the DTO carries no engine types so formats stay dumb.
package export

import (
	"encoding/json"
	"time"

	"github.com/jbot-bit/orb-pipeline/services/engine"
)

// Row is the flat-file DTO mirroring the feature table schema.
type Row struct {
	Instrument           string  `json:"instrument" parquet:"instrument"`
	Day                  string  `json:"day" parquet:"day"`
	Window               string  `json:"window" parquet:"window"`
	Direction            string  `json:"direction" parquet:"direction"`
	Outcome              string  `json:"outcome" parquet:"outcome"`
	RMultiple            float64 `json:"r_multiple" parquet:"r_multiple"`
	RR                   float64 `json:"rr" parquet:"rr"`
	RangeDefined         bool    `json:"range_defined" parquet:"range_defined"`
	RangeHigh            float64 `json:"range_high" parquet:"range_high"`
	RangeLow             float64 `json:"range_low" parquet:"range_low"`
	RangeTicks           float64 `json:"range_ticks" parquet:"range_ticks"`
	BarCount             int32   `json:"bar_count" parquet:"bar_count"`
	Filtered             bool    `json:"filtered" parquet:"filtered"`
	EntryTime            int64   `json:"entry_time,omitempty" parquet:"entry_time,optional"`
	EntryPrice           float64 `json:"entry_price" parquet:"entry_price"`
	StopPrice            float64 `json:"stop_price" parquet:"stop_price"`
	TargetPrice          float64 `json:"target_price" parquet:"target_price"`
	ExitTime             int64   `json:"exit_time,omitempty" parquet:"exit_time,optional"`
	ExitReason           string  `json:"exit_reason" parquet:"exit_reason"`
	RiskTicks            float64 `json:"risk_ticks" parquet:"risk_ticks"`
	MAETicks             float64 `json:"mae_ticks" parquet:"mae_ticks"`
	MFETicks             float64 `json:"mfe_ticks" parquet:"mfe_ticks"`
	RRHits               string  `json:"rr_hits,omitempty" parquet:"rr_hits,optional"`
	PriorDayOutcome      string  `json:"prior_day_outcome" parquet:"prior_day_outcome"`
	EarlierOutcomes      string  `json:"earlier_outcomes,omitempty" parquet:"earlier_outcomes,optional"`
	PreSessionDefined    bool    `json:"pre_session_defined" parquet:"pre_session_defined"`
	PreSessionRangeTicks float64 `json:"pre_session_range_ticks" parquet:"pre_session_range_ticks"`
	ConfigHash           string  `json:"config_hash" parquet:"config_hash"`
}

// Saver writes one exported batch to a file.
type Saver interface {
	Save(rows []Row, path string) error
	Extension() string
}

// FromFeatureRows flattens engine rows into the export DTO.
func FromFeatureRows(rows []engine.FeatureRow) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		var rrHits, earlier []byte
		if len(r.RRHits) > 0 {
			rrHits, _ = json.Marshal(r.RRHits)
		}
		if len(r.EarlierOutcomes) > 0 {
			earlier, _ = json.Marshal(r.EarlierOutcomes)
		}
		out = append(out, Row{
			Instrument:           r.Instrument,
			Day:                  string(r.Day),
			Window:               r.Window,
			Direction:            string(r.Direction),
			Outcome:              string(r.Outcome),
			RMultiple:            r.RMultiple,
			RR:                   r.RR,
			RangeDefined:         r.RangeDefined,
			RangeHigh:            r.RangeHigh,
			RangeLow:             r.RangeLow,
			RangeTicks:           r.RangeTicks,
			BarCount:             int32(r.BarCount),
			Filtered:             r.Filtered,
			EntryTime:            unixOrZero(r.EntryTime),
			EntryPrice:           r.EntryPrice,
			StopPrice:            r.StopPrice,
			TargetPrice:          r.TargetPrice,
			ExitTime:             unixOrZero(r.ExitTime),
			ExitReason:           string(r.ExitReason),
			RiskTicks:            r.RiskTicks,
			MAETicks:             r.MAETicks,
			MFETicks:             r.MFETicks,
			RRHits:               string(rrHits),
			PriorDayOutcome:      r.PriorDayOutcome,
			EarlierOutcomes:      string(earlier),
			PreSessionDefined:    r.PreSessionDefined,
			PreSessionRangeTicks: r.PreSessionRangeTicks,
			ConfigHash:           r.ConfigHash,
		})
	}
	return out
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().Unix()
}
