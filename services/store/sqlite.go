package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jbot-bit/orb-pipeline/services/engine"
)

// SQLite backs fully-local research runs with an embedded database.
// Replace is a single transaction, so a failed write leaves the range in
// its prior state.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file and applies the schema.
// Use ":memory:" for throwaway runs.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// EnsureSchema creates both tables.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bars (
		instrument TEXT NOT NULL,
		ts INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (instrument, ts)
	);

	CREATE TABLE IF NOT EXISTS orb_features (
		instrument TEXT NOT NULL,
		day TEXT NOT NULL,
		window TEXT NOT NULL,
		direction TEXT NOT NULL,
		outcome TEXT NOT NULL,
		r_multiple REAL NOT NULL,
		rr REAL NOT NULL,
		range_defined INTEGER NOT NULL,
		range_high REAL NOT NULL,
		range_low REAL NOT NULL,
		range_ticks REAL NOT NULL,
		bar_count INTEGER NOT NULL,
		filtered INTEGER NOT NULL,
		entry_time INTEGER,
		entry_price REAL NOT NULL,
		stop_price REAL NOT NULL,
		target_price REAL NOT NULL,
		exit_time INTEGER,
		exit_reason TEXT NOT NULL,
		risk_ticks REAL NOT NULL,
		mae_ticks REAL NOT NULL,
		mfe_ticks REAL NOT NULL,
		rr_hits TEXT NOT NULL,
		prior_day_outcome TEXT NOT NULL,
		earlier_outcomes TEXT NOT NULL,
		pre_session_defined INTEGER NOT NULL,
		pre_session_range_ticks REAL NOT NULL,
		config_hash TEXT NOT NULL,
		PRIMARY KEY (instrument, day, window, direction)
	);

	CREATE INDEX IF NOT EXISTS idx_features_day ON orb_features(instrument, day);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertBars upserts bars by (instrument, ts).
func (s *SQLite) InsertBars(ctx context.Context, instrument string, bars []engine.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (instrument, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, instrument, b.Timestamp.UTC().Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert bar: %w", err)
		}
	}
	return tx.Commit()
}

// Bars reads 1m bars in [fromUTC, toUTC) ascending.
func (s *SQLite) Bars(ctx context.Context, instrument string, fromUTC, toUTC time.Time) ([]engine.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE instrument = ? AND ts >= ? AND ts < ?
		ORDER BY ts`,
		instrument, fromUTC.UTC().Unix(), toUTC.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var out []engine.Bar
	for rows.Next() {
		var b engine.Bar
		var ts int64
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// Replace deletes and reinserts exactly [from, to] in one transaction.
func (s *SQLite) Replace(ctx context.Context, instrument string, from, to engine.Day, rows []engine.FeatureRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM orb_features WHERE instrument = ? AND day >= ? AND day <= ?`,
		instrument, string(from), string(to)); err != nil {
		return fmt.Errorf("delete range: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orb_features (
			instrument, day, window, direction, outcome, r_multiple, rr,
			range_defined, range_high, range_low, range_ticks, bar_count, filtered,
			entry_time, entry_price, stop_price, target_price, exit_time, exit_reason,
			risk_ticks, mae_ticks, mfe_ticks, rr_hits, prior_day_outcome, earlier_outcomes,
			pre_session_defined, pre_session_range_ticks, config_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		rrHits, _ := json.Marshal(r.RRHits)
		earlier, _ := json.Marshal(r.EarlierOutcomes)
		if _, err := stmt.ExecContext(ctx,
			r.Instrument, string(r.Day), r.Window, string(r.Direction), string(r.Outcome),
			r.RMultiple, r.RR,
			boolInt(r.RangeDefined), r.RangeHigh, r.RangeLow, r.RangeTicks, r.BarCount, boolInt(r.Filtered),
			nullableUnix(r.EntryTime), r.EntryPrice, r.StopPrice, r.TargetPrice,
			nullableUnix(r.ExitTime), string(r.ExitReason),
			r.RiskTicks, r.MAETicks, r.MFETicks,
			string(rrHits), r.PriorDayOutcome, string(earlier),
			boolInt(r.PreSessionDefined), r.PreSessionRangeTicks, r.ConfigHash,
		); err != nil {
			return fmt.Errorf("insert row (%s,%s,%s): %w", r.Day, r.Window, r.Direction, err)
		}
	}
	return tx.Commit()
}

// Rows reads one day's feature rows ordered by (window, direction).
func (s *SQLite) Rows(ctx context.Context, instrument string, day engine.Day) ([]engine.FeatureRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instrument, day, window, direction, outcome, r_multiple, rr,
		       range_defined, range_high, range_low, range_ticks, bar_count, filtered,
		       entry_time, entry_price, stop_price, target_price, exit_time, exit_reason,
		       risk_ticks, mae_ticks, mfe_ticks, rr_hits, prior_day_outcome, earlier_outcomes,
		       pre_session_defined, pre_session_range_ticks, config_hash
		FROM orb_features
		WHERE instrument = ? AND day = ?
		ORDER BY window, direction`,
		instrument, string(day))
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	var out []engine.FeatureRow
	for rows.Next() {
		var (
			r                         engine.FeatureRow
			dayStr, dir, outcome      string
			exitReason                string
			defined, filtered, preDef int
			entryTS, exitTS           sql.NullInt64
			rrHitsJSON, earlierJSON   string
		)
		if err := rows.Scan(&r.Instrument, &dayStr, &r.Window, &dir, &outcome, &r.RMultiple, &r.RR,
			&defined, &r.RangeHigh, &r.RangeLow, &r.RangeTicks, &r.BarCount, &filtered,
			&entryTS, &r.EntryPrice, &r.StopPrice, &r.TargetPrice, &exitTS, &exitReason,
			&r.RiskTicks, &r.MAETicks, &r.MFETicks, &rrHitsJSON, &r.PriorDayOutcome, &earlierJSON,
			&preDef, &r.PreSessionRangeTicks, &r.ConfigHash); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		r.Day = engine.Day(dayStr)
		r.Direction = engine.Direction(dir)
		r.Outcome = engine.Outcome(outcome)
		r.ExitReason = engine.ExitReason(exitReason)
		r.RangeDefined = defined != 0
		r.Filtered = filtered != 0
		r.PreSessionDefined = preDef != 0
		if entryTS.Valid {
			r.EntryTime = time.Unix(entryTS.Int64, 0).UTC()
		}
		if exitTS.Valid {
			r.ExitTime = time.Unix(exitTS.Int64, 0).UTC()
		}
		if rrHitsJSON != "" && rrHitsJSON != "null" {
			_ = json.Unmarshal([]byte(rrHitsJSON), &r.RRHits)
		}
		if earlierJSON != "" && earlierJSON != "null" {
			_ = json.Unmarshal([]byte(earlierJSON), &r.EarlierOutcomes)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableUnix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Unix()
}
