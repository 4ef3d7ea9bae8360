// import_bars is a one-shot installer for 1m OHLCV CSVs into the bar
// table. Handles UTF-8 and UTF-16-with-BOM exports (TradingView and
// broker dumps frequently arrive as UTF-16).
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jbot-bit/orb-pipeline/services/engine"
	"github.com/jbot-bit/orb-pipeline/services/store"
)

func mustEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func main() {
	input := flag.String("input", "", "Path to OHLCV CSV (required)")
	instrument := flag.String("instrument", "MGC", "Instrument symbol")
	storeKind := flag.String("store", mustEnv("ORB_STORE", "clickhouse"), "Target backend: clickhouse or sqlite")
	dsn := flag.String("dsn", mustEnv("ORB_DSN", "clickhouse://default:@localhost:9000/orb"), "Backend DSN")
	flag.Parse()

	if strings.TrimSpace(*input) == "" {
		fmt.Fprintln(os.Stderr, "error: --input is required")
		os.Exit(2)
	}

	bars, err := loadBars(*input)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error loading bars:", err)
		os.Exit(1)
	}
	if len(bars) == 0 {
		fmt.Fprintln(os.Stderr, "error: input CSV has no bar rows")
		os.Exit(1)
	}

	st, err := store.Open(*storeKind, *dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: store:", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.EnsureSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error: schema:", err)
		os.Exit(1)
	}
	if err := st.InsertBars(ctx, *instrument, bars); err != nil {
		fmt.Fprintln(os.Stderr, "error: insert:", err)
		os.Exit(1)
	}
	fmt.Printf("inserted %d bars for %s (%s .. %s)\n", len(bars), *instrument,
		bars[0].Timestamp.Format(time.RFC3339), bars[len(bars)-1].Timestamp.Format(time.RFC3339))
}

// loadBars reads a headered CSV with columns timestamp,open,high,low,close[,volume].
// Timestamps are unix seconds or RFC3339, always interpreted as UTC.
func loadBars(path string) ([]engine.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(decodeBOM(f))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read: %w", err)
	}
	if len(records) <= 1 {
		return nil, fmt.Errorf("input CSV missing rows")
	}

	header := records[0]
	colIdx := map[string]int{}
	for idx, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = idx
	}
	for _, col := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var bars []engine.Bar
	for i, rec := range records[1:] {
		ts, err := parseTimestamp(rec[colIdx["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		b := engine.Bar{Timestamp: ts}
		if b.Open, err = strconv.ParseFloat(strings.TrimSpace(rec[colIdx["open"]]), 64); err != nil {
			return nil, fmt.Errorf("row %d open: %w", i+2, err)
		}
		if b.High, err = strconv.ParseFloat(strings.TrimSpace(rec[colIdx["high"]]), 64); err != nil {
			return nil, fmt.Errorf("row %d high: %w", i+2, err)
		}
		if b.Low, err = strconv.ParseFloat(strings.TrimSpace(rec[colIdx["low"]]), 64); err != nil {
			return nil, fmt.Errorf("row %d low: %w", i+2, err)
		}
		if b.Close, err = strconv.ParseFloat(strings.TrimSpace(rec[colIdx["close"]]), 64); err != nil {
			return nil, fmt.Errorf("row %d close: %w", i+2, err)
		}
		if vi, ok := colIdx["volume"]; ok && vi < len(rec) {
			b.Volume, _ = strconv.ParseFloat(strings.TrimSpace(rec[vi]), 64)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// decodeBOM wraps the reader with a UTF-16 decoder when a BOM is present.
func decodeBOM(f *os.File) io.Reader {
	br := bufio.NewReader(f)
	head, _ := br.Peek(2)
	if len(head) >= 2 && ((head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF)) {
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	}
	return br
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
