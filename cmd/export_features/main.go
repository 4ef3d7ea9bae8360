// export_features dumps a date range of the feature table to a flat file
// (parquet, csv, or json) for the dashboard and report tooling.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jbot-bit/orb-pipeline/services/engine"
	"github.com/jbot-bit/orb-pipeline/services/export"
	"github.com/jbot-bit/orb-pipeline/services/store"
)

func mustEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func main() {
	instrument := flag.String("instrument", "MGC", "Instrument symbol")
	from := flag.String("from", "", "First trading day, YYYY-MM-DD (required)")
	to := flag.String("to", "", "Last trading day, YYYY-MM-DD (required)")
	format := flag.String("format", "parquet", "Output format: parquet, csv, or json")
	out := flag.String("out", "", "Output path; default exports/<instrument>_<from>_<to>.<ext>")
	storeKind := flag.String("store", mustEnv("ORB_STORE", "clickhouse"), "Feature store backend: clickhouse or sqlite")
	dsn := flag.String("dsn", mustEnv("ORB_DSN", "clickhouse://default:@localhost:9000/orb"), "Backend DSN")
	flag.Parse()

	if *from == "" || *to == "" {
		fmt.Fprintln(os.Stderr, "error: --from and --to are required")
		os.Exit(2)
	}
	saver := export.NewSaver(*format)
	if saver == nil {
		fmt.Fprintf(os.Stderr, "error: unsupported format %q\n", *format)
		os.Exit(2)
	}

	st, err := store.Open(*storeKind, *dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: store:", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	rows, err := collectRows(ctx, st, *instrument, engine.Day(*from), engine.Day(*to))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "error: no rows in range")
		os.Exit(1)
	}

	path := *out
	if path == "" {
		path = filepath.Join("exports", fmt.Sprintf("%s_%s_%s.%s", *instrument, *from, *to, saver.Extension()))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if err := saver.Save(export.FromFeatureRows(rows), path); err != nil {
		fmt.Fprintln(os.Stderr, "error: save:", err)
		os.Exit(1)
	}
	fmt.Printf("exported %d rows to %s\n", len(rows), path)
}

// collectRows reads every day in the inclusive range, ascending.
func collectRows(ctx context.Context, st store.Store, instrument string, from, to engine.Day) ([]engine.FeatureRow, error) {
	start, err := time.Parse("2006-01-02", string(from))
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	end, err := time.Parse("2006-01-02", string(to))
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("to before from")
	}
	var out []engine.FeatureRow
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		rows, err := st.Rows(ctx, instrument, engine.Day(cur.Format("2006-01-02")))
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}
