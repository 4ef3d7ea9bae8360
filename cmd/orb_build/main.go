// orb_build (re)computes ORB feature rows for an instrument over an
// inclusive date range and persists them to the feature table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

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
	configPath := flag.String("config", "", "Instrument config JSON; empty uses the built-in MGC config")
	from := flag.String("from", "", "First trading day, YYYY-MM-DD (required)")
	to := flag.String("to", "", "Last trading day, YYYY-MM-DD (required)")
	storeKind := flag.String("store", mustEnv("ORB_STORE", "clickhouse"), "Feature store backend: clickhouse or sqlite")
	dsn := flag.String("dsn", mustEnv("ORB_DSN", "clickhouse://default:@localhost:9000/orb"), "Backend DSN (clickhouse URL or sqlite file path)")
	verbose := flag.Bool("verbose", false, "Debug-level logging")
	flag.Parse()

	if *from == "" || *to == "" {
		fmt.Fprintln(os.Stderr, "error: --from and --to are required")
		os.Exit(2)
	}

	logCfg := zap.NewProductionConfig()
	if *verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := engine.DefaultMGC()
	if *configPath != "" {
		cfg, err = engine.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error: config:", err)
			os.Exit(2)
		}
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

	pipe, err := engine.NewPipeline(cfg, st, st, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	report, err := pipe.Run(ctx, engine.Day(*from), engine.Day(*to))
	if err != nil {
		var integ *engine.IntegrityError
		if errors.As(err, &integ) {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", integ)
			os.Exit(3)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	for _, d := range report.Days {
		if d.Status == engine.DayOK {
			fmt.Printf("%s  %-4s rows=%d\n", d.Day, d.Status, d.Rows)
		} else {
			fmt.Printf("%s  %-4s %s\n", d.Day, d.Status, d.Reason)
		}
	}
	fmt.Printf("run %s done: %d ok, %d skipped, %d failed (config %s)\n",
		report.RunID, report.OK, report.Skipped, report.Failed, report.ConfigHash)
	if report.Failed > 0 {
		os.Exit(1)
	}
}
