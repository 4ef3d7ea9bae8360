// Package store persists bars and feature rows. The ClickHouse backend is
// the production path; SQLite serves fully-local research runs; the
// in-memory store backs tests.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jbot-bit/orb-pipeline/services/engine"
)

// Store is a combined bar source, bar sink, and feature store.
type Store interface {
	engine.BarSource
	engine.FeatureStore
	InsertBars(ctx context.Context, instrument string, bars []engine.Bar) error
	EnsureSchema(ctx context.Context) error
	Close() error
}

// Open builds a store by backend name (clickhouse, sqlite).
// Returns an error for unsupported backends.
func Open(kind, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "clickhouse":
		return OpenClickHouse(OptionsFromDSN(dsn))
	case "sqlite":
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported backend %q (use: clickhouse, sqlite)", kind)
	}
}
