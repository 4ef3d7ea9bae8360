package export

import (
	"fmt"
	"strings"
)

// NewSaver picks an implementation by format (csv, parquet, json).
// Returns nil for unsupported formats.
func NewSaver(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// MustSaver is NewSaver that panics on an unsupported format.
func MustSaver(format string) Saver {
	s := NewSaver(format)
	if s == nil {
		panic(fmt.Sprintf("export: unsupported format %q (use: csv, parquet, json)", format))
	}
	return s
}
