package engine

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// StopMode places the protective stop for a confirmed breakout.
type StopMode string

const (
	StopFull StopMode = "FULL" // opposite range boundary
	StopHalf StopMode = "HALF" // range midpoint
)

// EntryMode picks the fill price once a breakout is confirmed.
type EntryMode string

const (
	EntryConfirmClose EntryMode = "CLOSE"     // confirming bar's close
	EntryNextOpen     EntryMode = "NEXT_OPEN" // next bar's open
)

// WindowConfig is one named session window in reference-timezone wall time.
// Context windows (PRE_ASIA style) contribute range-size context only and
// never produce trades.
type WindowConfig struct {
	Name               string    `json:"name" validate:"required"`
	Start              string    `json:"start" validate:"required"` // HH:MM
	End                string    `json:"end" validate:"required"`   // HH:MM, exclusive
	ContextOnly        bool      `json:"context_only,omitempty"`
	ConfirmationCloses int       `json:"confirmation_closes,omitempty" validate:"omitempty,min=1,max=3"`
	StopMode           StopMode  `json:"stop_mode,omitempty" validate:"omitempty,oneof=FULL HALF"`
	EntryMode          EntryMode `json:"entry_mode,omitempty" validate:"omitempty,oneof=CLOSE NEXT_OPEN"`
	RRTargets          []float64 `json:"rr_targets,omitempty" validate:"omitempty,dive,gt=0"`
	MinRangeTicks      float64   `json:"min_range_ticks,omitempty" validate:"omitempty,gt=0"`
	MaxRangeTicks      float64   `json:"max_range_ticks,omitempty" validate:"omitempty,gt=0"`
}

// CostConfig models round-trip commission plus slippage. Absent means
// gross (zero-cost) R-multiples.
type CostConfig struct {
	CommissionRoundTrip decimal.Decimal `json:"commission_round_trip"`
	SlippageTicks       float64         `json:"slippage_ticks" validate:"gte=0"`
}

// InstrumentConfig is the single source of truth for one instrument's
// windows and risk parameters. Validated once at batch start, then passed
// by reference and never mutated mid-run.
type InstrumentConfig struct {
	Instrument    string          `json:"instrument" validate:"required"`
	TickSize      float64         `json:"tick_size" validate:"gt=0"`
	TickValue     decimal.Decimal `json:"tick_value"`
	ReferenceZone string          `json:"reference_zone,omitempty"`
	DayEnd        string          `json:"day_end,omitempty"` // HH:MM, session cutoff
	Windows       []WindowConfig  `json:"windows" validate:"required,min=1,dive"`
	Cost          *CostConfig     `json:"cost,omitempty"`

	hash string
}

// DefaultMGC is the stock micro-gold research config: Brisbane ORB windows
// at 09:00/10:00/18:00 with a pre-Asia context window.
func DefaultMGC() *InstrumentConfig {
	return &InstrumentConfig{
		Instrument:    "MGC",
		TickSize:      0.1,
		TickValue:     decimal.NewFromInt(1),
		ReferenceZone: "Australia/Brisbane",
		DayEnd:        "23:59",
		Windows: []WindowConfig{
			{Name: "PRE_ASIA", Start: "07:00", End: "09:00", ContextOnly: true},
			{Name: "0900", Start: "09:00", End: "09:01", ConfirmationCloses: 1, StopMode: StopFull, EntryMode: EntryConfirmClose, RRTargets: []float64{2.0}},
			{Name: "1000", Start: "10:00", End: "10:01", ConfirmationCloses: 1, StopMode: StopFull, EntryMode: EntryConfirmClose, RRTargets: []float64{2.0}},
			{Name: "1800", Start: "18:00", End: "18:01", ConfirmationCloses: 1, StopMode: StopFull, EntryMode: EntryConfirmClose, RRTargets: []float64{2.0}},
		},
	}
}

// LoadConfig reads and validates an instrument config from a JSON file.
func LoadConfig(path string) (*InstrumentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg InstrumentConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &InputValidationError{Field: "config", Value: path, Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate applies struct tags plus the cross-field rules tags cannot
// express, fills defaults, and freezes the config hash.
func (c *InstrumentConfig) Validate() error {
	if c.ReferenceZone == "" {
		c.ReferenceZone = "Australia/Brisbane"
	}
	if c.DayEnd == "" {
		c.DayEnd = "23:59"
	}
	if err := validate.Struct(c); err != nil {
		return &InputValidationError{Field: "config", Value: c.Instrument, Reason: err.Error()}
	}
	if _, err := time.LoadLocation(c.ReferenceZone); err != nil {
		return &InputValidationError{Field: "reference_zone", Value: c.ReferenceZone, Reason: err.Error()}
	}
	if _, err := parseClock(c.DayEnd); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Windows))
	contexts := 0
	for i := range c.Windows {
		w := &c.Windows[i]
		if seen[w.Name] {
			return &InputValidationError{Field: "window", Value: w.Name, Reason: "duplicate name"}
		}
		seen[w.Name] = true

		start, err := parseClock(w.Start)
		if err != nil {
			return err
		}
		end, err := parseClock(w.End)
		if err != nil {
			return err
		}
		if end <= start {
			return &InputValidationError{Field: "window", Value: w.Name, Reason: "end must be after start"}
		}

		if w.ContextOnly {
			contexts++
			continue
		}
		if w.ConfirmationCloses == 0 {
			w.ConfirmationCloses = 1
		}
		if w.StopMode == "" {
			w.StopMode = StopFull
		}
		if w.EntryMode == "" {
			w.EntryMode = EntryConfirmClose
		}
		if len(w.RRTargets) == 0 {
			return &InputValidationError{Field: "window", Value: w.Name, Reason: "at least one rr target required"}
		}
		if w.MaxRangeTicks > 0 && w.MaxRangeTicks < w.MinRangeTicks {
			return &InputValidationError{Field: "window", Value: w.Name, Reason: "max_range_ticks below min_range_ticks"}
		}
	}
	if contexts > 1 {
		return &InputValidationError{Field: "config", Value: c.Instrument, Reason: "at most one context window supported"}
	}

	// Windows must be chronological so same-day context stays backward-looking.
	if !sort.SliceIsSorted(c.Windows, func(i, j int) bool {
		a, _ := parseClock(c.Windows[i].Start)
		b, _ := parseClock(c.Windows[j].Start)
		return a < b
	}) {
		return &InputValidationError{Field: "windows", Value: c.Instrument, Reason: "must be in chronological start order"}
	}

	c.hash = c.computeHash()
	return nil
}

// Hash identifies the exact validated configuration. Stamped on every
// feature row so historical rows stay interpretable after config changes.
func (c *InstrumentConfig) Hash() string { return c.hash }

func (c *InstrumentConfig) computeHash() string {
	// json.Marshal on the struct is canonical here: field order is fixed
	// by declaration and windows keep their configured order.
	b, _ := json.Marshal(c)
	return fmt.Sprintf("%x", sha256.Sum256(b))[:16]
}

// Location resolves the reference timezone. Valid after Validate.
func (c *InstrumentConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReferenceZone)
	if err != nil {
		panic(fmt.Sprintf("reference zone %q vanished after validation: %v", c.ReferenceZone, err))
	}
	return loc
}

// ContextWindow returns the context-only window, if configured.
func (c *InstrumentConfig) ContextWindow() *WindowConfig {
	for i := range c.Windows {
		if c.Windows[i].ContextOnly {
			return &c.Windows[i]
		}
	}
	return nil
}

// TradingWindows returns the non-context windows in configured order.
func (c *InstrumentConfig) TradingWindows() []WindowConfig {
	out := make([]WindowConfig, 0, len(c.Windows))
	for _, w := range c.Windows {
		if !w.ContextOnly {
			out = append(out, w)
		}
	}
	return out
}

// parseClock parses "HH:MM" into minutes after local midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, &InputValidationError{Field: "time", Value: s, Reason: "want HH:MM"}
	}
	return t.Hour()*60 + t.Minute(), nil
}
