package engine

import "fmt"

// DataGapError: no bars for a day or window. Recoverable; the slot
// propagates as an undefined range / NO_TRADE and the day is logged
// as a skip, never fatal.
type DataGapError struct {
	Day    Day
	Window string
}

func (e *DataGapError) Error() string {
	if e.Window == "" {
		return fmt.Sprintf("data gap: no bars for day %s", e.Day)
	}
	return fmt.Sprintf("data gap: no bars for day %s window %s", e.Day, e.Window)
}

// InputValidationError: malformed timestamp, bad risk parameter,
// unsupported window name. Fatal for the offending unit only.
type InputValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IntegrityError indicates a logic defect: NaN/Inf R-multiple, a range
// with high < low, or a breakout taken from a bar inside the window.
// Halts the whole run; corrupted rows must never reach the feature table.
type IntegrityError struct {
	Day       Day
	Window    string
	Direction Direction
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation at (%s, %s, %s): %s", e.Day, e.Window, e.Direction, e.Reason)
}

// PersistenceError wraps a failed feature-table read or write. The store
// guarantees the affected range keeps its prior state; callers may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
