package engine

// FirstTouchResult says which exit level a bar's range reached first.
type FirstTouchResult int

const (
	TouchNone FirstTouchResult = iota
	TouchTarget
	TouchStop
)

// ResolveFirstTouch applies first-touch exit resolution for one bar.
// When both the stop and the target sit inside the bar's high-low range
// the true intrabar path is unknowable from OHLC, so the stop wins:
// assume the worse outcome rather than invent a favorable path.
func ResolveFirstTouch(bar Bar, dir Direction, target, stop float64) FirstTouchResult {
	if dir == DirUp {
		if bar.Low <= stop {
			return TouchStop
		}
		if bar.High >= target {
			return TouchTarget
		}
		return TouchNone
	}
	if bar.High >= stop {
		return TouchStop
	}
	if bar.Low <= target {
		return TouchTarget
	}
	return TouchNone
}
