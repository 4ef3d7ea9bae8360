package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var simWindowEnd = time.Date(2024, 6, 11, 0, 1, 0, 0, time.UTC) // 10:01 Brisbane

func simRange() OpeningRange {
	return OpeningRange{Day: "2024-06-11", Window: "1000", Defined: true,
		High: 2650.0, Low: 2648.0, SizeTicks: 20, BarCount: 1}
}

func simWindow() WindowConfig {
	return WindowConfig{Name: "1000", Start: "10:00", End: "10:01",
		ConfirmationCloses: 1, StopMode: StopFull, EntryMode: EntryConfirmClose, RRTargets: []float64{2.0}}
}

// pb builds a post-window bar n minutes past the window end.
func pb(n int, o, h, l, c float64) Bar {
	return Bar{Timestamp: simWindowEnd.Add(time.Duration(n) * time.Minute), Open: o, High: h, Low: l, Close: c}
}

func TestSimulateTargetHit(t *testing.T) {
	bars := []Bar{
		pb(1, 2649.5, 2650.5, 2649.0, 2650.2), // first close above the range high
		pb(2, 2650.2, 2654.7, 2650.0, 2654.5), // target touched
	}
	tr, err := Simulate(simRange(), DirUp, bars, simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.Equal(t, ExitTarget, tr.ExitReason)
	require.InDelta(t, 2650.2, tr.EntryPrice, 1e-9)
	require.InDelta(t, 2648.0, tr.StopPrice, 1e-9)
	require.InDelta(t, 22.0, tr.RiskTicks, 1e-9)
	require.InDelta(t, 2654.6, tr.TargetPrice, 1e-9)
	require.Equal(t, bars[1].Timestamp, tr.ExitTime)
}

func TestSimulateStopHit(t *testing.T) {
	bars := []Bar{
		pb(1, 2649.5, 2650.5, 2649.0, 2650.2),
		pb(2, 2650.2, 2651.0, 2647.9, 2648.5), // stop touched before any target
	}
	tr, err := Simulate(simRange(), DirUp, bars, simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.Equal(t, ExitStop, tr.ExitReason)
	require.InDelta(t, 2648.0, tr.ExitPrice, 1e-9)
}

func TestSimulateStopWinsWhenBothInOneBar(t *testing.T) {
	// One wide bar spans both levels; the worse outcome is assumed.
	bars := []Bar{
		pb(1, 2649.5, 2650.5, 2649.0, 2650.2),
		pb(2, 2650.2, 2656.0, 2647.0, 2652.0),
	}
	tr, err := Simulate(simRange(), DirUp, bars, simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.Equal(t, ExitStop, tr.ExitReason)
}

func TestSimulateDownDirection(t *testing.T) {
	bars := []Bar{
		pb(1, 2648.5, 2649.0, 2647.5, 2647.8), // close below the range low
		pb(2, 2647.8, 2648.0, 2643.0, 2643.5), // target = 2647.8 - 2*2.2 = 2643.4
	}
	tr, err := Simulate(simRange(), DirDown, bars, simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.Equal(t, ExitTarget, tr.ExitReason)
	require.InDelta(t, 2650.0, tr.StopPrice, 1e-9)
	require.InDelta(t, 2643.4, tr.TargetPrice, 1e-9)
}

func TestSimulateConfirmationClosesResetOnPullback(t *testing.T) {
	w := simWindow()
	w.ConfirmationCloses = 2
	bars := []Bar{
		pb(1, 2649.5, 2650.5, 2649.0, 2650.2), // beyond, run=1
		pb(2, 2650.2, 2650.4, 2649.0, 2649.5), // back inside, run resets
		pb(3, 2649.5, 2650.6, 2649.4, 2650.3), // beyond, run=1
		pb(4, 2650.3, 2650.8, 2650.0, 2650.5), // beyond, run=2 -> entry here
		pb(5, 2650.5, 2656.0, 2650.4, 2655.0),
	}
	tr, err := Simulate(simRange(), DirUp, bars, w, 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.Equal(t, bars[3].Timestamp, tr.EntryTime)
	require.InDelta(t, 2650.5, tr.EntryPrice, 1e-9)
}

func TestSimulateNextOpenEntry(t *testing.T) {
	w := simWindow()
	w.EntryMode = EntryNextOpen
	bars := []Bar{
		pb(1, 2649.5, 2650.5, 2649.0, 2650.2),
		pb(2, 2650.4, 2655.2, 2650.3, 2655.0), // fill at this bar's open; the bar itself can exit
	}
	tr, err := Simulate(simRange(), DirUp, bars, w, 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.InDelta(t, 2650.4, tr.EntryPrice, 1e-9)
	require.Equal(t, bars[1].Timestamp, tr.EntryTime)
	// target = 2650.4 + 2*2.4 = 2655.2, touched by the fill bar's high
	require.Equal(t, ExitTarget, tr.ExitReason)
}

func TestSimulateNextOpenOnLastBarIsNoTrade(t *testing.T) {
	w := simWindow()
	w.EntryMode = EntryNextOpen
	bars := []Bar{pb(1, 2649.5, 2650.5, 2649.0, 2650.2)}
	tr, err := Simulate(simRange(), DirUp, bars, w, 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.Nil(t, tr)
}

func TestSimulateHalfStop(t *testing.T) {
	w := simWindow()
	w.StopMode = StopHalf
	bars := []Bar{
		pb(1, 2649.5, 2650.5, 2649.2, 2650.2),
		pb(2, 2650.2, 2650.6, 2648.9, 2649.1), // mid = 2649.0 touched
	}
	tr, err := Simulate(simRange(), DirUp, bars, w, 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.Equal(t, ExitStop, tr.ExitReason)
	require.InDelta(t, 2649.0, tr.StopPrice, 1e-9)
}

func TestSimulateUnresolvedAtSessionEnd(t *testing.T) {
	bars := []Bar{
		pb(1, 2649.5, 2650.5, 2649.0, 2650.2),
		pb(2, 2650.2, 2651.0, 2649.5, 2650.8), // neither level touched
	}
	tr, err := Simulate(simRange(), DirUp, bars, simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.Equal(t, ExitNone, tr.ExitReason)
}

func TestSimulateNoBreakoutIsNil(t *testing.T) {
	bars := []Bar{
		pb(1, 2649.0, 2649.8, 2648.2, 2649.5),
		pb(2, 2649.5, 2649.9, 2648.1, 2648.4),
	}
	tr, err := Simulate(simRange(), DirUp, bars, simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.Nil(t, tr)
}

func TestSimulateUndefinedRangeIsNil(t *testing.T) {
	tr, err := Simulate(OpeningRange{Day: "2024-06-11", Window: "1000"}, DirUp,
		[]Bar{pb(1, 1, 2, 0.5, 1.5)}, simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.Nil(t, tr)
}

func TestSimulateRejectsInWindowBar(t *testing.T) {
	bars := []Bar{{Timestamp: simWindowEnd, Open: 2650, High: 2651, Low: 2649, Close: 2650.5}}
	_, err := Simulate(simRange(), DirUp, bars, simWindow(), 2.0, 0.1, simWindowEnd)
	var integ *IntegrityError
	require.ErrorAs(t, err, &integ)
}

func TestSimulateTracksExcursions(t *testing.T) {
	bars := []Bar{
		pb(1, 2649.5, 2650.5, 2649.0, 2650.2), // entry 2650.2
		pb(2, 2650.2, 2651.2, 2649.2, 2650.0), // adverse 10 ticks, favorable 10 ticks
		pb(3, 2650.0, 2652.2, 2649.7, 2652.0), // favorable 20 ticks
		pb(4, 2652.0, 2654.7, 2651.0, 2654.5), // exit at target
	}
	tr, err := Simulate(simRange(), DirUp, bars, simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.Equal(t, ExitTarget, tr.ExitReason)
	require.InDelta(t, 10.0, tr.MAETicks, 1e-9)
	require.InDelta(t, 45.0, tr.MFETicks, 1e-9) // exit bar high 2654.7
}

func TestSimulateIgnoresBarsPastDecisionPath(t *testing.T) {
	bars := []Bar{
		pb(1, 2649.5, 2650.5, 2649.0, 2650.2),
		pb(2, 2650.2, 2654.7, 2650.0, 2654.5),
		pb(3, 2654.5, 2660.0, 2640.0, 2641.0), // after exit; must not matter
	}
	full, err := Simulate(simRange(), DirUp, bars, simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	trimmed, err := Simulate(simRange(), DirUp, bars[:2], simWindow(), 2.0, 0.1, simWindowEnd)
	require.NoError(t, err)
	require.Equal(t, trimmed, full)
}
