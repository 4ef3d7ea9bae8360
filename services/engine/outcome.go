package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// ClassifyOutcome converts a simulated trade (or its absence) into the
// categorical outcome and signed, cost-adjusted R-multiple.
//
// Gross values are WIN=+rr, LOSS=-1.0, NO_TRADE=0.0. A configured cost
// model subtracts (commission + slippage_ticks*tick_value) expressed in
// R units; with zero risk the cost contribution is zero, not infinite.
// The result must be finite — NaN/Inf is a logic defect and aborts the
// run rather than reaching the feature table.
func ClassifyOutcome(tr *SimulatedTrade, rr float64, cost *CostConfig, tickValue decimal.Decimal) (Outcome, float64, error) {
	if tr == nil || tr.ExitReason == ExitNone {
		return OutcomeNoTrade, 0, nil
	}

	var gross float64
	var outcome Outcome
	switch tr.ExitReason {
	case ExitTarget:
		outcome, gross = OutcomeWin, rr
	case ExitStop:
		outcome, gross = OutcomeLoss, -1.0
	}

	r := gross - costR(cost, tr.RiskTicks, tickValue)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return "", 0, &IntegrityError{Direction: tr.Direction, Reason: "non-finite r-multiple"}
	}
	return outcome, r, nil
}

// costR converts the dollar round-trip cost into R units. Money math in
// decimal; the final ratio comes back to float64 for the feature row.
func costR(cost *CostConfig, riskTicks float64, tickValue decimal.Decimal) float64 {
	if cost == nil || riskTicks == 0 {
		return 0
	}
	riskDollars := decimal.NewFromFloat(riskTicks).Mul(tickValue)
	if riskDollars.IsZero() {
		return 0
	}
	slip := decimal.NewFromFloat(cost.SlippageTicks).Mul(tickValue)
	total := cost.CommissionRoundTrip.Add(slip)
	r, _ := total.Div(riskDollars).Float64()
	return r
}
