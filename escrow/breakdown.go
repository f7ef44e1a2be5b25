package escrow

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// maxCoverage is reported when nothing falls due inside the window.
const maxCoverage = 3.0

// Derive turns raw sums into the allocation breakdown and liquidity health.
//
// Funds still in escrow are funded minus released. A net credit from manual
// adjustments forms the Unallocated pool. A net debit is taken out of the
// escrowed funds, so it lowers the total and the coverage ratio. What
// remains is split into PendingRelease, covering milestones due inside the
// window, and AllocatedActive.
func Derive(p Position) (Breakdown, LiquidityHealth) {
	held := nonNegative(p.Funded.Sub(p.Released))
	available := nonNegative(held.Add(p.NetAdjustments))
	unallocated := nonNegative(p.NetAdjustments)
	inEscrow := available.Sub(unallocated)
	pending := decimal.Min(inEscrow, nonNegative(p.DueSoon))

	b := Breakdown{
		AllocatedActive: inEscrow.Sub(pending),
		Released:        nonNegative(p.Released),
		PendingRelease:  pending,
		Unallocated:     unallocated,
	}
	return b, Health(available, nonNegative(p.DueSoon))
}

// Health computes the coverage ratio of available funds to obligations and
// classifies it.
func Health(available, obligations decimal.Decimal) LiquidityHealth {
	if !obligations.IsPositive() {
		return LiquidityHealth{
			Status:      StatusHealthy,
			Ratio:       maxCoverage,
			Explanation: "No milestone payments are due in the upcoming window.",
		}
	}

	ratio := available.Div(obligations).Round(2).InexactFloat64()
	status := DeriveStatus(ratio)

	var explanation string
	switch status {
	case StatusHealthy:
		explanation = fmt.Sprintf("Escrow covers upcoming milestone payments %.1fx.", ratio)
	case StatusWatch:
		explanation = fmt.Sprintf("Escrow covers upcoming milestone payments %.1fx; consider adding funds.", ratio)
	default:
		explanation = fmt.Sprintf("Escrow covers only %.0f%% of upcoming milestone payments.", ratio*100)
	}

	return LiquidityHealth{Status: status, Ratio: ratio, Explanation: explanation}
}

// DeriveStatus classifies a coverage ratio: 1.5 and above is healthy, 1.0
// and above is watch, anything lower is risk.
func DeriveStatus(ratio float64) Status {
	switch {
	case ratio >= 1.5:
		return StatusHealthy
	case ratio >= 1.0:
		return StatusWatch
	default:
		return StatusRisk
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
