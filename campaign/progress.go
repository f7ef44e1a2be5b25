package campaign

import "github.com/shopspring/decimal"

// FundingProgress is funded / target. ok is false when the target is zero
// and the ratio is undefined.
func FundingProgress(f Funding) (ratio float64, ok bool) {
	if !f.TargetBudget.IsPositive() {
		return 0, false
	}
	return f.FundedAmount.Div(f.TargetBudget).InexactFloat64(), true
}

// MilestoneProgress is the share of milestones released. ok is false when
// the campaign has no milestones.
func MilestoneProgress(f Funding) (ratio float64, ok bool) {
	if len(f.Milestones) == 0 {
		return 0, false
	}
	released := 0
	for _, m := range f.Milestones {
		if m.Status == MilestoneReleased {
			released++
		}
	}
	return float64(released) / float64(len(f.Milestones)), true
}

// Summary aggregates a set of campaigns.
type Summary struct {
	Campaigns       int
	TargetBudget    decimal.Decimal
	FundedAmount    decimal.Decimal
	ReleasedAmount  decimal.Decimal
	FundingProgress float64
	ProgressDefined bool
}

func Summarize(campaigns []Funding) Summary {
	s := Summary{
		Campaigns:      len(campaigns),
		TargetBudget:   decimal.Zero,
		FundedAmount:   decimal.Zero,
		ReleasedAmount: decimal.Zero,
	}
	for _, c := range campaigns {
		s.TargetBudget = s.TargetBudget.Add(c.TargetBudget)
		s.FundedAmount = s.FundedAmount.Add(c.FundedAmount)
		s.ReleasedAmount = s.ReleasedAmount.Add(c.ReleasedAmount())
	}
	s.FundingProgress, s.ProgressDefined = FundingProgress(Funding{
		TargetBudget: s.TargetBudget,
		FundedAmount: s.FundedAmount,
	})
	return s
}
