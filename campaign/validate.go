package campaign

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"creatorflow/escrow"
)

var (
	// ErrInvalidCampaign signals a campaign that fails validation.
	ErrInvalidCampaign = errors.New("campaign: invalid campaign")
	// ErrBudgetMismatch signals milestones that do not add up to the target budget.
	ErrBudgetMismatch = errors.New("campaign: milestone amounts must add up to the target budget")
	// ErrOverfunded signals funding beyond the target budget.
	ErrOverfunded = errors.New("campaign: funding would exceed the target budget")
	// ErrInvalidAmount signals a money amount that is not positive or does
	// not fit a money column.
	ErrInvalidAmount = errors.New("campaign: amount must be greater than zero and at most 999999999999.99")
	// ErrCampaignClosed signals a write against a completed campaign.
	ErrCampaignClosed = errors.New("campaign: campaign is completed")
	// ErrAlreadyReleased signals a second release of the same milestone.
	ErrAlreadyReleased = errors.New("campaign: milestone already released")
	// ErrInsufficientFunds signals a release larger than the unreleased funded amount.
	ErrInsufficientFunds = errors.New("campaign: insufficient funded amount for release")
	// ErrNotActive signals a release on a campaign that is not Active.
	ErrNotActive = errors.New("campaign: campaign is not active")
)

// Validate checks a campaign before it is written: amounts are not
// negative, milestones are named and sum to the target budget, and the
// funded amount stays within the target.
func Validate(f Funding) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCampaign)
	}
	switch f.Status {
	case StatusDraft, StatusActive, StatusCompleted:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidCampaign, f.Status)
	}
	if f.TargetBudget.IsNegative() || f.FundedAmount.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidCampaign)
	}
	if f.TargetBudget.GreaterThan(escrow.MaxAmount) {
		return fmt.Errorf("%w: target budget must be at most %s", ErrInvalidCampaign, escrow.MaxAmount.StringFixed(2))
	}
	if f.FundedAmount.GreaterThan(f.TargetBudget) {
		return ErrOverfunded
	}

	sum := decimal.Zero
	for i, m := range f.Milestones {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("%w: milestone %d needs a name", ErrInvalidCampaign, i)
		}
		if m.Amount.IsNegative() {
			return fmt.Errorf("%w: milestone %q has a negative amount", ErrInvalidCampaign, m.Name)
		}
		if m.Amount.GreaterThan(escrow.MaxAmount) {
			return fmt.Errorf("%w: milestone %q amount must be at most %s", ErrInvalidCampaign, m.Name, escrow.MaxAmount.StringFixed(2))
		}
		if m.Date.IsZero() {
			return fmt.Errorf("%w: milestone %q needs a date", ErrInvalidCampaign, m.Name)
		}
		sum = sum.Add(m.Amount)
	}
	if len(f.Milestones) > 0 && !sum.Equal(f.TargetBudget) {
		return fmt.Errorf("%w: milestones total %s, target %s", ErrBudgetMismatch, sum.StringFixed(2), f.TargetBudget.StringFixed(2))
	}
	return nil
}

// checkFund reports whether amount may be added to f.
func checkFund(f Funding, amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.GreaterThan(escrow.MaxAmount) {
		return ErrInvalidAmount
	}
	if f.Status == StatusCompleted {
		return ErrCampaignClosed
	}
	if f.FundedAmount.Add(amount).GreaterThan(f.TargetBudget) {
		return ErrOverfunded
	}
	return nil
}

// checkRelease returns the milestone at position if it may be released.
func checkRelease(f Funding, position int) (Milestone, error) {
	idx := -1
	for i, m := range f.Milestones {
		if m.Position == position {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Milestone{}, ErrMilestoneNotFound
	}
	m := f.Milestones[idx]
	if m.Status == MilestoneReleased {
		return Milestone{}, ErrAlreadyReleased
	}
	if f.Status != StatusActive {
		return Milestone{}, ErrNotActive
	}
	if f.ReleasedAmount().Add(m.Amount).GreaterThan(f.FundedAmount) {
		return Milestone{}, ErrInsufficientFunds
	}
	return m, nil
}

// allReleasedAfter reports whether releasing position completes f.
func allReleasedAfter(f Funding, position int) bool {
	for _, m := range f.Milestones {
		if m.Position != position && m.Status != MilestoneReleased {
			return false
		}
	}
	return len(f.Milestones) > 0
}
