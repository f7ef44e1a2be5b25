package campaign

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
)

type MilestoneStatus string

const (
	MilestonePending  MilestoneStatus = "Pending"
	MilestoneReleased MilestoneStatus = "released"
)

// Milestone is a dated tranche of a campaign budget. Position is its index
// in the campaign's ordered milestone list.
type Milestone struct {
	Position   int
	Name       string
	Amount     decimal.Decimal
	Date       time.Time
	Status     MilestoneStatus
	ReleasedAt *time.Time
}

// Funding is a campaign with its budget and milestones.
type Funding struct {
	ID           string
	OwnerID      string
	Name         string
	Status       Status
	TargetBudget decimal.Decimal
	FundedAmount decimal.Decimal
	Milestones   []Milestone
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReleasedAmount sums the released milestones.
func (f Funding) ReleasedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, m := range f.Milestones {
		if m.Status == MilestoneReleased {
			total = total.Add(m.Amount)
		}
	}
	return total
}

// MilestoneInput is one milestone as submitted. Date is YYYY-MM-DD.
type MilestoneInput struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

// CreateRequest describes a new campaign.
type CreateRequest struct {
	Name         string           `json:"name"`
	Status       Status           `json:"status"`
	TargetBudget decimal.Decimal  `json:"targetBudget"`
	Milestones   []MilestoneInput `json:"milestones"`
}
