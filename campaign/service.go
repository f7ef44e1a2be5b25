package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"creatorflow/escrow"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Funding, error) {
	return s.repo.List(ctx, ownerID)
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (Funding, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// Create validates and stores a new campaign. Status defaults to Draft;
// a campaign cannot be created Completed.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (Funding, error) {
	status := req.Status
	if status == "" {
		status = StatusDraft
	}
	if status == StatusCompleted {
		return Funding{}, fmt.Errorf("%w: a new campaign cannot be completed", ErrInvalidCampaign)
	}

	f := Funding{
		OwnerID:      ownerID,
		Name:         strings.TrimSpace(req.Name),
		Status:       status,
		TargetBudget: req.TargetBudget.Round(2),
		FundedAmount: decimal.Zero,
	}
	for i, in := range req.Milestones {
		date, err := time.Parse(time.DateOnly, strings.TrimSpace(in.Date))
		if err != nil {
			return Funding{}, fmt.Errorf("%w: milestone %d date %q must be YYYY-MM-DD", ErrInvalidCampaign, i, in.Date)
		}
		f.Milestones = append(f.Milestones, Milestone{
			Position: i,
			Name:     strings.TrimSpace(in.Name),
			Amount:   in.Amount.Round(2),
			Date:     date,
			Status:   MilestonePending,
		})
	}

	if err := Validate(f); err != nil {
		return Funding{}, err
	}
	return s.repo.Create(ctx, f)
}

// Fund adds money to a campaign and returns the ledger entry written for it.
func (s *Service) Fund(ctx context.Context, ownerID, id string, amount decimal.Decimal) (Funding, escrow.Transaction, error) {
	if !amount.IsPositive() || amount.Round(2).GreaterThan(escrow.MaxAmount) {
		return Funding{}, escrow.Transaction{}, ErrInvalidAmount
	}
	return s.repo.Fund(ctx, ownerID, id, amount.Round(2))
}

// ReleaseMilestone pays out the milestone at position.
func (s *Service) ReleaseMilestone(ctx context.Context, ownerID, id string, position int) (Funding, escrow.Transaction, error) {
	if position < 0 {
		return Funding{}, escrow.Transaction{}, ErrMilestoneNotFound
	}
	return s.repo.ReleaseMilestone(ctx, ownerID, id, position)
}
