package campaign

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"creatorflow/escrow"
)

func TestService_Create(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(repo)

	f, err := svc.Create(context.Background(), "owner-1", CreateRequest{
		Name:         " Summer Launch ",
		TargetBudget: dec("100000"),
		Milestones: []MilestoneInput{
			{Name: "Kickoff", Amount: dec("30000"), Date: "2025-08-01"},
			{Name: "Content", Amount: dec("70000"), Date: "2025-09-01"},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.Status != StatusDraft || f.Name != "Summer Launch" || f.OwnerID != "owner-1" {
		t.Fatalf("unexpected campaign %+v", f)
	}
	if len(f.Milestones) != 2 || f.Milestones[1].Position != 1 || f.Milestones[1].Status != MilestonePending {
		t.Fatalf("unexpected milestones %+v", f.Milestones)
	}
	if repo.created == nil {
		t.Fatal("expected campaign to be stored")
	}
}

func TestService_CreateRejects(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{
			name: "mismatched milestones",
			req: CreateRequest{Name: "x", TargetBudget: dec("100"), Milestones: []MilestoneInput{
				{Name: "a", Amount: dec("40"), Date: "2025-01-01"},
			}},
			want: ErrBudgetMismatch,
		},
		{
			name: "bad milestone date",
			req: CreateRequest{Name: "x", TargetBudget: dec("100"), Milestones: []MilestoneInput{
				{Name: "a", Amount: dec("100"), Date: "01/01/2025"},
			}},
			want: ErrInvalidCampaign,
		},
		{
			name: "target past column range",
			req:  CreateRequest{Name: "x", TargetBudget: dec("1e13")},
			want: ErrInvalidCampaign,
		},
		{
			name: "created completed",
			req:  CreateRequest{Name: "x", Status: StatusCompleted, TargetBudget: dec("100")},
			want: ErrInvalidCampaign,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepository{}
			if _, err := NewService(repo).Create(context.Background(), "o", tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if repo.created != nil {
				t.Fatal("rejected campaign must not be stored")
			}
		})
	}
}

func TestService_Fund(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(repo)

	if _, _, err := svc.Fund(context.Background(), "o", "c", dec("-5")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, _, err := svc.Fund(context.Background(), "o", "c", dec("1e13")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount past the column range, got %v", err)
	}
	if repo.fundCalls != 0 {
		t.Fatal("invalid amount must not reach the repository")
	}

	if _, _, err := svc.Fund(context.Background(), "o", "c", dec("10.006")); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if !repo.fundedWith.Equal(dec("10.01")) {
		t.Fatalf("expected amount rounded to cents, got %s", repo.fundedWith)
	}
}

func TestService_ReleaseMilestone(t *testing.T) {
	repo := &fakeRepository{releaseErr: ErrAlreadyReleased}
	svc := NewService(repo)

	if _, _, err := svc.ReleaseMilestone(context.Background(), "o", "c", -1); !errors.Is(err, ErrMilestoneNotFound) {
		t.Fatalf("expected ErrMilestoneNotFound, got %v", err)
	}
	if _, _, err := svc.ReleaseMilestone(context.Background(), "o", "c", 0); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("expected ErrAlreadyReleased, got %v", err)
	}
}

type fakeRepository struct {
	created    *Funding
	fundCalls  int
	fundedWith decimal.Decimal
	releaseErr error
}

func (f *fakeRepository) List(context.Context, string) ([]Funding, error) { return nil, nil }

func (f *fakeRepository) Get(context.Context, string, string) (Funding, error) {
	return Funding{}, ErrNotFound
}

func (f *fakeRepository) Create(_ context.Context, c Funding) (Funding, error) {
	c.ID = "campaign-1"
	f.created = &c
	return c, nil
}

func (f *fakeRepository) Fund(_ context.Context, ownerID, id string, amount decimal.Decimal) (Funding, escrow.Transaction, error) {
	f.fundCalls++
	f.fundedWith = amount
	return Funding{ID: id, OwnerID: ownerID, FundedAmount: amount}, escrow.Transaction{Type: escrow.TypeFunding, Amount: amount}, nil
}

func (f *fakeRepository) ReleaseMilestone(context.Context, string, string, int) (Funding, escrow.Transaction, error) {
	return Funding{}, escrow.Transaction{}, f.releaseErr
}
