package campaign

import (
	"errors"
	"testing"
	"time"
)

func validFunding() Funding {
	day := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	return Funding{
		Name:         "Summer Launch",
		Status:       StatusActive,
		TargetBudget: dec("100000"),
		FundedAmount: dec("40000"),
		Milestones: []Milestone{
			{Position: 0, Name: "Kickoff", Amount: dec("30000"), Date: day, Status: MilestonePending},
			{Position: 1, Name: "Content", Amount: dec("70000"), Date: day.AddDate(0, 1, 0), Status: MilestonePending},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Funding)
		want   error
	}{
		{"valid", func(*Funding) {}, nil},
		{"no milestones", func(f *Funding) { f.Milestones = nil }, nil},
		{"missing name", func(f *Funding) { f.Name = "  " }, ErrInvalidCampaign},
		{"unknown status", func(f *Funding) { f.Status = "Paused" }, ErrInvalidCampaign},
		{"negative target", func(f *Funding) { f.TargetBudget = dec("-1") }, ErrInvalidCampaign},
		{"overfunded", func(f *Funding) { f.FundedAmount = dec("100000.01") }, ErrOverfunded},
		{"milestone sum mismatch", func(f *Funding) { f.Milestones[1].Amount = dec("69999.99") }, ErrBudgetMismatch},
		{"unnamed milestone", func(f *Funding) { f.Milestones[0].Name = "" }, ErrInvalidCampaign},
		{"negative milestone", func(f *Funding) { f.Milestones[0].Amount = dec("-30000") }, ErrInvalidCampaign},
		{"target past column range", func(f *Funding) { f.TargetBudget = dec("1e13") }, ErrInvalidCampaign},
		{"milestone past column range", func(f *Funding) { f.Milestones[0].Amount = dec("1e13") }, ErrInvalidCampaign},
		{"undated milestone", func(f *Funding) { f.Milestones[0].Date = time.Time{} }, ErrInvalidCampaign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFunding()
			tt.mutate(&f)
			err := Validate(f)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckFund(t *testing.T) {
	f := validFunding()

	if err := checkFund(f, dec("60000")); err != nil {
		t.Fatalf("funding to target should succeed: %v", err)
	}
	if err := checkFund(f, dec("60000.01")); !errors.Is(err, ErrOverfunded) {
		t.Fatalf("expected ErrOverfunded, got %v", err)
	}
	if err := checkFund(f, dec("0")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	f.Status = StatusCompleted
	if err := checkFund(f, dec("1")); !errors.Is(err, ErrCampaignClosed) {
		t.Fatalf("expected ErrCampaignClosed, got %v", err)
	}
}

func TestCheckRelease(t *testing.T) {
	f := validFunding()

	m, err := checkRelease(f, 0)
	if err != nil {
		t.Fatalf("release kickoff: %v", err)
	}
	if m.Name != "Kickoff" {
		t.Fatalf("unexpected milestone %+v", m)
	}

	if _, err := checkRelease(f, 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := checkRelease(f, 7); !errors.Is(err, ErrMilestoneNotFound) {
		t.Fatalf("expected ErrMilestoneNotFound, got %v", err)
	}

	f.Milestones[0].Status = MilestoneReleased
	if _, err := checkRelease(f, 0); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("expected ErrAlreadyReleased, got %v", err)
	}

	draft := validFunding()
	draft.Status = StatusDraft
	if _, err := checkRelease(draft, 0); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestAllReleasedAfter(t *testing.T) {
	f := validFunding()
	if allReleasedAfter(f, 0) {
		t.Fatal("one pending milestone remains")
	}
	f.Milestones[0].Status = MilestoneReleased
	if !allReleasedAfter(f, 1) {
		t.Fatal("releasing the last milestone completes the campaign")
	}
	if allReleasedAfter(Funding{}, 0) {
		t.Fatal("campaign without milestones never completes by release")
	}
}
