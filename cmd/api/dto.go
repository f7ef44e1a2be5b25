package main

import (
	"time"

	"creatorflow/auth"
	"creatorflow/campaign"
	"creatorflow/escrow"
	"creatorflow/meeting"
)

type userResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         auth.Role `json:"role"`
	GoogleLinked bool      `json:"googleLinked"`
	CreatedAt    string    `json:"createdAt"`
}

func newUserResponse(u auth.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		GoogleLinked: u.GoogleID != nil,
		CreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type meetingResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      *string `json:"role,omitempty"`
	Date      string  `json:"date"`
	TimeSlot  string  `json:"timeSlot"`
	Agenda    *string `json:"agenda,omitempty"`
	UserID    *string `json:"userId,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

func newMeetingResponse(m meeting.Meeting) meetingResponse {
	return meetingResponse{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      m.Role,
		Date:      m.Date.UTC().Format(time.RFC3339),
		TimeSlot:  m.TimeSlot,
		Agenda:    m.Agenda,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type milestoneResponse struct {
	Position   int                      `json:"position"`
	Name       string                   `json:"name"`
	Amount     float64                  `json:"amount"`
	Date       string                   `json:"date"`
	Status     campaign.MilestoneStatus `json:"status"`
	ReleasedAt *string                  `json:"releasedAt,omitempty"`
}

// campaignResponse carries progress ratios as null when they are undefined
// (zero target, no milestones).
type campaignResponse struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Status            campaign.Status     `json:"status"`
	TargetBudget      float64             `json:"targetBudget"`
	FundedAmount      float64             `json:"fundedAmount"`
	ReleasedAmount    float64             `json:"releasedAmount"`
	FundingProgress   *float64            `json:"fundingProgress"`
	MilestoneProgress *float64            `json:"milestoneProgress"`
	Milestones        []milestoneResponse `json:"milestones"`
	CreatedAt         string              `json:"createdAt"`
	UpdatedAt         string              `json:"updatedAt"`
}

func optionalRatio(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func newCampaignResponse(f campaign.Funding) campaignResponse {
	milestones := make([]milestoneResponse, 0, len(f.Milestones))
	for _, m := range f.Milestones {
		mr := milestoneResponse{
			Position: m.Position,
			Name:     m.Name,
			Amount:   m.Amount.InexactFloat64(),
			Date:     m.Date.Format(time.DateOnly),
			Status:   m.Status,
		}
		if m.ReleasedAt != nil {
			at := m.ReleasedAt.UTC().Format(time.RFC3339)
			mr.ReleasedAt = &at
		}
		milestones = append(milestones, mr)
	}

	return campaignResponse{
		ID:                f.ID,
		Name:              f.Name,
		Status:            f.Status,
		TargetBudget:      f.TargetBudget.InexactFloat64(),
		FundedAmount:      f.FundedAmount.InexactFloat64(),
		ReleasedAmount:    f.ReleasedAmount().InexactFloat64(),
		FundingProgress:   optionalRatio(campaign.FundingProgress(f)),
		MilestoneProgress: optionalRatio(campaign.MilestoneProgress(f)),
		Milestones:        milestones,
		CreatedAt:         f.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type summaryResponse struct {
	Campaigns       int      `json:"campaigns"`
	TargetBudget    float64  `json:"targetBudget"`
	FundedAmount    float64  `json:"fundedAmount"`
	ReleasedAmount  float64  `json:"releasedAmount"`
	FundingProgress *float64 `json:"fundingProgress"`
}

func newSummaryResponse(s campaign.Summary) summaryResponse {
	return summaryResponse{
		Campaigns:       s.Campaigns,
		TargetBudget:    s.TargetBudget.InexactFloat64(),
		FundedAmount:    s.FundedAmount.InexactFloat64(),
		ReleasedAmount:  s.ReleasedAmount.InexactFloat64(),
		FundingProgress: optionalRatio(s.FundingProgress, s.ProgressDefined),
	}
}

type breakdownResponse struct {
	TotalBalance    float64 `json:"totalBalance"`
	AllocatedActive float64 `json:"allocatedActive"`
	Released        float64 `json:"released"`
	PendingRelease  float64 `json:"pendingRelease"`
	Unallocated     float64 `json:"unallocated"`
}

func newBreakdownResponse(b escrow.Breakdown) breakdownResponse {
	return breakdownResponse{
		TotalBalance:    b.Total().InexactFloat64(),
		AllocatedActive: b.AllocatedActive.InexactFloat64(),
		Released:        b.Released.InexactFloat64(),
		PendingRelease:  b.PendingRelease.InexactFloat64(),
		Unallocated:     b.Unallocated.InexactFloat64(),
	}
}

type historyPointResponse struct {
	TakenAt string `json:"takenAt"`
	breakdownResponse
}

type snapshotResponse struct {
	breakdownResponse
	History []historyPointResponse `json:"history"`
}

type dashboardResponse struct {
	Snapshot  snapshotResponse     `json:"snapshot"`
	Liquidity escrow.LiquidityView `json:"liquidity"`
}

func newDashboardResponse(d escrow.Dashboard) dashboardResponse {
	history := make([]historyPointResponse, 0, len(d.Snapshot.History))
	for _, p := range d.Snapshot.History {
		history = append(history, historyPointResponse{
			TakenAt:           p.TakenAt.UTC().Format(time.RFC3339),
			breakdownResponse: newBreakdownResponse(p.Breakdown),
		})
	}
	return dashboardResponse{
		Snapshot: snapshotResponse{
			breakdownResponse: newBreakdownResponse(d.Snapshot.Breakdown),
			History:           history,
		},
		Liquidity: d.Liquidity,
	}
}

func newTransactionResponse(tx escrow.Transaction) escrow.FeedItem {
	return escrow.RenderFeed([]escrow.Transaction{tx})[0]
}
