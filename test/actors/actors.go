package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"creatorflow/campaign"
	"creatorflow/escrow"
)

// Stats counts actor outcomes. Rejected operations were refused by a
// business rule; Unexpected ones failed for any other reason, typically a
// backend killed by chaos.
type Stats struct {
	Succeeded  atomic.Int64
	Rejected   atomic.Int64
	Unexpected atomic.Int64
}

func (s *Stats) String() string {
	return fmt.Sprintf("succeeded=%d rejected=%d unexpected=%d",
		s.Succeeded.Load(), s.Rejected.Load(), s.Unexpected.Load())
}

func (s *Stats) record(err error, rejections ...error) {
	if err == nil {
		s.Succeeded.Add(1)
		return
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			s.Rejected.Add(1)
			return
		}
	}
	s.Unexpected.Add(1)
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

func pause(minMs, spreadMs int) {
	time.Sleep(time.Duration(minMs+rand.Intn(spreadMs)) * time.Millisecond)
}

// Funder keeps adding small amounts to random campaigns, racing other
// funders toward each target budget.
func Funder(ctx context.Context, repo campaign.Repository, ownerID string, campaignIDs []string, stats *Stats, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		id := campaignIDs[rand.Intn(len(campaignIDs))]
		amount := decimal.NewFromInt(int64(50 + rand.Intn(950)))
		_, _, err := repo.Fund(ctx, ownerID, id, amount)
		stats.record(err, campaign.ErrOverfunded, campaign.ErrCampaignClosed)
		pause(5, 20)
	}
	return nil
}

// Releaser releases random milestones, racing other releasers for the same
// position.
func Releaser(ctx context.Context, repo campaign.Repository, ownerID string, campaignIDs []string, milestones int, stats *Stats, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		id := campaignIDs[rand.Intn(len(campaignIDs))]
		_, _, err := repo.ReleaseMilestone(ctx, ownerID, id, rand.Intn(milestones))
		stats.record(err,
			campaign.ErrAlreadyReleased,
			campaign.ErrInsufficientFunds,
			campaign.ErrNotActive,
			campaign.ErrMilestoneNotFound,
		)
		pause(10, 30)
	}
	return nil
}

// Adjuster records manual credits and debits against random campaigns.
func Adjuster(ctx context.Context, repo escrow.Repository, ownerID string, campaignIDs []string, stats *Stats, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		id := campaignIDs[rand.Intn(len(campaignIDs))]
		direction := escrow.DirectionCredit
		if rand.Intn(2) == 0 {
			direction = escrow.DirectionDebit
		}
		_, err := repo.CreateAdjustment(ctx, ownerID, escrow.AdjustmentRequest{
			CampaignID: &id,
			Amount:     decimal.NewFromInt(int64(1 + rand.Intn(100))),
			Direction:  direction,
			Note:       "stress",
		})
		stats.record(err, escrow.ErrCampaignNotFound)
		pause(30, 50)
	}
	return nil
}

// FlakyPublisher drops roughly one in failEvery messages so the relay's
// retry path is exercised.
type FlakyPublisher struct {
	failEvery int
	Published atomic.Int64
	Failed    atomic.Int64
}

func NewFlakyPublisher(failEvery int) *FlakyPublisher {
	return &FlakyPublisher{failEvery: failEvery}
}

func (p *FlakyPublisher) Publish(_ context.Context, _ string, _ string, _ []byte) error {
	if p.failEvery > 0 && rand.Intn(p.failEvery) == 0 {
		p.Failed.Add(1)
		return errors.New("broker unavailable")
	}
	p.Published.Add(1)
	return nil
}

func (p *FlakyPublisher) Close() error { return nil }
