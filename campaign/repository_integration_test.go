package campaign

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"creatorflow/db"
	"creatorflow/escrow"
)

// TestFundAndRelease_Integration connects to a real PostgreSQL via DATABASE_URL
// and verifies funding and releases write the campaign, the escrow ledger and
// the outbox together.
func TestFundAndRelease_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	var ownerID string
	if err := pool.QueryRow(ctx, `INSERT INTO users (name, email, role) VALUES ($1, $2, 'brand') RETURNING id::text`,
		"Integration Brand", fmt.Sprintf("brand+%d@example.com", time.Now().UnixNano())).Scan(&ownerID); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM outbox WHERE payload->>'owner_id' = $1`, ownerID)
		pool.Exec(ctx2, `DELETE FROM escrow_snapshots WHERE owner_id = $1`, ownerID)
		pool.Exec(ctx2, `DELETE FROM escrow_transactions WHERE owner_id = $1`, ownerID)
		pool.Exec(ctx2, `DELETE FROM campaigns WHERE owner_id = $1`, ownerID)
		pool.Exec(ctx2, `DELETE FROM users WHERE id = $1`, ownerID)
	})

	repo := NewRepository(pool)
	svc := NewService(repo)

	soon := time.Now().UTC().AddDate(0, 0, 5).Format(time.DateOnly)
	later := time.Now().UTC().AddDate(0, 0, 60).Format(time.DateOnly)
	created, err := svc.Create(ctx, ownerID, CreateRequest{
		Name:         "Summer Drop",
		TargetBudget: decimal.NewFromInt(10000),
		Milestones: []MilestoneInput{
			{Name: "Concept", Amount: decimal.NewFromInt(4000), Date: soon},
			{Name: "Launch", Amount: decimal.NewFromInt(6000), Date: later},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != StatusDraft || len(created.Milestones) != 2 {
		t.Fatalf("unexpected created campaign: %+v", created)
	}

	// Releasing before any funding is rejected.
	if _, _, err := svc.ReleaseMilestone(ctx, ownerID, created.ID, 0); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}

	funded, tx, err := svc.Fund(ctx, ownerID, created.ID, decimal.NewFromInt(5000))
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if funded.Status != StatusActive || !funded.FundedAmount.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("unexpected funded campaign: %+v", funded)
	}
	if tx.Type != escrow.TypeFunding || tx.ID == "" || tx.CampaignName != "Summer Drop" {
		t.Fatalf("unexpected ledger entry: %+v", tx)
	}

	if _, _, err := svc.Fund(ctx, ownerID, created.ID, decimal.NewFromInt(6000)); !errors.Is(err, ErrOverfunded) {
		t.Fatalf("expected ErrOverfunded, got %v", err)
	}

	// Only 1000 remains unreleased after the first milestone, not enough for the second.
	if _, _, err := svc.ReleaseMilestone(ctx, ownerID, created.ID, 0); err != nil {
		t.Fatalf("release 0: %v", err)
	}
	if _, _, err := svc.ReleaseMilestone(ctx, ownerID, created.ID, 0); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("expected ErrAlreadyReleased, got %v", err)
	}
	if _, _, err := svc.ReleaseMilestone(ctx, ownerID, created.ID, 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if _, _, err := svc.Fund(ctx, ownerID, created.ID, decimal.NewFromInt(5000)); err != nil {
		t.Fatalf("top up: %v", err)
	}
	done, release, err := svc.ReleaseMilestone(ctx, ownerID, created.ID, 1)
	if err != nil {
		t.Fatalf("release 1: %v", err)
	}
	if done.Status != StatusCompleted || release.Type != escrow.TypeRelease || !release.Amount.Equal(decimal.NewFromInt(6000)) {
		t.Fatalf("unexpected completion: status=%s release=%+v", done.Status, release)
	}
	if _, _, err := svc.Fund(ctx, ownerID, created.ID, decimal.NewFromInt(1)); !errors.Is(err, ErrCampaignClosed) && !errors.Is(err, ErrOverfunded) {
		t.Fatalf("expected closed campaign, got %v", err)
	}

	got, err := svc.Get(ctx, ownerID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ratio, ok := MilestoneProgress(got); !ok || ratio != 1 {
		t.Fatalf("expected all milestones released, got %v %v", ratio, ok)
	}

	if _, err := svc.Get(ctx, "00000000-0000-0000-0000-000000000000", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another owner, got %v", err)
	}
	if _, err := svc.Get(ctx, ownerID, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}

	var ledgerCount, eventCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM escrow_transactions WHERE campaign_id = $1`, created.ID).Scan(&ledgerCount); err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE payload->>'campaign_id' = $1`, created.ID).Scan(&eventCount); err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	// Two fundings plus two releases; rejected operations leave no trace.
	if ledgerCount != 4 || eventCount != 4 {
		t.Fatalf("expected 4 ledger rows and 4 events, got %d and %d", ledgerCount, eventCount)
	}

	position, err := escrow.NewRepository(pool).Position(ctx, ownerID, time.Now().AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if !position.Funded.Equal(decimal.NewFromInt(10000)) || !position.Released.Equal(decimal.NewFromInt(10000)) || !position.DueSoon.IsZero() {
		t.Fatalf("unexpected position: %+v", position)
	}
}
