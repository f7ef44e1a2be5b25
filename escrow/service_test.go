package escrow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(func() time.Time { return fixedNow }).
		WithObligationWindow(7 * 24 * time.Hour)
}

func TestService_Dashboard(t *testing.T) {
	repo := newFakeRepository()
	repo.positions["owner-1"] = Position{Funded: d("60000"), Released: d("10000"), DueSoon: d("20000")}
	repo.history["owner-1"] = []SnapshotPoint{{TakenAt: fixedNow.Add(-24 * time.Hour)}}

	dash, err := newTestService(repo).Dashboard(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	if !repo.lastDueBefore.Equal(fixedNow.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected obligation cutoff %v", repo.lastDueBefore)
	}
	if !dash.Snapshot.Total().Equal(d("60000")) {
		t.Fatalf("total = %s", dash.Snapshot.Total())
	}
	if len(dash.Snapshot.History) != 1 {
		t.Fatalf("expected history, got %d points", len(dash.Snapshot.History))
	}
	// 50000 held / 20000 due = 2.5
	if dash.Liquidity.Status != StatusHealthy || dash.Liquidity.ShowAddFunds {
		t.Fatalf("unexpected liquidity %+v", dash.Liquidity)
	}
	if repo.historyLimit != 30 {
		t.Fatalf("expected 30 history points requested, got %d", repo.historyLimit)
	}
}

func TestService_DashboardRepositoryError(t *testing.T) {
	repo := newFakeRepository()
	repo.positionErr = errors.New("db down")

	if _, err := newTestService(repo).Dashboard(context.Background(), "owner-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_FeedLimit(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)

	tests := []struct {
		in, want int
	}{
		{0, 20},
		{-3, 20},
		{5, 5},
		{500, 100},
	}
	for _, tt := range tests {
		if _, err := svc.Feed(context.Background(), "owner-1", tt.in); err != nil {
			t.Fatalf("feed: %v", err)
		}
		if repo.feedLimit != tt.want {
			t.Errorf("limit %d: requested %d, want %d", tt.in, repo.feedLimit, tt.want)
		}
	}
}

func TestService_Adjust(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo)
	blank := "  "

	tx, err := svc.Adjust(context.Background(), "owner-1", AdjustmentRequest{
		Amount:     d("150.255"),
		Direction:  " Credit ",
		Note:       " bank fee refund ",
		CampaignID: &blank,
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if tx.Direction != DirectionCredit || tx.Note != "bank fee refund" || tx.CampaignID != nil {
		t.Fatalf("unexpected adjustment %+v", tx)
	}
	if !tx.Amount.Equal(d("150.26")) {
		t.Fatalf("expected amount rounded to cents, got %s", tx.Amount)
	}
	if Sign(tx) != "+" {
		t.Fatal("credit adjustment must render positive")
	}
}

func TestService_AdjustValidation(t *testing.T) {
	svc := newTestService(newFakeRepository())
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, "o", AdjustmentRequest{Amount: decimal.Zero, Direction: DirectionDebit}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.Adjust(ctx, "o", AdjustmentRequest{Amount: d("-1"), Direction: DirectionDebit}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.Adjust(ctx, "o", AdjustmentRequest{Amount: d("1e13"), Direction: DirectionCredit}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for an amount past the column range, got %v", err)
	}
	if _, err := svc.Adjust(ctx, "o", AdjustmentRequest{Amount: MaxAmount, Direction: DirectionCredit}); err != nil {
		t.Fatalf("largest storable amount must be accepted: %v", err)
	}
	if _, err := svc.Adjust(ctx, "o", AdjustmentRequest{Amount: d("1")}); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}

func TestService_RecordSnapshots(t *testing.T) {
	repo := newFakeRepository()
	repo.owners = []string{"a", "b", "broken"}
	repo.positions["a"] = Position{Funded: d("100")}
	repo.positions["b"] = Position{Funded: d("50"), Released: d("50")}
	repo.failInsertFor = "broken"

	n, err := newTestService(repo).RecordSnapshots(context.Background())
	if n != 2 {
		t.Fatalf("expected 2 snapshots, got %d", n)
	}
	if err == nil {
		t.Fatal("expected error for broken owner")
	}
	if got := repo.snapshots["a"]; len(got) != 1 || !got[0].Total().Equal(d("100")) || !got[0].TakenAt.Equal(fixedNow) {
		t.Fatalf("unexpected snapshot for a: %+v", got)
	}
}

func TestRecorder_RunStopsOnCancel(t *testing.T) {
	repo := newFakeRepository()
	repo.owners = []string{"a"}
	rec := NewRecorder(newTestService(repo), time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	deadline := time.After(time.Second)
	for {
		repo.mu.Lock()
		n := len(repo.snapshots["a"])
		repo.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("recorder did not take an initial snapshot")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop")
	}
}
