package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	historyLength           = 30
	defaultFeedLimit        = 20
	maxFeedLimit            = 100
	defaultObligationWindow = 30 * 24 * time.Hour
)

var (
	// ErrInvalidAmount signals an adjustment amount that is not positive or
	// does not fit a money column.
	ErrInvalidAmount = errors.New("escrow: amount must be greater than zero and at most 999999999999.99")
	// ErrInvalidDirection signals an adjustment without credit or debit.
	ErrInvalidDirection = errors.New("escrow: direction must be credit or debit")
)

// Dashboard is the escrow overview for one account.
type Dashboard struct {
	Snapshot  Snapshot
	Liquidity LiquidityView
}

type Service struct {
	repo   Repository
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		window: defaultObligationWindow,
		logger: logger,
		now:    time.Now,
	}
}

// WithObligationWindow sets how far ahead milestones count as obligations.
func (s *Service) WithObligationWindow(window time.Duration) *Service {
	if window > 0 {
		s.window = window
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) current(ctx context.Context, ownerID string) (Breakdown, LiquidityHealth, error) {
	pos, err := s.repo.Position(ctx, ownerID, s.now().UTC().Add(s.window))
	if err != nil {
		return Breakdown{}, LiquidityHealth{}, err
	}
	b, health := Derive(pos)
	return b, health, nil
}

// Dashboard returns the live breakdown, its recorded history and the
// liquidity card.
func (s *Service) Dashboard(ctx context.Context, ownerID string) (Dashboard, error) {
	b, health, err := s.current(ctx, ownerID)
	if err != nil {
		return Dashboard{}, err
	}

	history, err := s.repo.History(ctx, ownerID, historyLength)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Snapshot:  Snapshot{Breakdown: b, History: history},
		Liquidity: NewLiquidityView(health),
	}, nil
}

// Feed renders the newest transactions. Limits outside 1..100 fall back to
// the default or the cap.
func (s *Service) Feed(ctx context.Context, ownerID string, limit int) ([]FeedItem, error) {
	switch {
	case limit <= 0:
		limit = defaultFeedLimit
	case limit > maxFeedLimit:
		limit = maxFeedLimit
	}

	txs, err := s.repo.ListTransactions(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}
	return RenderFeed(txs), nil
}

// Adjust records a manual credit or debit.
func (s *Service) Adjust(ctx context.Context, ownerID string, req AdjustmentRequest) (Transaction, error) {
	if !req.Amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	req.Direction = Direction(strings.ToLower(strings.TrimSpace(string(req.Direction))))
	if req.Direction != DirectionCredit && req.Direction != DirectionDebit {
		return Transaction{}, ErrInvalidDirection
	}
	if req.CampaignID != nil && strings.TrimSpace(*req.CampaignID) == "" {
		req.CampaignID = nil
	}
	req.Amount = req.Amount.Round(2)
	if req.Amount.GreaterThan(MaxAmount) {
		return Transaction{}, ErrInvalidAmount
	}
	req.Note = strings.TrimSpace(req.Note)

	return s.repo.CreateAdjustment(ctx, ownerID, req)
}

// RecordSnapshots stores the current breakdown for every account and
// returns how many were written. One failing account does not stop the rest.
func (s *Service) RecordSnapshots(ctx context.Context) (int, error) {
	owners, err := s.repo.Owners(ctx)
	if err != nil {
		return 0, err
	}

	at := s.now().UTC()
	recorded := 0
	var errs []error
	for _, owner := range owners {
		b, _, err := s.current(ctx, owner)
		if err == nil {
			err = s.repo.InsertSnapshot(ctx, owner, b, at)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
			continue
		}
		recorded++
	}
	return recorded, errors.Join(errs...)
}

// Recorder writes snapshots on a fixed interval, starting immediately.
type Recorder struct {
	svc      *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewRecorder(svc *Service, interval time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Recorder{svc: svc, interval: interval, logger: logger}
}

func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.svc.RecordSnapshots(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			r.logger.ErrorContext(ctx, "escrow snapshot pass failed",
				"module", "escrow.recorder",
				"operation", "record_snapshots",
				"outcome", "failure",
				"recorded", n,
				"error", err,
			)
		case err == nil:
			r.logger.InfoContext(ctx, "escrow snapshots recorded",
				"module", "escrow.recorder",
				"operation", "record_snapshots",
				"outcome", "success",
				"recorded", n,
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
