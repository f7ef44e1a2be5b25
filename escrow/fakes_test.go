package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type fakeRepository struct {
	mu            sync.Mutex
	positions     map[string]Position
	positionErr   error
	history       map[string][]SnapshotPoint
	historyLimit  int
	snapshots     map[string][]SnapshotPoint
	failInsertFor string
	owners        []string
	feedLimit     int
	lastDueBefore time.Time
	nextID        int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		positions: make(map[string]Position),
		history:   make(map[string][]SnapshotPoint),
		snapshots: make(map[string][]SnapshotPoint),
	}
}

func (f *fakeRepository) Position(_ context.Context, ownerID string, dueBefore time.Time) (Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastDueBefore = dueBefore
	if f.positionErr != nil {
		return Position{}, f.positionErr
	}
	return f.positions[ownerID], nil
}

func (f *fakeRepository) History(_ context.Context, ownerID string, limit int) ([]SnapshotPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyLimit = limit
	return f.history[ownerID], nil
}

func (f *fakeRepository) InsertSnapshot(_ context.Context, ownerID string, b Breakdown, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ownerID == f.failInsertFor {
		return errors.New("insert failed")
	}
	f.snapshots[ownerID] = append(f.snapshots[ownerID], SnapshotPoint{TakenAt: at, Breakdown: b})
	return nil
}

func (f *fakeRepository) ListTransactions(_ context.Context, _ string, limit int) ([]Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedLimit = limit
	return nil, nil
}

func (f *fakeRepository) CreateAdjustment(_ context.Context, ownerID string, req AdjustmentRequest) (Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return Transaction{
		ID:         fmt.Sprintf("tx-%d", f.nextID),
		OwnerID:    ownerID,
		Date:       fixedNow,
		CampaignID: req.CampaignID,
		Type:       TypeAdjustment,
		Direction:  req.Direction,
		Amount:     req.Amount,
		Status:     TxCompleted,
		Note:       req.Note,
	}, nil
}

func (f *fakeRepository) Owners(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owners, nil
}
