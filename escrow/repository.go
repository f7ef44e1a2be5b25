package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"creatorflow/outbox"
)

// ErrCampaignNotFound signals an adjustment against a campaign the owner
// does not have.
var ErrCampaignNotFound = errors.New("escrow: campaign not found")

// Repository reads and writes escrow state.
type Repository interface {
	Position(ctx context.Context, ownerID string, dueBefore time.Time) (Position, error)
	History(ctx context.Context, ownerID string, limit int) ([]SnapshotPoint, error)
	InsertSnapshot(ctx context.Context, ownerID string, b Breakdown, at time.Time) error
	ListTransactions(ctx context.Context, ownerID string, limit int) ([]Transaction, error)
	CreateAdjustment(ctx context.Context, ownerID string, req AdjustmentRequest) (Transaction, error)
	Owners(ctx context.Context) ([]string, error)
}

// Querier is satisfied by pgx.Tx and pgxpool.Pool.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AppendTransaction writes a ledger entry inside the caller's transaction.
func AppendTransaction(ctx context.Context, q Querier, t Transaction) (Transaction, error) {
	if t.Status == "" {
		t.Status = TxCompleted
	}

	const insertSQL = `
INSERT INTO escrow_transactions (owner_id, campaign_id, campaign_name, type, direction, amount, status, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id::text, occurred_at;
`

	err := q.QueryRow(ctx, insertSQL,
		t.OwnerID, t.CampaignID, t.CampaignName, t.Type, t.Direction, t.Amount, t.Status, t.Note,
	).Scan(&t.ID, &t.Date)
	if err != nil {
		return Transaction{}, fmt.Errorf("escrow: insert transaction: %w", err)
	}
	return t, nil
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Position sums the owner's campaigns, milestones and adjustments.
// DueSoon covers pending milestones of Active campaigns due on or before dueBefore.
func (r *PGRepository) Position(ctx context.Context, ownerID string, dueBefore time.Time) (Position, error) {
	const positionSQL = `
SELECT
	COALESCE((SELECT sum(funded_amount) FROM campaigns WHERE owner_id = $1), 0),
	COALESCE((
		SELECT sum(m.amount)
		FROM milestones m JOIN campaigns c ON c.id = m.campaign_id
		WHERE c.owner_id = $1 AND m.status = 'released'
	), 0),
	COALESCE((
		SELECT sum(m.amount)
		FROM milestones m JOIN campaigns c ON c.id = m.campaign_id
		WHERE c.owner_id = $1 AND c.status = 'Active' AND m.status = 'Pending' AND m.due_date <= $2::date
	), 0),
	COALESCE((
		SELECT sum(CASE direction WHEN 'credit' THEN amount ELSE -amount END)
		FROM escrow_transactions
		WHERE owner_id = $1 AND type = 'Adjustment' AND status = 'Completed'
	), 0);
`

	var p Position
	err := r.pool.QueryRow(ctx, positionSQL, ownerID, dueBefore).
		Scan(&p.Funded, &p.Released, &p.DueSoon, &p.NetAdjustments)
	if err != nil {
		return Position{}, fmt.Errorf("escrow: position: %w", err)
	}
	return p, nil
}

// History returns the most recent limit snapshots, oldest first.
func (r *PGRepository) History(ctx context.Context, ownerID string, limit int) ([]SnapshotPoint, error) {
	const selectSQL = `
SELECT taken_at, allocated_active, released, pending_release, unallocated
FROM (
	SELECT * FROM escrow_snapshots
	WHERE owner_id = $1
	ORDER BY taken_at DESC
	LIMIT $2
) recent
ORDER BY taken_at ASC;
`

	rows, err := r.pool.Query(ctx, selectSQL, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("escrow: history: %w", err)
	}

	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SnapshotPoint, error) {
		var p SnapshotPoint
		err := row.Scan(&p.TakenAt, &p.AllocatedActive, &p.Released, &p.PendingRelease, &p.Unallocated)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("escrow: scan history: %w", err)
	}
	return points, nil
}

func (r *PGRepository) InsertSnapshot(ctx context.Context, ownerID string, b Breakdown, at time.Time) error {
	const insertSQL = `
INSERT INTO escrow_snapshots (owner_id, allocated_active, released, pending_release, unallocated, taken_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	if _, err := r.pool.Exec(ctx, insertSQL, ownerID, b.AllocatedActive, b.Released, b.PendingRelease, b.Unallocated, at); err != nil {
		return fmt.Errorf("escrow: insert snapshot: %w", err)
	}
	return nil
}

// ListTransactions returns the newest limit entries.
func (r *PGRepository) ListTransactions(ctx context.Context, ownerID string, limit int) ([]Transaction, error) {
	const selectSQL = `
SELECT id::text, owner_id::text, occurred_at, campaign_id::text, campaign_name, type, direction, amount, status, note
FROM escrow_transactions
WHERE owner_id = $1
ORDER BY occurred_at DESC, id
LIMIT $2;
`

	rows, err := r.pool.Query(ctx, selectSQL, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("escrow: list transactions: %w", err)
	}

	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Transaction, error) {
		var t Transaction
		err := row.Scan(&t.ID, &t.OwnerID, &t.Date, &t.CampaignID, &t.CampaignName, &t.Type, &t.Direction, &t.Amount, &t.Status, &t.Note)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("escrow: scan transactions: %w", err)
	}
	return txs, nil
}

// CreateAdjustment records an Adjustment row and its escrow.adjusted event
// in one transaction.
func (r *PGRepository) CreateAdjustment(ctx context.Context, ownerID string, req AdjustmentRequest) (Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("escrow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var campaignName string
	if req.CampaignID != nil {
		const nameSQL = `SELECT name FROM campaigns WHERE id = $1 AND owner_id = $2`
		if err := tx.QueryRow(ctx, nameSQL, *req.CampaignID, ownerID).Scan(&campaignName); err != nil {
			var pgErr *pgconn.PgError
			if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == "22P02") {
				return Transaction{}, ErrCampaignNotFound
			}
			return Transaction{}, fmt.Errorf("escrow: lookup campaign: %w", err)
		}
	}

	created, err := AppendTransaction(ctx, tx, Transaction{
		OwnerID:      ownerID,
		CampaignID:   req.CampaignID,
		CampaignName: campaignName,
		Type:         TypeAdjustment,
		Direction:    req.Direction,
		Amount:       req.Amount,
		Status:       TxCompleted,
		Note:         req.Note,
	})
	if err != nil {
		return Transaction{}, err
	}

	if err := outbox.Enqueue(ctx, tx, outbox.TopicEscrowAdjusted, map[string]any{
		"transaction_id": created.ID,
		"owner_id":       ownerID,
		"campaign_id":    req.CampaignID,
		"direction":      req.Direction,
		"amount":         req.Amount.StringFixed(2),
	}); err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, fmt.Errorf("escrow: commit tx: %w", err)
	}
	return created, nil
}

// Owners lists every account holding campaigns or ledger entries.
func (r *PGRepository) Owners(ctx context.Context) ([]string, error) {
	const selectSQL = `
SELECT owner_id::text FROM campaigns
UNION
SELECT owner_id::text FROM escrow_transactions;
`
	rows, err := r.pool.Query(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("escrow: owners: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("escrow: scan owners: %w", err)
	}
	return owners, nil
}
