package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"creatorflow/escrow"
	"creatorflow/outbox"
)

var (
	// ErrNotFound signals a campaign that does not exist for the owner.
	ErrNotFound = errors.New("campaign: not found")
	// ErrMilestoneNotFound signals an unknown milestone position.
	ErrMilestoneNotFound = errors.New("campaign: milestone not found")
)

// Repository persists campaigns. Fund and ReleaseMilestone write the
// campaign change, its escrow ledger entry and its outbox event atomically.
type Repository interface {
	List(ctx context.Context, ownerID string) ([]Funding, error)
	Get(ctx context.Context, ownerID, id string) (Funding, error)
	Create(ctx context.Context, f Funding) (Funding, error)
	Fund(ctx context.Context, ownerID, id string, amount decimal.Decimal) (Funding, escrow.Transaction, error)
	ReleaseMilestone(ctx context.Context, ownerID, id string, position int) (Funding, escrow.Transaction, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, now: time.Now}
}

const campaignColumns = `id::text, owner_id::text, name, status, target_budget, funded_amount, created_at, updated_at`

func scanCampaign(row pgx.Row) (Funding, error) {
	var f Funding
	err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Status, &f.TargetBudget, &f.FundedAmount, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// List returns the owner's campaigns, newest first, with milestones.
func (r *PGRepository) List(ctx context.Context, ownerID string) ([]Funding, error) {
	const selectSQL = `SELECT ` + campaignColumns + ` FROM campaigns WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, selectSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("campaign: list: %w", err)
	}
	campaigns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Funding, error) {
		return scanCampaign(row)
	})
	if err != nil {
		return nil, fmt.Errorf("campaign: scan: %w", err)
	}
	if len(campaigns) == 0 {
		return campaigns, nil
	}

	const milestonesSQL = `
SELECT m.campaign_id::text, m.position, m.name, m.amount, m.due_date, m.status, m.released_at
FROM milestones m JOIN campaigns c ON c.id = m.campaign_id
WHERE c.owner_id = $1
ORDER BY m.campaign_id, m.position;
`
	mrows, err := r.pool.Query(ctx, milestonesSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("campaign: list milestones: %w", err)
	}
	defer mrows.Close()

	byCampaign := make(map[string][]Milestone, len(campaigns))
	for mrows.Next() {
		var (
			campaignID string
			m          Milestone
		)
		if err := mrows.Scan(&campaignID, &m.Position, &m.Name, &m.Amount, &m.Date, &m.Status, &m.ReleasedAt); err != nil {
			return nil, fmt.Errorf("campaign: scan milestone: %w", err)
		}
		byCampaign[campaignID] = append(byCampaign[campaignID], m)
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("campaign: iterate milestones: %w", err)
	}

	for i := range campaigns {
		campaigns[i].Milestones = byCampaign[campaigns[i].ID]
	}
	return campaigns, nil
}

func (r *PGRepository) Get(ctx context.Context, ownerID, id string) (Funding, error) {
	return load(ctx, r.pool, ownerID, id, false)
}

// load reads one campaign and its milestones. forUpdate locks the campaign
// row for the rest of the enclosing transaction.
func load(ctx context.Context, q querier, ownerID, id string, forUpdate bool) (Funding, error) {
	selectSQL := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 AND owner_id = $2`
	if forUpdate {
		selectSQL += ` FOR UPDATE`
	}

	f, err := scanCampaign(q.QueryRow(ctx, selectSQL, id, ownerID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == "22P02") {
			return Funding{}, ErrNotFound
		}
		return Funding{}, fmt.Errorf("campaign: get: %w", err)
	}

	const milestonesSQL = `
SELECT position, name, amount, due_date, status, released_at
FROM milestones
WHERE campaign_id = $1
ORDER BY position;
`
	rows, err := q.Query(ctx, milestonesSQL, id)
	if err != nil {
		return Funding{}, fmt.Errorf("campaign: get milestones: %w", err)
	}
	f.Milestones, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Milestone, error) {
		var m Milestone
		err := row.Scan(&m.Position, &m.Name, &m.Amount, &m.Date, &m.Status, &m.ReleasedAt)
		return m, err
	})
	if err != nil {
		return Funding{}, fmt.Errorf("campaign: scan milestones: %w", err)
	}
	return f, nil
}

// Create inserts the campaign and its milestones in one transaction.
func (r *PGRepository) Create(ctx context.Context, f Funding) (Funding, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Funding{}, fmt.Errorf("campaign: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
INSERT INTO campaigns (owner_id, name, status, target_budget, funded_amount)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + campaignColumns

	created, err := scanCampaign(tx.QueryRow(ctx, insertSQL, f.OwnerID, f.Name, f.Status, f.TargetBudget, f.FundedAmount))
	if err != nil {
		return Funding{}, fmt.Errorf("campaign: insert: %w", err)
	}

	if len(f.Milestones) > 0 {
		const milestoneSQL = `
INSERT INTO milestones (campaign_id, position, name, amount, due_date, status)
VALUES ($1, $2, $3, $4, $5, $6);
`
		batch := &pgx.Batch{}
		for i, m := range f.Milestones {
			batch.Queue(milestoneSQL, created.ID, i, m.Name, m.Amount, m.Date, MilestonePending)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return Funding{}, fmt.Errorf("campaign: insert milestones: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Funding{}, fmt.Errorf("campaign: commit tx: %w", err)
	}

	for i, m := range f.Milestones {
		created.Milestones = append(created.Milestones, Milestone{
			Position: i,
			Name:     m.Name,
			Amount:   m.Amount,
			Date:     m.Date,
			Status:   MilestonePending,
		})
	}
	return created, nil
}

// Fund adds amount to the campaign. A Draft campaign becomes Active on its
// first funding.
func (r *PGRepository) Fund(ctx context.Context, ownerID, id string, amount decimal.Decimal) (Funding, escrow.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Funding{}, escrow.Transaction{}, fmt.Errorf("campaign: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	f, err := load(ctx, tx, ownerID, id, true)
	if err != nil {
		return Funding{}, escrow.Transaction{}, err
	}
	if err := checkFund(f, amount); err != nil {
		return Funding{}, escrow.Transaction{}, err
	}

	status := f.Status
	if status == StatusDraft {
		status = StatusActive
	}

	const updateSQL = `
UPDATE campaigns
SET funded_amount = funded_amount + $2, status = $3, updated_at = now()
WHERE id = $1
RETURNING funded_amount, status, updated_at;
`
	if err := tx.QueryRow(ctx, updateSQL, id, amount, status).Scan(&f.FundedAmount, &f.Status, &f.UpdatedAt); err != nil {
		return Funding{}, escrow.Transaction{}, fmt.Errorf("campaign: update funded amount: %w", err)
	}

	campaignID := f.ID
	ledger, err := escrow.AppendTransaction(ctx, tx, escrow.Transaction{
		OwnerID:      ownerID,
		CampaignID:   &campaignID,
		CampaignName: f.Name,
		Type:         escrow.TypeFunding,
		Amount:       amount,
		Status:       escrow.TxCompleted,
	})
	if err != nil {
		return Funding{}, escrow.Transaction{}, err
	}

	if err := outbox.Enqueue(ctx, tx, outbox.TopicCampaignFunded, map[string]any{
		"campaign_id":    f.ID,
		"owner_id":       ownerID,
		"transaction_id": ledger.ID,
		"amount":         amount.StringFixed(2),
		"funded_amount":  f.FundedAmount.StringFixed(2),
	}); err != nil {
		return Funding{}, escrow.Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Funding{}, escrow.Transaction{}, fmt.Errorf("campaign: commit tx: %w", err)
	}
	return f, ledger, nil
}

// ReleaseMilestone pays out one milestone. The campaign completes when its
// last milestone is released.
func (r *PGRepository) ReleaseMilestone(ctx context.Context, ownerID, id string, position int) (Funding, escrow.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Funding{}, escrow.Transaction{}, fmt.Errorf("campaign: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	f, err := load(ctx, tx, ownerID, id, true)
	if err != nil {
		return Funding{}, escrow.Transaction{}, err
	}
	m, err := checkRelease(f, position)
	if err != nil {
		return Funding{}, escrow.Transaction{}, err
	}

	releasedAt := r.now().UTC()
	const releaseSQL = `
UPDATE milestones
SET status = 'released', released_at = $3
WHERE campaign_id = $1 AND position = $2 AND status = 'Pending';
`
	tag, err := tx.Exec(ctx, releaseSQL, id, position, releasedAt)
	if err != nil {
		return Funding{}, escrow.Transaction{}, fmt.Errorf("campaign: release milestone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Funding{}, escrow.Transaction{}, ErrAlreadyReleased
	}

	completes := allReleasedAfter(f, position)
	for i := range f.Milestones {
		if f.Milestones[i].Position == position {
			f.Milestones[i].Status = MilestoneReleased
			f.Milestones[i].ReleasedAt = &releasedAt
		}
	}

	if completes {
		const completeSQL = `UPDATE campaigns SET status = 'Completed', updated_at = now() WHERE id = $1 RETURNING updated_at`
		if err := tx.QueryRow(ctx, completeSQL, id).Scan(&f.UpdatedAt); err != nil {
			return Funding{}, escrow.Transaction{}, fmt.Errorf("campaign: complete: %w", err)
		}
		f.Status = StatusCompleted
	}

	campaignID := f.ID
	ledger, err := escrow.AppendTransaction(ctx, tx, escrow.Transaction{
		OwnerID:      ownerID,
		CampaignID:   &campaignID,
		CampaignName: f.Name,
		Type:         escrow.TypeRelease,
		Amount:       m.Amount,
		Status:       escrow.TxCompleted,
		Note:         m.Name,
	})
	if err != nil {
		return Funding{}, escrow.Transaction{}, err
	}

	if err := outbox.Enqueue(ctx, tx, outbox.TopicMilestoneReleased, map[string]any{
		"campaign_id":        f.ID,
		"owner_id":           ownerID,
		"transaction_id":     ledger.ID,
		"milestone_position": position,
		"milestone_name":     m.Name,
		"amount":             m.Amount.StringFixed(2),
		"campaign_completed": completes,
	}); err != nil {
		return Funding{}, escrow.Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Funding{}, escrow.Transaction{}, fmt.Errorf("campaign: commit tx: %w", err)
	}
	return f, ledger, nil
}
