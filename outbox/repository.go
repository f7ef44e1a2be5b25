package outbox

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence side of the relay.
type Store interface {
	ClaimPending(ctx context.Context, limit int, claimToken string, claimTTL time.Duration) ([]Record, error)
	MarkProcessed(ctx context.Context, id, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, id, claimToken, errMsg string) error
	MarkDead(ctx context.Context, id, claimToken, errMsg string) error
}

// PGStore implements Store on the outbox table.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ClaimPending stamps up to limit pending rows with claimToken and returns
// them oldest first. Rows whose previous claim expired are eligible again.
// The claim expiry is computed from the database clock, the same clock the
// eligibility check reads.
func (s *PGStore) ClaimPending(ctx context.Context, limit int, claimToken string, claimTTL time.Duration) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("outbox: claim token is required")
	}
	if claimTTL < time.Millisecond {
		return nil, fmt.Errorf("outbox: claim ttl %v must be at least 1ms", claimTTL)
	}

	const claimSQL = `
WITH next AS (
	SELECT id
	FROM outbox
	WHERE status = 'pending'
	  AND (claim_until IS NULL OR claim_until < now())
	ORDER BY created_at ASC
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
UPDATE outbox o
SET claim_token = $2, claim_until = now() + $3::bigint * interval '1 millisecond'
FROM next
WHERE o.id = next.id
RETURNING o.id::text, o.topic, o.payload, o.attempts, o.created_at;
`

	rows, err := s.pool.Query(ctx, claimSQL, limit, claimToken, claimTTL.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("outbox: claim pending: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		err := row.Scan(&rec.ID, &rec.Topic, &rec.Payload, &rec.Attempts, &rec.CreatedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: scan claimed rows: %w", err)
	}

	// UPDATE ... RETURNING does not preserve the CTE order.
	slices.SortStableFunc(records, func(a, b Record) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return records, nil
}

func (s *PGStore) MarkProcessed(ctx context.Context, id, claimToken string, at time.Time) error {
	const updateSQL = `
UPDATE outbox
SET status = 'processed', processed_at = $3, claim_token = NULL, claim_until = NULL
WHERE id = $1 AND claim_token = $2;
`
	if _, err := s.pool.Exec(ctx, updateSQL, id, claimToken, at); err != nil {
		return fmt.Errorf("outbox: mark processed: %w", err)
	}
	return nil
}

func (s *PGStore) MarkFailed(ctx context.Context, id, claimToken, errMsg string) error {
	const updateSQL = `
UPDATE outbox
SET attempts = attempts + 1, last_error = $3, claim_token = NULL, claim_until = NULL
WHERE id = $1 AND claim_token = $2;
`
	if _, err := s.pool.Exec(ctx, updateSQL, id, claimToken, errMsg); err != nil {
		return fmt.Errorf("outbox: mark failed: %w", err)
	}
	return nil
}

func (s *PGStore) MarkDead(ctx context.Context, id, claimToken, errMsg string) error {
	const updateSQL = `
UPDATE outbox
SET status = 'dead', attempts = attempts + 1, last_error = $3, claim_token = NULL, claim_until = NULL
WHERE id = $1 AND claim_token = $2;
`
	if _, err := s.pool.Exec(ctx, updateSQL, id, claimToken, errMsg); err != nil {
		return fmt.Errorf("outbox: mark dead: %w", err)
	}
	return nil
}
