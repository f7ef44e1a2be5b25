package meeting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"creatorflow/outbox"
)

// ErrUnknownUser signals a userId that does not reference an account.
var ErrUnknownUser = errors.New("meeting: unknown user")

// Repository persists meetings.
type Repository interface {
	Create(ctx context.Context, m Meeting) (Meeting, error)
	List(ctx context.Context) ([]Meeting, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const meetingColumns = `id::text, name, email, role, date, time_slot, agenda, user_id::text, created_at`

// Create inserts the meeting and its meeting.scheduled event in one transaction.
func (r *PGRepository) Create(ctx context.Context, m Meeting) (Meeting, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Meeting{}, fmt.Errorf("meeting: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
INSERT INTO meetings (name, email, role, date, time_slot, agenda, user_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + meetingColumns

	created, err := scanMeeting(tx.QueryRow(ctx, insertSQL,
		m.Name, m.Email, m.Role, m.Date, m.TimeSlot, m.Agenda, m.UserID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "23503" || pgErr.Code == "22P02") {
			return Meeting{}, ErrUnknownUser
		}
		return Meeting{}, fmt.Errorf("meeting: insert: %w", err)
	}

	if err := outbox.Enqueue(ctx, tx, outbox.TopicMeetingScheduled, map[string]any{
		"meeting_id": created.ID,
		"email":      created.Email,
		"date":       created.Date.UTC(),
		"time_slot":  created.TimeSlot,
	}); err != nil {
		return Meeting{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Meeting{}, fmt.Errorf("meeting: commit tx: %w", err)
	}
	return created, nil
}

// List returns every meeting ordered by date ascending.
func (r *PGRepository) List(ctx context.Context) ([]Meeting, error) {
	const selectSQL = `SELECT ` + meetingColumns + ` FROM meetings ORDER BY date ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("meeting: list: %w", err)
	}

	meetings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Meeting, error) {
		return scanMeeting(row)
	})
	if err != nil {
		return nil, fmt.Errorf("meeting: scan: %w", err)
	}
	return meetings, nil
}

func scanMeeting(row pgx.Row) (Meeting, error) {
	var m Meeting
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Role, &m.Date, &m.TimeSlot, &m.Agenda, &m.UserID, &m.CreatedAt)
	return m, err
}
