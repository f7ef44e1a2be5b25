package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Topics emitted by the marketplace.
const (
	TopicCampaignFunded    = "campaign.funded"
	TopicMilestoneReleased = "milestone.released"
	TopicEscrowAdjusted    = "escrow.adjusted"
	TopicMeetingScheduled  = "meeting.scheduled"
)

// ErrEmptyTopic is returned when Enqueue is called without a topic.
var ErrEmptyTopic = errors.New("outbox: empty topic")

// Execer is satisfied by pgx.Tx and pgxpool.Pool. Callers pass the
// transaction that carries the domain change so the message commits with it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Record is a claimed outbox row.
type Record struct {
	ID        string
	Topic     string
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
}

// Enqueue appends a message for asynchronous delivery.
func Enqueue(ctx context.Context, tx Execer, topic string, payload any) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal payload: %w", err)
	}

	const insertSQL = `
INSERT INTO outbox (topic, payload)
VALUES ($1, $2);
`

	if _, err := tx.Exec(ctx, insertSQL, topic, payloadBytes); err != nil {
		return fmt.Errorf("outbox: insert message: %w", err)
	}

	return nil
}
