package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Relay pulls pending outbox rows and hands them to a Publisher. Delivery
// is at-least-once: a crash between publish and MarkProcessed redelivers
// once the claim expires.
type Relay struct {
	logger     *slog.Logger
	store      Store
	publisher  Publisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
	now        func() time.Time
}

// NewRelay constructs the relay loop, filling zero values with defaults.
func NewRelay(logger *slog.Logger, store Store, publisher Publisher, interval time.Duration, batchSize, maxRetries int) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Relay{
		logger:     logger,
		store:      store,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   30 * time.Second,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Run drains the outbox on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "outbox.relay",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// BatchResult counts what one pass did.
type BatchResult struct {
	Published    int
	Failed       int
	DeadLettered int
}

// ProcessOnce claims a single batch and publishes it.
func (r *Relay) ProcessOnce(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	claimToken := uuid.NewString()
	records, err := r.store.ClaimPending(ctx, r.batchSize, claimToken, r.claimTTL)
	if err != nil {
		return result, err
	}

	for _, rec := range records {
		if rec.Attempts >= r.maxRetries {
			result.DeadLettered++
			r.markDead(ctx, rec, claimToken, "retry threshold reached before publish")
			continue
		}

		if err := r.publisher.Publish(ctx, rec.Topic, rec.ID, rec.Payload); err != nil {
			result.Failed++
			attempts := rec.Attempts + 1
			if attempts >= r.maxRetries {
				result.DeadLettered++
				r.logger.ErrorContext(ctx, "outbox message dead-lettered",
					"module", "outbox.relay",
					"operation", "publish",
					"outcome", "failure",
					"outbox_id", rec.ID,
					"topic", rec.Topic,
					"attempts", attempts,
					"error", err,
				)
				r.markDead(ctx, rec, claimToken, err.Error())
				continue
			}

			r.logger.WarnContext(ctx, "outbox publish failed; retry scheduled",
				"module", "outbox.relay",
				"operation", "publish",
				"outcome", "failure",
				"outbox_id", rec.ID,
				"topic", rec.Topic,
				"attempts", attempts,
				"error", err,
			)
			if markErr := r.store.MarkFailed(ctx, rec.ID, claimToken, err.Error()); markErr != nil {
				r.logger.ErrorContext(ctx, "outbox mark failed", "outbox_id", rec.ID, "error", markErr)
			}
			continue
		}

		result.Published++
		if err := r.store.MarkProcessed(ctx, rec.ID, claimToken, r.now().UTC()); err != nil {
			r.logger.ErrorContext(ctx, "outbox mark processed", "outbox_id", rec.ID, "error", err)
		}
	}

	if len(records) > 0 {
		r.logger.InfoContext(ctx, "outbox batch processed",
			"module", "outbox.relay",
			"operation", "process_once",
			"outcome", "success",
			"batch_size", len(records),
			"published_count", result.Published,
			"failed_count", result.Failed,
			"dead_lettered_count", result.DeadLettered,
		)
	}
	return result, nil
}

func (r *Relay) markDead(ctx context.Context, rec Record, claimToken, reason string) {
	if err := r.store.MarkDead(ctx, rec.ID, claimToken, reason); err != nil {
		r.logger.ErrorContext(ctx, "outbox mark dead", "outbox_id", rec.ID, "error", err)
	}
}
