package outbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"creatorflow/db"
)

// TestRelay_Integration runs the relay against a real outbox table via DATABASE_URL.
func TestRelay_Integration(t *testing.T) {
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

	marker := uuid.NewString()
	topic := "itest." + marker
	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM outbox WHERE topic = $1`, topic)
	})

	for i := 0; i < 3; i++ {
		if err := Enqueue(ctx, pool, topic, map[string]any{"seq": i}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	store := NewStore(pool)

	// A second claimer must not see rows held by the first.
	held, err := store.ClaimPending(ctx, 1000, uuid.NewString(), time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	mine := 0
	for _, rec := range held {
		if rec.Topic == topic {
			mine++
		}
	}
	if mine != 3 {
		t.Fatalf("expected to claim 3 rows, got %d", mine)
	}

	var onDBClock bool
	const windowSQL = `
SELECT bool_and(claim_until > now() AND claim_until <= now() + interval '1 minute')
FROM outbox WHERE topic = $1`
	if err := pool.QueryRow(ctx, windowSQL, topic).Scan(&onDBClock); err != nil {
		t.Fatalf("read claim window: %v", err)
	}
	if !onDBClock {
		t.Fatal("claim_until must fall within one minute of the database clock")
	}

	if _, err := store.ClaimPending(ctx, 10, uuid.NewString(), 0); err == nil {
		t.Fatal("expected an error for a zero claim ttl")
	}

	again, err := store.ClaimPending(ctx, 1000, uuid.NewString(), time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	for _, rec := range again {
		if rec.Topic == topic {
			t.Fatalf("row %s claimed twice", rec.ID)
		}
	}

	// Expire the claims so the relay can pick the rows up.
	if _, err := pool.Exec(ctx, `UPDATE outbox SET claim_until = now() - interval '1 second' WHERE topic = $1`, topic); err != nil {
		t.Fatalf("expire claims: %v", err)
	}

	pub := &fakePublisher{}
	relay := NewRelay(slog.New(slog.NewTextHandler(io.Discard, nil)), store, pub, time.Second, 1000, 3)
	if _, err := relay.ProcessOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	var processed int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE topic = $1 AND status = 'processed' AND claim_token IS NULL`, topic).Scan(&processed); err != nil {
		t.Fatalf("count processed: %v", err)
	}
	if processed != 3 {
		t.Fatalf("expected 3 processed rows, got %d", processed)
	}
}
