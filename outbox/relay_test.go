package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRelay_ProcessOnce(t *testing.T) {
	store := &fakeStore{records: []Record{
		{ID: "ok", Topic: TopicCampaignFunded, Payload: []byte(`{}`)},
		{ID: "retry", Topic: TopicMilestoneReleased, Payload: []byte(`{}`), Attempts: 1},
		{ID: "last-chance", Topic: TopicEscrowAdjusted, Payload: []byte(`{}`), Attempts: 2},
		{ID: "exhausted", Topic: TopicMeetingScheduled, Payload: []byte(`{}`), Attempts: 3},
	}}
	pub := &fakePublisher{failFor: map[string]bool{"retry": true, "last-chance": true}}
	relay := NewRelay(discardLogger(), store, pub, time.Second, 10, 3)

	result, err := relay.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("process once: %v", err)
	}

	if result.Published != 1 || result.Failed != 2 || result.DeadLettered != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := store.processed; len(got) != 1 || got[0] != "ok" {
		t.Fatalf("expected ok processed, got %v", got)
	}
	if got := store.failed; len(got) != 1 || got[0] != "retry" {
		t.Fatalf("expected retry marked failed, got %v", got)
	}
	if got := store.dead; len(got) != 2 || got[0] != "last-chance" || got[1] != "exhausted" {
		t.Fatalf("unexpected dead letters %v", got)
	}
	if len(pub.published) != 1 || pub.published[0] != TopicCampaignFunded {
		t.Fatalf("exhausted record must not be published, got %v", pub.published)
	}
	if store.claimLimit != 10 || store.claimToken == "" {
		t.Fatalf("unexpected claim args limit=%d token=%q", store.claimLimit, store.claimToken)
	}
	if store.claimTTL != 30*time.Second {
		t.Fatalf("expected a relative 30s claim, got %v", store.claimTTL)
	}
}

func TestRelay_ClaimError(t *testing.T) {
	boom := errors.New("db down")
	relay := NewRelay(discardLogger(), &fakeStore{claimErr: boom}, &fakePublisher{}, time.Second, 10, 3)

	if _, err := relay.ProcessOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected claim error, got %v", err)
	}
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	relay := NewRelay(discardLogger(), store, &fakePublisher{}, 10*time.Millisecond, 10, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestLogPublisher(t *testing.T) {
	pub := NewLogPublisher(discardLogger())
	if err := pub.Publish(context.Background(), TopicCampaignFunded, "id", []byte(`{}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
}

type fakeStore struct {
	records    []Record
	claimErr   error
	claimLimit int
	claimToken string
	claimTTL   time.Duration
	processed  []string
	failed     []string
	dead       []string
}

func (f *fakeStore) ClaimPending(_ context.Context, limit int, claimToken string, claimTTL time.Duration) ([]Record, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	f.claimLimit = limit
	f.claimToken = claimToken
	f.claimTTL = claimTTL
	out := f.records
	f.records = nil
	return out, nil
}

func (f *fakeStore) MarkProcessed(_ context.Context, id, _ string, _ time.Time) error {
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id, _, _ string) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeStore) MarkDead(_ context.Context, id, _, _ string) error {
	f.dead = append(f.dead, id)
	return nil
}

type fakePublisher struct {
	failFor   map[string]bool
	published []string
}

func (f *fakePublisher) Publish(_ context.Context, topic, key string, _ []byte) error {
	if f.failFor[key] {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, topic)
	return nil
}

func (f *fakePublisher) Close() error { return nil }
