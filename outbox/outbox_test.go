package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeExecer struct {
	sql  string
	args []any
	err  error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestEnqueue(t *testing.T) {
	tx := &fakeExecer{}
	payload := map[string]any{"campaign_id": "c-1", "amount": "250.00"}

	if err := Enqueue(context.Background(), tx, TopicCampaignFunded, payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !strings.Contains(tx.sql, "INSERT INTO outbox") {
		t.Fatalf("unexpected sql %q", tx.sql)
	}
	if tx.args[0] != TopicCampaignFunded {
		t.Fatalf("expected topic %q, got %v", TopicCampaignFunded, tx.args[0])
	}

	var decoded map[string]any
	if err := json.Unmarshal(tx.args[1].([]byte), &decoded); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if decoded["campaign_id"] != "c-1" {
		t.Fatalf("unexpected payload %v", decoded)
	}
}

func TestEnqueue_Errors(t *testing.T) {
	if err := Enqueue(context.Background(), &fakeExecer{}, "", nil); !errors.Is(err, ErrEmptyTopic) {
		t.Fatalf("expected ErrEmptyTopic, got %v", err)
	}

	if err := Enqueue(context.Background(), &fakeExecer{}, "t", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}

	boom := errors.New("connection reset")
	if err := Enqueue(context.Background(), &fakeExecer{err: boom}, "t", nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}
