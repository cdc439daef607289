package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "audit.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	id, err := r.RecordCycle(ctx, &CycleEvent{Trigger: "cron", Started: start, Duration: 3 * time.Second, Assets: 2, Failed: 1})
	if err != nil {
		t.Fatalf("record cycle: %v", err)
	}
	if id <= 0 {
		t.Errorf("expected a positive cycle id, got %d", id)
	}

	events := []*IngestEvent{
		{CycleID: id, Asset: "bitcoin", Fetched: 720, Inserted: 12, Rejected: 1, Status: StatusOK, Duration: 800 * time.Millisecond, At: start},
		{CycleID: id, Asset: "solana", Status: StatusFailed, Error: "fetch failed: status 429", At: start.Add(time.Second)},
	}
	for _, e := range events {
		if err := r.RecordIngest(ctx, e); err != nil {
			t.Fatalf("record ingest: %v", err)
		}
	}

	got, err := r.RecentIngests(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Asset != "solana" || got[0].Status != StatusFailed || got[0].Error == "" {
		t.Errorf("expected the failed solana event first, got %+v", got[0])
	}
	btc := got[1]
	if btc.Fetched != 720 || btc.Inserted != 12 || btc.Rejected != 1 || btc.Duration != 800*time.Millisecond {
		t.Errorf("unexpected bitcoin event %+v", btc)
	}
	if !btc.At.Equal(start) || btc.CycleID != id {
		t.Errorf("unexpected bitcoin event %+v", btc)
	}

	if limited, _ := r.RecentIngests(ctx, 1); len(limited) != 1 {
		t.Errorf("limit not applied, got %d", len(limited))
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if _, err := r.RecordCycle(context.Background(), &CycleEvent{}); err != nil {
		t.Error(err)
	}
	events, err := r.RecentIngests(context.Background(), 5)
	if err != nil || len(events) != 0 {
		t.Errorf("expected no events, got %v %v", events, err)
	}
}
