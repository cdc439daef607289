// Package recorder keeps an audit trail of ingestion cycles. Signals are
// recomputed on every evaluation and are never recorded.
package recorder

import (
	"context"
	"time"
)

// Ingestion statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// IngestEvent is the outcome of one asset within one cycle.
type IngestEvent struct {
	CycleID  int64         `json:"cycle_id"`
	Asset    string        `json:"asset"`
	Fetched  int           `json:"fetched"`
	Inserted int           `json:"inserted"`
	Rejected int           `json:"rejected"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// CycleEvent summarizes a whole cycle.
type CycleEvent struct {
	Trigger  string        // "cron", "startup", "command", "api"
	Started  time.Time
	Duration time.Duration
	Assets   int
	Failed   int
}

// Recorder persists the audit trail.
type Recorder interface {
	// RecordCycle stores a cycle and returns its id for the ingest events.
	RecordCycle(ctx context.Context, evt *CycleEvent) (int64, error)
	RecordIngest(ctx context.Context, evt *IngestEvent) error
	// RecentIngests returns the latest events, newest first.
	RecentIngests(ctx context.Context, limit int) ([]IngestEvent, error)
	Close() error
}
