package recorder

import "context"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCycle(_ context.Context, _ *CycleEvent) (int64, error) { return 0, nil }
func (n *NoopRecorder) RecordIngest(_ context.Context, _ *IngestEvent) error        { return nil }
func (n *NoopRecorder) RecentIngests(_ context.Context, _ int) ([]IngestEvent, error) {
	return []IngestEvent{}, nil
}
func (n *NoopRecorder) Close() error { return nil }
