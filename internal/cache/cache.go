// Package cache keeps recently fetched provider payloads so that repeated
// evaluations within a short interval do not hit the market-data API again.
// Entries carry their fetch time; callers decide whether an entry is still
// usable by checking it against their own maximum age.
package cache

import (
	"context"
	"time"
)

// QueryKind identifies the provider query an entry was produced by.
type QueryKind string

const (
	KindHistory QueryKind = "history"
	KindQuote   QueryKind = "quote"
)

// Key addresses a cached payload.
type Key struct {
	Asset string
	Kind  QueryKind
}

func (k Key) String() string { return string(k.Kind) + ":" + k.Asset }

// Entry is a cached payload and the time it was fetched.
type Entry struct {
	Payload   []byte
	FetchedAt time.Time
}

// Fresh reports whether the entry is younger than maxAge at now.
// A non-positive maxAge disables reuse.
func (e Entry) Fresh(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 || e.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(e.FetchedAt) < maxAge
}

// Cache stores entries by key. Get reports a miss with ok == false; an error
// is returned only when the backend itself fails.
type Cache interface {
	Get(ctx context.Context, key Key) (entry Entry, ok bool, err error)
	Put(ctx context.Context, key Key, entry Entry) error
	Invalidate(ctx context.Context, key Key) error
	Close() error
}
