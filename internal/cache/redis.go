package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldPayload   = "payload"
	fieldFetchedAt = "fetched_at"
)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL bounds how long Redis keeps an entry regardless of staleness checks.
	TTL time.Duration
}

// Redis is a Cache backed by one Redis hash per key.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "coinsentinel"
	}
	return &Redis{client: client, prefix: prefix, ttl: opts.TTL}, nil
}

func (r *Redis) wrapKey(key Key) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

func (r *Redis) Get(ctx context.Context, key Key) (Entry, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.wrapKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("redis hgetall %s: %w", key, err)
	}
	payload, ok := fields[fieldPayload]
	if !ok {
		return Entry{}, false, nil
	}
	ms, err := strconv.ParseInt(fields[fieldFetchedAt], 10, 64)
	if err != nil {
		// unreadable entry, treat as a miss so it gets refetched
		return Entry{}, false, nil
	}
	return Entry{Payload: []byte(payload), FetchedAt: time.UnixMilli(ms).UTC()}, true, nil
}

func (r *Redis) Put(ctx context.Context, key Key, entry Entry) error {
	k := r.wrapKey(key)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, k,
		fieldPayload, entry.Payload,
		fieldFetchedAt, strconv.FormatInt(entry.FetchedAt.UnixMilli(), 10))
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, key Key) error {
	if err := r.client.Unlink(ctx, r.wrapKey(key)).Err(); err != nil {
		return fmt.Errorf("redis unlink %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
