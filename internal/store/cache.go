package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/account-allocator/internal/model"
)

// errCacheMiss signals that the snapshot key is absent from the cache
// backend. It is internal to the decorator; a miss simply reads through.
var errCacheMiss = errors.New("snapshot cache miss")

// snapshotClient is the slice of the cache backend the decorator needs.
// Production wires a Redis client through redisSnapshotClient; tests
// substitute an in-memory implementation.
type snapshotClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// redisSnapshotClient adapts *redis.Client to snapshotClient, mapping the
// redis.Nil reply to errCacheMiss.
type redisSnapshotClient struct {
	c *redis.Client
}

func (r redisSnapshotClient) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errCacheMiss
	}
	return data, err
}

func (r redisSnapshotClient) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.c.Set(ctx, key, data, ttl).Err()
}

func (r redisSnapshotClient) Del(ctx context.Context, key string) error {
	return r.c.Del(ctx, key).Err()
}

// SnapshotCache decorates a Store with a cache of the full-table snapshot
// returned by ReadAllRows. The claim scan reads the whole table on every
// request; against a networked backend that is the expensive call, and a
// slightly stale snapshot is acceptable there because every candidate row
// is re-read authoritatively inside the claim critical section. ReadRow
// therefore always bypasses the cache, and every write drops the cached
// snapshot.
//
// The cache is advisory: any backend failure is logged and the call falls
// through to the underlying store.
type SnapshotCache struct {
	next   Store
	client snapshotClient
	key    string
	ttl    time.Duration
}

// WithSnapshotCache wraps next with a Redis snapshot cache. When client is
// nil (Redis unreachable at startup) the store is returned unwrapped so the
// service degrades to direct reads.
func WithSnapshotCache(next Store, client *redis.Client, key string, ttl time.Duration) Store {
	if client == nil {
		return next
	}
	return newSnapshotCache(next, redisSnapshotClient{c: client}, key, ttl)
}

func newSnapshotCache(next Store, client snapshotClient, key string, ttl time.Duration) *SnapshotCache {
	if key == "" {
		key = "allocator:snapshot"
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &SnapshotCache{next: next, client: client, key: key, ttl: ttl}
}

// ReadAllRows serves the snapshot from the cache when present, otherwise
// reads through and stores the result with the configured TTL.
func (c *SnapshotCache) ReadAllRows(ctx context.Context) ([]model.AccountRecord, error) {
	if data, err := c.client.Get(ctx, c.key); err == nil {
		var rows []model.AccountRecord
		if jsonErr := json.Unmarshal(data, &rows); jsonErr == nil {
			return rows, nil
		}
		// Corrupt entry: drop it and fall through to the real store.
		c.drop(ctx)
	} else if !errors.Is(err, errCacheMiss) {
		log.Printf("snapshot-cache: get failed: %v", err)
	}
	rows, err := c.next.ReadAllRows(ctx)
	if err != nil {
		return nil, err
	}
	if data, jsonErr := json.Marshal(rows); jsonErr == nil {
		if setErr := c.client.Set(ctx, c.key, data, c.ttl); setErr != nil {
			log.Printf("snapshot-cache: set failed: %v", setErr)
		}
	}
	return rows, nil
}

// ReadRow always reads the authoritative backend.
func (c *SnapshotCache) ReadRow(ctx context.Context, row int) (model.AccountRecord, error) {
	return c.next.ReadRow(ctx, row)
}

// WriteCell writes through and invalidates the snapshot.
func (c *SnapshotCache) WriteCell(ctx context.Context, row int, field model.Field, value string) error {
	if err := c.next.WriteCell(ctx, row, field, value); err != nil {
		return err
	}
	c.drop(ctx)
	return nil
}

// SetRowMarker writes through; markers are part of the snapshot a human
// sees but not of the records, so no invalidation is needed.
func (c *SnapshotCache) SetRowMarker(ctx context.Context, row int, marker model.RowMarker) error {
	return c.next.SetRowMarker(ctx, row, marker)
}

func (c *SnapshotCache) drop(ctx context.Context) {
	if err := c.client.Del(ctx, c.key); err != nil {
		log.Printf("snapshot-cache: invalidate failed: %v", err)
	}
}
