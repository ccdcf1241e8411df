package store

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/account-allocator/internal/model"
)

// sliceStore is a minimal Store over a slice, counting full-table reads so
// tests can tell a cache hit from a read-through.
type sliceStore struct {
	rows  []model.AccountRecord
	reads int
}

func (s *sliceStore) ReadAllRows(ctx context.Context) ([]model.AccountRecord, error) {
	s.reads++
	out := make([]model.AccountRecord, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *sliceStore) ReadRow(ctx context.Context, row int) (model.AccountRecord, error) {
	if row < 0 || row >= len(s.rows) {
		return model.AccountRecord{}, ErrRowOutOfRange
	}
	return s.rows[row], nil
}

func (s *sliceStore) WriteCell(ctx context.Context, row int, field model.Field, value string) error {
	if row < 0 || row >= len(s.rows) {
		return ErrRowOutOfRange
	}
	switch field {
	case model.FieldState:
		s.rows[row].State = value
	case model.FieldAssignee:
		s.rows[row].Assignee = value
	case model.FieldRegion:
		s.rows[row].Region = value
	}
	return nil
}

func (s *sliceStore) SetRowMarker(ctx context.Context, row int, marker model.RowMarker) error {
	return nil
}

// mapSnapshotClient implements snapshotClient over a map.
type mapSnapshotClient struct {
	data map[string][]byte
	dels int
}

func newMapClient() *mapSnapshotClient {
	return &mapSnapshotClient{data: make(map[string][]byte)}
}

func (m *mapSnapshotClient) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errCacheMiss
}

func (m *mapSnapshotClient) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.data[key] = data
	return nil
}

func (m *mapSnapshotClient) Del(ctx context.Context, key string) error {
	m.dels++
	delete(m.data, key)
	return nil
}

func freeRow(username string) model.AccountRecord {
	return model.AccountRecord{Username: username, State: model.StateFree}
}

func TestSnapshotCacheServesSecondReadFromCache(t *testing.T) {
	inner := &sliceStore{rows: []model.AccountRecord{freeRow("a0"), freeRow("a1")}}
	client := newMapClient()
	c := newSnapshotCache(inner, client, "k", time.Minute)

	first, err := c.ReadAllRows(context.Background())
	if err != nil {
		t.Fatalf("read-through failed: %v", err)
	}
	second, err := c.ReadAllRows(context.Background())
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if inner.reads != 1 {
		t.Fatalf("expected one backend read, got %d", inner.reads)
	}
	if len(first) != 2 || len(second) != 2 || second[1].Username != "a1" {
		t.Fatalf("snapshot content wrong: first=%v second=%v", first, second)
	}
}

func TestSnapshotCacheWriteCellInvalidates(t *testing.T) {
	inner := &sliceStore{rows: []model.AccountRecord{freeRow("a0")}}
	client := newMapClient()
	c := newSnapshotCache(inner, client, "k", time.Minute)

	if _, err := c.ReadAllRows(context.Background()); err != nil {
		t.Fatalf("warm-up read failed: %v", err)
	}
	if err := c.WriteCell(context.Background(), 0, model.FieldState, model.StateAssigned); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if client.dels == 0 {
		t.Fatalf("write did not invalidate the snapshot")
	}

	// The next read goes to the backend and sees the new state.
	rows, err := c.ReadAllRows(context.Background())
	if err != nil {
		t.Fatalf("read after write failed: %v", err)
	}
	if inner.reads != 2 {
		t.Fatalf("expected read-through after invalidation, backend reads=%d", inner.reads)
	}
	if !rows[0].HasState(model.StateAssigned) {
		t.Fatalf("stale snapshot served after write: %+v", rows[0])
	}
}

func TestSnapshotCacheCorruptEntryFallsThrough(t *testing.T) {
	inner := &sliceStore{rows: []model.AccountRecord{freeRow("a0")}}
	client := newMapClient()
	client.data["k"] = []byte("{not json")
	c := newSnapshotCache(inner, client, "k", time.Minute)

	rows, err := c.ReadAllRows(context.Background())
	if err != nil {
		t.Fatalf("read with corrupt entry failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Username != "a0" {
		t.Fatalf("backend rows not served: %v", rows)
	}
	if client.dels == 0 {
		t.Fatalf("corrupt entry was not dropped")
	}
	if inner.reads != 1 {
		t.Fatalf("expected one backend read, got %d", inner.reads)
	}
}

func TestSnapshotCacheReadRowBypassesCache(t *testing.T) {
	inner := &sliceStore{rows: []model.AccountRecord{freeRow("a0")}}
	client := newMapClient()
	c := newSnapshotCache(inner, client, "k", time.Minute)

	if _, err := c.ReadAllRows(context.Background()); err != nil {
		t.Fatalf("warm-up read failed: %v", err)
	}
	// Mutate the backend directly, leaving the cached snapshot stale.
	inner.rows[0].State = model.StateAssigned

	rec, err := c.ReadRow(context.Background(), 0)
	if err != nil {
		t.Fatalf("point read failed: %v", err)
	}
	if !rec.HasState(model.StateAssigned) {
		t.Fatalf("ReadRow served stale data: %+v", rec)
	}
}

func TestWithSnapshotCacheNilClientReturnsUnwrapped(t *testing.T) {
	inner := &sliceStore{}
	if got := WithSnapshotCache(inner, nil, "k", time.Minute); got != Store(inner) {
		t.Fatalf("nil client should leave the store unwrapped")
	}
}
