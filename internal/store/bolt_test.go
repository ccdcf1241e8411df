package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/iliyamo/account-allocator/internal/model"
	"github.com/iliyamo/account-allocator/internal/store"
)

func newTestBolt(t *testing.T) *store.Bolt {
	t.Helper()
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedRows(t *testing.T, s *store.Bolt, rows ...model.AccountRecord) {
	t.Helper()
	if err := s.SeedRows(rows); err != nil {
		t.Fatalf("failed to seed rows: %v", err)
	}
}

func TestBoltReadAllRowsEmpty(t *testing.T) {
	s := newTestBolt(t)
	rows, err := s.ReadAllRows(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(rows))
	}
}

func TestBoltRowOrderIsStable(t *testing.T) {
	s := newTestBolt(t)
	seedRows(t, s,
		model.AccountRecord{Username: "u0", State: model.StateFree},
		model.AccountRecord{Username: "u1", State: model.StateFree},
		model.AccountRecord{Username: "u2", State: model.StateAssigned},
	)

	rows, err := s.ReadAllRows(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, want := range []string{"u0", "u1", "u2"} {
		if rows[i].Username != want {
			t.Fatalf("row %d: expected %q, got %q", i, want, rows[i].Username)
		}
	}
}

func TestBoltReadRow(t *testing.T) {
	s := newTestBolt(t)
	seedRows(t, s,
		model.AccountRecord{Username: "u0", State: model.StateFree, Region: "US"},
	)

	r, err := s.ReadRow(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Username != "u0" || r.Region != "US" {
		t.Fatalf("unexpected row: %+v", r)
	}
	if _, err := s.ReadRow(context.Background(), 1); !errors.Is(err, store.ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
}

func TestBoltWriteCell(t *testing.T) {
	s := newTestBolt(t)
	seedRows(t, s,
		model.AccountRecord{Username: "u0", State: model.StateFree},
	)

	if err := s.WriteCell(context.Background(), 0, model.FieldState, model.StateAssigned); err != nil {
		t.Fatalf("write state failed: %v", err)
	}
	if err := s.WriteCell(context.Background(), 0, model.FieldAssignee, "alice"); err != nil {
		t.Fatalf("write assignee failed: %v", err)
	}
	if err := s.WriteCell(context.Background(), 0, model.FieldRegion, model.RegionLATAM); err != nil {
		t.Fatalf("write region failed: %v", err)
	}

	r, err := s.ReadRow(context.Background(), 0)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if r.State != model.StateAssigned || r.Assignee != "alice" || r.Region != model.RegionLATAM {
		t.Fatalf("unexpected row after writes: %+v", r)
	}
	// Untouched cells survive the read-modify-write.
	if r.Username != "u0" {
		t.Fatalf("username clobbered: %q", r.Username)
	}

	if err := s.WriteCell(context.Background(), 7, model.FieldState, model.StateFree); !errors.Is(err, store.ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
}

func TestBoltRowMarker(t *testing.T) {
	s := newTestBolt(t)
	seedRows(t, s,
		model.AccountRecord{Username: "u0", State: model.StateFree},
	)

	// Unset markers default to NEUTRAL.
	m, err := s.RowMarker(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != model.MarkerNeutral {
		t.Fatalf("expected NEUTRAL, got %q", m)
	}

	if err := s.SetRowMarker(context.Background(), 0, model.MarkerClaimed); err != nil {
		t.Fatalf("set marker failed: %v", err)
	}
	if m, _ = s.RowMarker(0); m != model.MarkerClaimed {
		t.Fatalf("expected CLAIMED, got %q", m)
	}

	if err := s.SetRowMarker(context.Background(), 9, model.MarkerBroken); !errors.Is(err, store.ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
}

func TestBoltCancelledContext(t *testing.T) {
	s := newTestBolt(t)
	seedRows(t, s,
		model.AccountRecord{Username: "u0", State: model.StateFree},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.ReadAllRows(ctx); !errors.Is(err, store.ErrTimeout) {
		t.Fatalf("expected ErrTimeout for cancelled context, got %v", err)
	}
	if err := s.WriteCell(ctx, 0, model.FieldState, model.StateAssigned); !errors.Is(err, store.ErrTimeout) {
		t.Fatalf("expected ErrTimeout for cancelled context, got %v", err)
	}
	// The aborted write must not have happened.
	r, err := s.ReadRow(context.Background(), 0)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if r.State != model.StateFree {
		t.Fatalf("cancelled write mutated the row: %q", r.State)
	}
}
