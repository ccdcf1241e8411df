// Package storetest provides an in-memory Store used by pool, service and
// handler tests. It keeps rows in a slice guarded by a mutex and supports
// fault injection so store-outage paths can be exercised without a backend.
package storetest

import (
	"context"
	"sync"

	"github.com/iliyamo/account-allocator/internal/model"
	"github.com/iliyamo/account-allocator/internal/store"
)

// Memory is a Store backed by a slice. The zero value is not usable; build
// one with New. Fault hooks, when set, run before the real operation and
// their non-nil error is returned instead.
type Memory struct {
	mu      sync.Mutex
	rows    []model.AccountRecord
	markers map[int]model.RowMarker

	// ReadAllErr fails every ReadAllRows call when non-nil.
	ReadAllErr error
	// WriteCellHook may veto a WriteCell by returning a non-nil error.
	WriteCellHook func(row int, field model.Field, value string) error
	// MarkerErr fails every SetRowMarker call when non-nil.
	MarkerErr error
}

// New builds a Memory store seeded with the given rows in table order.
func New(rows ...model.AccountRecord) *Memory {
	m := &Memory{markers: make(map[int]model.RowMarker)}
	m.rows = append(m.rows, rows...)
	return m
}

// Free returns a FREE row with the given username and region, a convenience
// for building test tables.
func Free(username, region string) model.AccountRecord {
	return model.AccountRecord{
		Username:     username,
		Password:     "pw-" + username,
		MailAddress:  username + "@mail.test",
		MailPassword: "mail-" + username,
		State:        model.StateFree,
		Region:       region,
	}
}

// Assigned returns a row already checked out to the given assignee.
func Assigned(username, assignee string) model.AccountRecord {
	r := Free(username, "")
	r.State = model.StateAssigned
	r.Assignee = assignee
	return r
}

func (m *Memory) ReadAllRows(ctx context.Context) ([]model.AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadAllErr != nil {
		return nil, m.ReadAllErr
	}
	out := make([]model.AccountRecord, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *Memory) ReadRow(ctx context.Context, row int) (model.AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 0 || row >= len(m.rows) {
		return model.AccountRecord{}, store.ErrRowOutOfRange
	}
	return m.rows[row], nil
}

func (m *Memory) WriteCell(ctx context.Context, row int, field model.Field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteCellHook != nil {
		if err := m.WriteCellHook(row, field, value); err != nil {
			return err
		}
	}
	if row < 0 || row >= len(m.rows) {
		return store.ErrRowOutOfRange
	}
	switch field {
	case model.FieldState:
		m.rows[row].State = value
	case model.FieldAssignee:
		m.rows[row].Assignee = value
	case model.FieldRegion:
		m.rows[row].Region = value
	}
	return nil
}

func (m *Memory) SetRowMarker(ctx context.Context, row int, marker model.RowMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkerErr != nil {
		return m.MarkerErr
	}
	if row < 0 || row >= len(m.rows) {
		return store.ErrRowOutOfRange
	}
	m.markers[row] = marker
	return nil
}

// Row returns the current content of a row for assertions.
func (m *Memory) Row(row int) model.AccountRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[row]
}

// Marker returns the last marker set on a row, NEUTRAL when never set.
func (m *Memory) Marker(row int) model.RowMarker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mk, ok := m.markers[row]; ok {
		return mk
	}
	return model.MarkerNeutral
}
