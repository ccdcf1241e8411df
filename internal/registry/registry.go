// Package registry tracks which claimed accounts each requester still owes
// an outcome report for. It is a process-local index derived from the
// table: the table remains the source of truth, and the registry can be
// rebuilt from it by scanning for ASSIGNED rows (see the allocation
// service's startup rebuild).
package registry

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Resolve when the requester has no pending
// claim under the given account reference. This is a user-facing condition
// ("you have no such pending account"), not a fault.
var ErrNotFound = errors.New("no pending claim")

// ErrLimitExceeded is returned by Record when a configured cap on
// outstanding claims per requester would be exceeded.
var ErrLimitExceeded = errors.New("pending claim limit exceeded")

// PendingClaim links an account reference (the username the holder will
// report with) to the row position captured at claim time.
type PendingClaim struct {
	AccountRef string
	Row        int
}

// Registry maps a requester identity to their pending claims. All methods
// are safe for concurrent use; a single mutex guards the map, and within
// one requester operations apply in the order the lock grants them.
type Registry struct {
	mu      sync.Mutex
	pending map[string][]PendingClaim
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{pending: make(map[string][]PendingClaim)}
}

// Record appends a pending claim for the requester. A maxPending of zero
// means unlimited, preserving the historical behavior of allowing repeated
// claims before any report; a positive cap makes Record fail with
// ErrLimitExceeded when the requester already holds that many claims.
// No de-duplication is applied: the same requester may legitimately hold
// several accounts, even with equal usernames.
func (r *Registry) Record(requesterID, accountRef string, row int, maxPending int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if maxPending > 0 && len(r.pending[requesterID]) >= maxPending {
		return ErrLimitExceeded
	}
	r.pending[requesterID] = append(r.pending[requesterID], PendingClaim{AccountRef: accountRef, Row: row})
	return nil
}

// Resolve consumes the requester's first pending claim matching accountRef
// and returns its row position. Each recorded claim resolves exactly once;
// a second call with the same arguments finds nothing. Claims of other
// requesters are invisible, even under an identical account reference.
func (r *Registry) Resolve(requesterID, accountRef string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.pending[requesterID]
	for i, pc := range list {
		if pc.AccountRef == accountRef {
			r.pending[requesterID] = append(list[:i], list[i+1:]...)
			if len(r.pending[requesterID]) == 0 {
				delete(r.pending, requesterID)
			}
			return pc.Row, nil
		}
	}
	return 0, ErrNotFound
}

// Count reports how many claims the requester has outstanding.
func (r *Registry) Count(requesterID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending[requesterID])
}

// List returns a copy of the requester's pending claims in claim order.
func (r *Registry) List(requesterID string) []PendingClaim {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.pending[requesterID]
	out := make([]PendingClaim, len(list))
	copy(out, list)
	return out
}
