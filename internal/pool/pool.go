// Package pool implements the account allocation engine: a concurrency-safe
// view over the backing table that enforces the account state machine
//
//	FREE -> ASSIGNED -> WORKING | BROKEN | REGION_FLAGGED
//
// Claims are serialized through a single writer lock because the backing
// store offers no compare-and-swap: without the lock two concurrent claims
// can both observe the same row as FREE and hand one account to two
// requesters. Reports target a known row and only need per-row
// serialization.
package pool

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/iliyamo/account-allocator/internal/model"
	"github.com/iliyamo/account-allocator/internal/store"
)

// ErrNoneAvailable is returned by Claim when no row is FREE outside LATAM.
// It is a legitimate empty result, not a fault.
var ErrNoneAvailable = errors.New("no accounts available")

// ErrRowNotAssigned is returned by ReportOutcome and Release when the
// target row is not currently ASSIGNED. It signals a consistency fault
// between the registry and the table, or a duplicate report.
var ErrRowNotAssigned = errors.New("row not assigned")

// Claimed is the snapshot handed back by a successful claim. Row is the
// stable table position and must be threaded through to ReportOutcome,
// which never re-scans the table.
type Claimed struct {
	Row    int
	Record model.AccountRecord
}

// Pool owns all state transitions of account rows. Exactly one Pool must
// exist per backing table within a process.
type Pool struct {
	store store.Store

	claimMu sync.Mutex // serializes the check-then-write of every claim
	rowMu   sync.Map   // row position -> *sync.Mutex, serializes reports per row
}

// New returns a Pool over the given store.
func New(s store.Store) *Pool {
	if s == nil {
		panic("nil store passed to pool.New")
	}
	return &Pool{store: s}
}

// Claim scans the table in row order and checks out the first FREE row
// whose region is not LATAM. The scan itself runs against a snapshot that
// may come from a cache; each candidate is then re-read authoritatively
// under the claim lock before being written, so the lock is held only
// across the minimal read-check-write sequence and never across the full
// table scan.
//
// On success the row's state cell reads ASSIGNED, the assignee cell carries
// requesterID and the row marker is set to CLAIMED (best effort). Store
// faults abort the claim; a row is never considered claimed on an
// unconfirmed write.
func (p *Pool) Claim(ctx context.Context, requesterID string) (Claimed, error) {
	snapshot, err := p.store.ReadAllRows(ctx)
	if err != nil {
		return Claimed{}, err
	}
	var candidates []int
	for row, rec := range snapshot {
		if rec.Claimable() {
			candidates = append(candidates, row)
		}
	}
	if len(candidates) == 0 {
		return Claimed{}, ErrNoneAvailable
	}

	p.claimMu.Lock()
	defer p.claimMu.Unlock()
	for _, row := range candidates {
		rec, err := p.store.ReadRow(ctx, row)
		if err != nil {
			return Claimed{}, err
		}
		if !rec.Claimable() {
			// Lost the row to an earlier claim since the snapshot was taken.
			continue
		}
		if err := p.checkout(ctx, row, requesterID); err != nil {
			return Claimed{}, err
		}
		rec.State = model.StateAssigned
		rec.Assignee = requesterID
		return Claimed{Row: row, Record: rec}, nil
	}
	return Claimed{}, ErrNoneAvailable
}

// checkout performs the two cell writes of a claim. If the assignee write
// fails after the state write succeeded, the state cell is reverted so the
// row is not stranded in ASSIGNED without a holder; the revert itself is
// best effort because the store may still be down.
func (p *Pool) checkout(ctx context.Context, row int, requesterID string) error {
	if err := p.store.WriteCell(ctx, row, model.FieldState, model.StateAssigned); err != nil {
		return err
	}
	if err := p.store.WriteCell(ctx, row, model.FieldAssignee, requesterID); err != nil {
		if revertErr := p.store.WriteCell(ctx, row, model.FieldState, model.StateFree); revertErr != nil {
			log.Printf("pool: revert of row %d after failed assignee write also failed: %v", row, revertErr)
		}
		return err
	}
	if err := p.store.SetRowMarker(ctx, row, model.MarkerClaimed); err != nil {
		log.Printf("pool: marker write for claimed row %d failed: %v", row, err)
	}
	return nil
}

// ReportOutcome applies the holder's verdict to a row previously returned
// by Claim. The row must currently be ASSIGNED; otherwise the call fails
// with ErrRowNotAssigned without writing anything. Two reports racing on
// the same row are serialized, so the loser observes the terminal state and
// fails the same way.
func (p *Pool) ReportOutcome(ctx context.Context, row int, outcome model.Outcome) error {
	mu := p.lockRow(row)
	mu.Lock()
	defer mu.Unlock()

	rec, err := p.store.ReadRow(ctx, row)
	if errors.Is(err, store.ErrRowOutOfRange) {
		return ErrRowNotAssigned
	}
	if err != nil {
		return err
	}
	if !rec.HasState(model.StateAssigned) {
		return ErrRowNotAssigned
	}

	switch outcome {
	case model.OutcomeWorks:
		if err := p.store.WriteCell(ctx, row, model.FieldState, model.StateWorking); err != nil {
			return err
		}
		// The row keeps its CLAIMED marker: a working account stays green.
	case model.OutcomeBroken:
		if err := p.store.WriteCell(ctx, row, model.FieldState, model.StateBroken); err != nil {
			return err
		}
		p.mark(ctx, row, model.MarkerBroken)
	case model.OutcomeRegionMismatch:
		if err := p.store.WriteCell(ctx, row, model.FieldState, model.StateRegionFlagged); err != nil {
			return err
		}
		if err := p.store.WriteCell(ctx, row, model.FieldRegion, model.RegionLATAM); err != nil {
			return err
		}
		p.mark(ctx, row, model.MarkerRegionFlagged)
	default:
		return errors.New("unknown outcome")
	}
	return nil
}

// Release reverts an ASSIGNED row back to FREE, clearing its assignee and
// marker. The allocation service uses it to roll back a claim whose
// registry record could not be completed.
//
// Write order matters here: the assignee and marker are cleared while the
// state cell still reads ASSIGNED, and the state flips to FREE last. The
// row only becomes claimable on that final write, so a concurrent Claim can
// never check the row out while Release still has writes in flight.
func (p *Pool) Release(ctx context.Context, row int) error {
	mu := p.lockRow(row)
	mu.Lock()
	defer mu.Unlock()

	rec, err := p.store.ReadRow(ctx, row)
	if err != nil {
		return err
	}
	if !rec.HasState(model.StateAssigned) {
		return ErrRowNotAssigned
	}
	if err := p.store.WriteCell(ctx, row, model.FieldAssignee, ""); err != nil {
		return err
	}
	p.mark(ctx, row, model.MarkerNeutral)
	if err := p.store.WriteCell(ctx, row, model.FieldState, model.StateFree); err != nil {
		return err
	}
	return nil
}

// AssignedRows returns every row currently in state ASSIGNED together with
// its position. The allocation service scans these at startup to rebuild
// the pending-claim registry after a restart.
func (p *Pool) AssignedRows(ctx context.Context) ([]Claimed, error) {
	rows, err := p.store.ReadAllRows(ctx)
	if err != nil {
		return nil, err
	}
	var out []Claimed
	for row, rec := range rows {
		if rec.HasState(model.StateAssigned) {
			out = append(out, Claimed{Row: row, Record: rec})
		}
	}
	return out, nil
}

// mark sets a row marker and only logs on failure; annotation loss never
// aborts a state transition.
func (p *Pool) mark(ctx context.Context, row int, marker model.RowMarker) {
	if err := p.store.SetRowMarker(ctx, row, marker); err != nil {
		log.Printf("pool: marker write for row %d failed: %v", row, err)
	}
}

// lockRow returns the mutex guarding one row's report path.
func (p *Pool) lockRow(row int) *sync.Mutex {
	mu, _ := p.rowMu.LoadOrStore(row, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
