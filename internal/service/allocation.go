// Package service orchestrates the account pool and the pending-claim
// registry behind the two operations the transport exposes: requesting an
// account and reporting its outcome. It is the only layer allowed to touch
// both structures, which is what keeps them consistent: a claim that cannot
// be recorded in the registry is rolled back in the pool instead of leaking
// an assigned-but-untracked row.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/account-allocator/internal/metrics"
	"github.com/iliyamo/account-allocator/internal/model"
	"github.com/iliyamo/account-allocator/internal/pool"
	"github.com/iliyamo/account-allocator/internal/queue"
	"github.com/iliyamo/account-allocator/internal/registry"
)

// Sentinel errors re-exported so the transport layer only imports this
// package for its error vocabulary.
var (
	ErrNoneAvailable  = pool.ErrNoneAvailable
	ErrRowNotAssigned = pool.ErrRowNotAssigned
	ErrNoPending      = registry.ErrNotFound
	ErrPendingLimit   = registry.ErrLimitExceeded
)

// Assignment is the payload returned to a requester after a successful
// claim: the full credential record plus the row position that later
// reports will target.
type Assignment struct {
	Row     int
	Account model.AccountRecord
}

// AllocationService wires pool and registry together. MaxPending caps the
// number of outstanding claims per requester; zero means unlimited.
// Publish, when non-nil, is invoked best-effort after successful claims and
// reports (main wires it to the RabbitMQ publisher; tests leave it nil or
// capture events).
type AllocationService struct {
	pool       *pool.Pool
	reg        *registry.Registry
	maxPending int

	Publish func(ctx context.Context, ev queue.AccountEvent) error
}

// New constructs an AllocationService and panics if a dependency is nil.
func New(p *pool.Pool, r *registry.Registry, maxPending int) *AllocationService {
	if p == nil || r == nil {
		panic("nil dependency passed to service.New")
	}
	if maxPending < 0 {
		maxPending = 0
	}
	return &AllocationService{pool: p, reg: r, maxPending: maxPending}
}

// RequestAccount claims the first eligible account for the requester,
// records the pending claim and returns the credential payload. Possible
// failures: ErrNoneAvailable when the table has no FREE non-LATAM row,
// ErrPendingLimit when the requester already holds the configured maximum,
// and store faults, which abort the operation without side effects the
// caller needs to undo.
func (s *AllocationService) RequestAccount(ctx context.Context, requesterID string) (Assignment, error) {
	start := time.Now()
	claimed, err := s.pool.Claim(ctx, requesterID)
	if err != nil {
		s.countClaim(err)
		return Assignment{}, err
	}

	if err := s.reg.Record(requesterID, claimed.Record.Username, claimed.Row, s.maxPending); err != nil {
		// The claim went through but cannot be tracked: roll the row back to
		// FREE so it is not stranded in ASSIGNED with no pending claim.
		if relErr := s.pool.Release(ctx, claimed.Row); relErr != nil {
			log.Printf("allocation: rollback of row %d failed after registry refusal: %v", claimed.Row, relErr)
		}
		metrics.ClaimsTotal.WithLabelValues("limit").Inc()
		return Assignment{}, err
	}

	metrics.ClaimsTotal.WithLabelValues("assigned").Inc()
	metrics.ClaimDuration.Observe(time.Since(start).Seconds())
	s.publish(ctx, queue.AccountEvent{
		Kind:       queue.KindClaimed,
		Requester:  requesterID,
		Username:   claimed.Record.Username,
		Row:        claimed.Row,
		Region:     claimed.Record.Region,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	return Assignment{Row: claimed.Row, Account: claimed.Record}, nil
}

// ReportOutcome resolves the requester's pending claim by account username
// and applies the outcome to the resolved row. A registry miss returns
// ErrNoPending without touching the pool. When the pool rejects the row as
// not ASSIGNED the pending entry stays consumed (the row already left
// ASSIGNED, so there is nothing left to report); on a store fault the entry
// is re-recorded so the requester can simply retry.
func (s *AllocationService) ReportOutcome(ctx context.Context, requesterID, accountRef string, outcome model.Outcome) error {
	row, err := s.reg.Resolve(requesterID, accountRef)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues(string(outcome), "no_pending").Inc()
		return err
	}

	if err := s.pool.ReportOutcome(ctx, row, outcome); err != nil {
		if errors.Is(err, pool.ErrRowNotAssigned) {
			log.Printf("allocation: registry/table mismatch: row %d for %q held by %s is not ASSIGNED", row, accountRef, requesterID)
			metrics.ReportsTotal.WithLabelValues(string(outcome), "not_assigned").Inc()
			return err
		}
		// Transient store fault: restore the pending entry so a retry can
		// resolve it again. The cap is bypassed here; the entry was already
		// admitted once.
		if recErr := s.reg.Record(requesterID, accountRef, row, 0); recErr != nil {
			log.Printf("allocation: failed to restore pending claim for %s/%q: %v", requesterID, accountRef, recErr)
		}
		s.countStoreErr("report")
		metrics.ReportsTotal.WithLabelValues(string(outcome), "error").Inc()
		return err
	}

	metrics.ReportsTotal.WithLabelValues(string(outcome), "ok").Inc()
	s.publish(ctx, queue.AccountEvent{
		Kind:       queue.KindReported,
		Requester:  requesterID,
		Username:   accountRef,
		Row:        row,
		Outcome:    string(outcome),
		State:      terminalState(outcome),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// PendingClaims lists the requester's outstanding claims in claim order.
func (s *AllocationService) PendingClaims(requesterID string) []registry.PendingClaim {
	return s.reg.List(requesterID)
}

// RebuildRegistry reseeds the registry from the table by treating every
// ASSIGNED row's assignee as the requester and its username as the account
// reference. Called once at startup so a process restart does not orphan
// rows the table still shows as ASSIGNED. Returns the number of entries
// restored.
func (s *AllocationService) RebuildRegistry(ctx context.Context) (int, error) {
	assigned, err := s.pool.AssignedRows(ctx)
	if err != nil {
		s.countStoreErr("rebuild")
		return 0, err
	}
	n := 0
	for _, c := range assigned {
		if c.Record.Assignee == "" {
			log.Printf("allocation: row %d is ASSIGNED with no assignee; skipping rebuild entry", c.Row)
			continue
		}
		// Rebuild ignores the pending cap: the table is authoritative.
		if err := s.reg.Record(c.Record.Assignee, c.Record.Username, c.Row, 0); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *AllocationService) publish(ctx context.Context, ev queue.AccountEvent) {
	if s.Publish == nil {
		return
	}
	if err := s.Publish(ctx, ev); err != nil {
		log.Printf("allocation: event publish failed (ignored): %v", err)
	}
}

func (s *AllocationService) countClaim(err error) {
	switch {
	case errors.Is(err, pool.ErrNoneAvailable):
		metrics.ClaimsTotal.WithLabelValues("none_available").Inc()
	default:
		s.countStoreErr("claim")
		metrics.ClaimsTotal.WithLabelValues("error").Inc()
	}
}

func (s *AllocationService) countStoreErr(op string) {
	metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
}

func terminalState(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeWorks:
		return model.StateWorking
	case model.OutcomeBroken:
		return model.StateBroken
	case model.OutcomeRegionMismatch:
		return model.StateRegionFlagged
	}
	return ""
}
