package contributor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/repository"
)

// SnapshotStore persists position snapshots per epic and month. Get returns
// repository.ErrNotFound when none exists.
type SnapshotStore interface {
	Get(ctx context.Context, epicKey, monthKey string) (*domain.PositionSnapshot, error)
	Save(ctx context.Context, s *domain.PositionSnapshot) error
}

// Positions recomputes monthly snapshots, leaving frozen ones untouched.
type Positions struct {
	store  SnapshotStore
	policy Policy
	now    func() time.Time
}

// NewPositions creates a Positions backed by store.
func NewPositions(store SnapshotStore, policy Policy, now func() time.Time) *Positions {
	if now == nil {
		now = time.Now
	}
	return &Positions{store: store, policy: policy, now: now}
}

// Recompute builds the current month's snapshot for epicKey from items and
// stores it. When a frozen snapshot already exists for the month it is
// returned unchanged and nothing is recomputed. When the items cannot yield
// a snapshot the stored one, if any, is returned.
func (p *Positions) Recompute(ctx context.Context, epicKey string, items []domain.WorkItem) (*domain.PositionSnapshot, error) {
	now := p.now()
	existing, err := p.Current(ctx, epicKey, domain.MonthKey(now))
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Frozen {
		return existing, nil
	}

	snap := BuildMonthlySnapshot(epicKey, items, now, p.policy)
	if snap == nil {
		return existing, nil
	}
	if err := p.store.Save(ctx, snap); err != nil {
		if errors.Is(err, repository.ErrSnapshotFrozen) {
			return p.Current(ctx, epicKey, snap.MonthKey)
		}
		return nil, fmt.Errorf("saving position snapshot: %w", err)
	}
	return snap, nil
}

// Current returns the stored snapshot for epicKey and monthKey, or nil.
func (p *Positions) Current(ctx context.Context, epicKey, monthKey string) (*domain.PositionSnapshot, error) {
	s, err := p.store.Get(ctx, epicKey, monthKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading position snapshot: %w", err)
	}
	return s, nil
}

// MonthKey returns the key Recompute uses for the current time.
func (p *Positions) MonthKey() string {
	return domain.MonthKey(p.now())
}
