package scheduler

import "github.com/alexanderramin/workledger/internal/domain"

// Matcher assigns detailed time ranges to abstract entries for one day. The
// result is index-aligned with abstract; a nil element means unresolved.
type Matcher interface {
	Reconcile(abstract []domain.AbstractLogEntry, detailed []domain.DetailedLogEntry) []*domain.TimeRange
}

// GreedyMatcher matches abstract entries in input order against the best
// remaining candidate, without backtracking. An early low-quality match can
// take a candidate a later entry would have scored higher on; this mirrors the
// ledger client's observed behaviour and is kept deliberately.
type GreedyMatcher struct{}

// Reconcile implements Matcher.
func (GreedyMatcher) Reconcile(abstract []domain.AbstractLogEntry, detailed []domain.DetailedLogEntry) []*domain.TimeRange {
	resolved := make([]*domain.TimeRange, len(abstract))
	pool := candidatePool(detailed)

	for i, a := range abstract {
		best, bestScore := -1, 0
		for j, c := range pool {
			if s := MatchScore(a, c.entry); s > bestScore {
				best, bestScore = j, s
			}
		}
		if best < 0 {
			continue
		}
		r := domain.RangeFromInterval(pool[best].interval)
		resolved[i] = &r
		pool = append(pool[:best], pool[best+1:]...)
	}
	return resolved
}

// Reconcile runs the default greedy matcher.
func Reconcile(abstract []domain.AbstractLogEntry, detailed []domain.DetailedLogEntry) []*domain.TimeRange {
	return GreedyMatcher{}.Reconcile(abstract, detailed)
}
