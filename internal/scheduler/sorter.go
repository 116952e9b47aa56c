package scheduler

import (
	"sort"

	"github.com/alexanderramin/workledger/internal/domain"
)

// candidate is a detailed entry with its parsed interval.
type candidate struct {
	entry    domain.DetailedLogEntry
	interval domain.Interval
}

// candidatePool filters detailed entries to those with a valid, ordered
// from<to range and sorts them by start ascending. Entries with equal starts
// keep their input order.
func candidatePool(detailed []domain.DetailedLogEntry) []candidate {
	pool := make([]candidate, 0, len(detailed))
	for _, d := range detailed {
		r := d.Range()
		if r == nil {
			continue
		}
		iv, _ := r.Interval()
		pool = append(pool, candidate{entry: d, interval: iv})
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].interval.Start < pool[j].interval.Start
	})
	return pool
}
