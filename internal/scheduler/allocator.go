package scheduler

import (
	"sort"

	"github.com/alexanderramin/workledger/internal/domain"
)

// FindEarliestGap returns the earliest start minute at which durationMin fits
// without overlapping any reserved interval. When the day has no such gap the
// slot is clamped to end at midnight and may overlap.
func FindEarliestGap(reserved []domain.Interval, durationMin int) int {
	if durationMin < 0 {
		durationMin = 0
	}
	sorted := make([]domain.Interval, len(reserved))
	copy(sorted, reserved)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	cursor := 0
	for _, iv := range sorted {
		if cursor+durationMin <= iv.Start {
			return cursor
		}
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	if cursor+durationMin <= domain.MinutesPerDay {
		return cursor
	}
	return max(0, domain.MinutesPerDay-durationMin)
}

// allocate reserves a slot of durationMin and appends it to reserved so later
// calls never overlap it.
func allocate(reserved *[]domain.Interval, durationMin int) domain.Interval {
	start := FindEarliestGap(*reserved, durationMin)
	iv := domain.Interval{Start: start, End: min(start+durationMin, domain.MinutesPerDay)}
	*reserved = append(*reserved, iv)
	return iv
}

func overlapsAny(reserved []domain.Interval, iv domain.Interval) bool {
	for _, r := range reserved {
		if r.Overlaps(iv) {
			return true
		}
	}
	return false
}
