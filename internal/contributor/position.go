package contributor

import (
	"math"
	"time"

	"github.com/alexanderramin/workledger/internal/domain"
)

// Policy holds the constants of the position computation.
type Policy struct {
	DailyHours   float64
	WeekendDays  []time.Weekday
	DoneStatuses []string
}

// DefaultPolicy is a ten-hour day with a Friday/Saturday weekend.
func DefaultPolicy() Policy {
	return Policy{
		DailyHours:   10,
		WeekendDays:  []time.Weekday{time.Friday, time.Saturday},
		DoneStatuses: domain.DefaultDoneStatuses,
	}
}

func (p Policy) isWeekend(d time.Weekday) bool {
	for _, w := range p.WeekendDays {
		if w == d {
			return true
		}
	}
	return false
}

// WorkdaysSoFar counts non-weekend days from the first of now's month up to
// and including now's day.
func (p Policy) WorkdaysSoFar(now time.Time) int {
	n := 0
	for d := 1; d <= now.Day(); d++ {
		day := time.Date(now.Year(), now.Month(), d, 0, 0, 0, 0, now.Location())
		if !p.isWeekend(day.Weekday()) {
			n++
		}
	}
	return n
}

// BuildMonthlySnapshot computes each person's share of expected full-time
// hours for the elapsed part of now's month. It returns nil when the items
// lack worklogs or no workday has elapsed yet. The snapshot is frozen when
// every item and subtask is done-equivalent.
func BuildMonthlySnapshot(epicKey string, items []domain.WorkItem, now time.Time, policy Policy) *domain.PositionSnapshot {
	if len(items) == 0 || !domain.WorklogsComplete(items) {
		return nil
	}
	workdays := policy.WorkdaysSoFar(now)
	if workdays == 0 || policy.DailyHours <= 0 {
		return nil
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	byPerson := make(map[string]int)
	total := 0
	var walk func([]domain.WorkItem)
	walk = func(items []domain.WorkItem) {
		for _, it := range items {
			for _, wl := range it.Worklogs {
				if wl.Started.Before(monthStart) || wl.Started.After(now) {
					continue
				}
				byPerson[nameOrUnassigned(wl.AuthorName)] += wl.Seconds
				total += wl.Seconds
			}
			walk(it.Subtasks)
		}
	}
	walk(items)

	expectedHours := float64(workdays) * policy.DailyHours
	percents := make(map[string]int, len(byPerson))
	for name, secs := range byPerson {
		hours := float64(secs) / 3600
		percents[name] = int(math.Round(hours / expectedHours * 100))
	}

	return &domain.PositionSnapshot{
		EpicKey:         epicKey,
		MonthKey:        domain.MonthKey(now),
		Frozen:          domain.AllTerminal(items, policy.DoneStatuses),
		ComputedAt:      now,
		TotalSeconds:    total,
		SecondsByPerson: byPerson,
		Percents:        percents,
	}
}
