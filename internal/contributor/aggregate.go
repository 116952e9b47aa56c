// Package contributor derives per-person time totals and monthly position
// percentages from cached Jira detail.
package contributor

import (
	"sort"

	"github.com/alexanderramin/workledger/internal/domain"
)

// UnassignedName labels time without an author or assignee.
const UnassignedName = "Unassigned"

// Aggregate sums worklog seconds per author across items and their
// subtasks. It requires full-granularity data.
func Aggregate(items []domain.WorkItem) []domain.Contributor {
	totals := make(map[string]int)
	var walk func([]domain.WorkItem)
	walk = func(items []domain.WorkItem) {
		for _, it := range items {
			for _, wl := range it.Worklogs {
				totals[nameOrUnassigned(wl.AuthorName)] += wl.Seconds
			}
			walk(it.Subtasks)
		}
	}
	walk(items)
	return sorted(totals)
}

// AggregateByAssignee attributes each leaf item's time spent to its
// assignee. Items with subtasks are skipped; their subtasks carry the
// breakdown.
func AggregateByAssignee(items []domain.WorkItem) []domain.Contributor {
	totals := make(map[string]int)
	var walk func([]domain.WorkItem)
	walk = func(items []domain.WorkItem) {
		for _, it := range items {
			if len(it.Subtasks) > 0 {
				walk(it.Subtasks)
				continue
			}
			if it.TimeSpent > 0 {
				totals[nameOrUnassigned(it.AssigneeName)] += it.TimeSpent
			}
		}
	}
	walk(items)
	return sorted(totals)
}

// Contributors picks the worklog path when every item carries worklogs and
// falls back to assignment otherwise.
func Contributors(items []domain.WorkItem) []domain.Contributor {
	if len(items) > 0 && domain.WorklogsComplete(items) {
		return Aggregate(items)
	}
	return AggregateByAssignee(items)
}

func nameOrUnassigned(name string) string {
	if name == "" {
		return UnassignedName
	}
	return name
}

func sorted(totals map[string]int) []domain.Contributor {
	out := make([]domain.Contributor, 0, len(totals))
	for name, secs := range totals {
		if secs <= 0 {
			continue
		}
		out = append(out, domain.Contributor{Name: name, Seconds: secs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Name < out[j].Name
	})
	return out
}
