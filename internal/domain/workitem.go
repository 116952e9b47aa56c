package domain

import (
	"strings"
	"time"
)

// Worklog is one authored, timestamped duration on a Jira work item.
type Worklog struct {
	AuthorName string
	Started    time.Time
	Seconds    int
}

// WorkItem is a Jira issue under an epic. Subtasks roll up into the parent.
//
// WorklogsLoaded distinguishes a light fetch (no worklog data requested) from a
// full fetch that returned zero worklogs.
type WorkItem struct {
	Key             string
	Summary         string
	TimeSpent       int
	EstimateSeconds int
	AssigneeName    string
	StatusName      string
	Worklogs        []Worklog
	WorklogsLoaded  bool
	Subtasks        []WorkItem
}

// IsTerminal reports whether the item's status is in the done-equivalent set.
func (w WorkItem) IsTerminal(doneStatuses []string) bool {
	for _, s := range doneStatuses {
		if strings.EqualFold(strings.TrimSpace(w.StatusName), s) {
			return true
		}
	}
	return false
}

// TotalSpent returns the item's own time spent plus its subtasks'.
func (w WorkItem) TotalSpent() int {
	total := w.TimeSpent
	for _, st := range w.Subtasks {
		total += st.TotalSpent()
	}
	return total
}

// TotalEstimate returns the item's estimate plus its subtasks'.
func (w WorkItem) TotalEstimate() int {
	total := w.EstimateSeconds
	for _, st := range w.Subtasks {
		total += st.TotalEstimate()
	}
	return total
}

// WorklogsComplete reports whether every item and nested subtask carries
// full-granularity worklog data. An empty list is trivially complete.
func WorklogsComplete(items []WorkItem) bool {
	for _, it := range items {
		if !it.WorklogsLoaded || !WorklogsComplete(it.Subtasks) {
			return false
		}
	}
	return true
}

// CountItems returns the number of top-level items and nested subtasks.
func CountItems(items []WorkItem) (tasks, subtasks int) {
	tasks = len(items)
	for _, it := range items {
		st, nested := CountItems(it.Subtasks)
		subtasks += st + nested
	}
	return tasks, subtasks
}

// AllTerminal reports whether every item and subtask is done-equivalent.
// An empty list is never considered complete.
func AllTerminal(items []WorkItem, doneStatuses []string) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if !it.IsTerminal(doneStatuses) {
			return false
		}
		if len(it.Subtasks) > 0 && !AllTerminal(it.Subtasks, doneStatuses) {
			return false
		}
	}
	return true
}

// DetailEntry is a cached Jira fetch result for one epic. Partial means the
// server capped the result; it is not a local cache miss.
type DetailEntry struct {
	Items   []WorkItem
	Partial bool
}

// Complete reports whether the entry can satisfy a full-granularity request.
func (e DetailEntry) Complete() bool {
	return WorklogsComplete(e.Items)
}
