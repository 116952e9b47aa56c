package testutil

import (
	"time"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/google/uuid"
)

// ItemOption customises a test work item.
type ItemOption func(*domain.WorkItem)

func WithAssignee(name string) ItemOption {
	return func(w *domain.WorkItem) { w.AssigneeName = name }
}

func WithStatus(status string) ItemOption {
	return func(w *domain.WorkItem) { w.StatusName = status }
}

func WithTimeSpent(seconds int) ItemOption {
	return func(w *domain.WorkItem) { w.TimeSpent = seconds }
}

// WithWorklog appends a worklog and marks worklogs loaded.
func WithWorklog(author string, started time.Time, seconds int) ItemOption {
	return func(w *domain.WorkItem) {
		w.WorklogsLoaded = true
		w.Worklogs = append(w.Worklogs, domain.Worklog{AuthorName: author, Started: started, Seconds: seconds})
	}
}

// WithWorklogsLoaded marks a full-granularity item with no worklogs.
func WithWorklogsLoaded() ItemOption {
	return func(w *domain.WorkItem) { w.WorklogsLoaded = true }
}

func WithSubtasks(subtasks ...domain.WorkItem) ItemOption {
	return func(w *domain.WorkItem) { w.Subtasks = append(w.Subtasks, subtasks...) }
}

// NewTestItem builds a work item with a random key suffix when key is empty.
func NewTestItem(key string, opts ...ItemOption) domain.WorkItem {
	if key == "" {
		key = "T-" + uuid.NewString()[:8]
	}
	w := domain.WorkItem{
		Key:        key,
		Summary:    "Test " + key,
		StatusName: "In Progress",
	}
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

// NewTestMapping builds a customer->epic mapping.
func NewTestMapping(customer, epicKey string) *domain.EpicMapping {
	return &domain.EpicMapping{
		Customer:  customer,
		EpicKey:   epicKey,
		CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// NewTestSnapshot builds a snapshot for epicKey in the month of at.
func NewTestSnapshot(epicKey string, at time.Time, frozen bool, secondsByPerson map[string]int) *domain.PositionSnapshot {
	total := 0
	percents := make(map[string]int, len(secondsByPerson))
	for name, s := range secondsByPerson {
		total += s
		percents[name] = s / 3600
	}
	return &domain.PositionSnapshot{
		EpicKey:         epicKey,
		MonthKey:        domain.MonthKey(at),
		Frozen:          frozen,
		ComputedAt:      at,
		TotalSeconds:    total,
		SecondsByPerson: secondsByPerson,
		Percents:        percents,
	}
}
