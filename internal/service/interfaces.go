package service

import (
	"context"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/jiracache"
	"github.com/alexanderramin/workledger/internal/prefetch"
)

// Ledger is the remote time-tracking service.
type Ledger interface {
	GetReports(ctx context.Context, startDate, endDate string) (*domain.MonthlyReport, error)
	GetWorkLogs(ctx context.Context, date string) ([]domain.DetailedLogEntry, error)
	LogWork(ctx context.Context, payload domain.DayPayload) error
	DeleteLog(ctx context.Context, date string) error
	Reauthenticate(ctx context.Context) error
}

// DetailCache is the Jira detail cache surface the services use.
type DetailCache interface {
	Get(ctx context.Context, epicKey string, level domain.Granularity) (domain.DetailEntry, error)
	GetFull(ctx context.Context, epicKey string) (domain.DetailEntry, error)
	Refresh(ctx context.Context, epicKey string) (domain.DetailEntry, error)
	Peek(epicKey string) (domain.DetailEntry, bool)
	HasComplete(epicKey string) bool
	Invalidate(epicKey string)
	Clear()
	Subscribe(fn func(jiracache.Event)) (cancel func())
}

// Prefetcher drives background full loads.
type Prefetcher interface {
	Schedule(keys []string) int
	Forget(key string)
	Reset()
	Progress() prefetch.Progress
	Entries() map[string]domain.PrefetchEntry
	OnProgress(fn func(prefetch.Progress)) (cancel func())
	Wait(ctx context.Context) error
}

// JiraState tracks whether Jira has usable credentials.
type JiraState interface {
	Configured() bool
	MarkUnconfigured(ctx context.Context) error
}

// DayView is one date's entries with their reconciled clock ranges.
type DayView struct {
	Date    string
	Entries []domain.AbstractLogEntry
	Ranges  []*domain.TimeRange // index-aligned with Entries; nil when unresolved
}

// EntryInput is an entry to add or the replacement for an edited one. From
// and To are optional; without them the entry is placed in the earliest gap.
type EntryInput struct {
	Entry domain.AbstractLogEntry
	From  string
	To    string
}

// ContributorReport is the contributor breakdown for an epic.
type ContributorReport struct {
	EpicKey      string
	Contributors []domain.Contributor
	FromWorklogs bool
	Partial      bool
}

type LogService interface {
	ListDay(ctx context.Context, date string) (*DayView, error)
	LoadMonth(ctx context.Context, month string) (*domain.MonthlyReport, error)
	AddEntry(ctx context.Context, date string, in EntryInput) (domain.DayPayload, error)
	EditEntry(ctx context.Context, date string, index int, in EntryInput) (domain.DayPayload, error)
	DeleteEntry(ctx context.Context, date string, index int) (domain.DayPayload, error)
	Logout()
}

type JiraService interface {
	Epics(ctx context.Context) ([]*domain.EpicMapping, error)
	MapEpic(ctx context.Context, customer, epicKey string) error
	UnmapEpic(ctx context.Context, customer string) error
	ImportMappings(ctx context.Context, mappings []domain.EpicMapping) (int, error)
	LoadWorkItems(ctx context.Context, epicKey string) (domain.DetailEntry, error)
	RefreshEpic(ctx context.Context, epicKey string) (domain.DetailEntry, error)
	Contributors(ctx context.Context, epicKey string, full bool) (*ContributorReport, error)
	Position(ctx context.Context, epicKey string) (*domain.PositionSnapshot, error)
	PrefetchAll(ctx context.Context) (int, error)
	PrefetchProgress() prefetch.Progress
	PrefetchEntries() map[string]domain.PrefetchEntry
	OnPrefetchProgress(fn func(prefetch.Progress)) (cancel func())
	WaitPrefetch(ctx context.Context) error
	Logout()
}
