package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/remote"
)

// FakeLedger is an in-memory ledger. Each day keeps both the duration-only
// view and the detailed view, and LogWork replaces both.
type FakeLedger struct {
	mu sync.Mutex

	Abstract map[string][]domain.AbstractLogEntry
	Detailed map[string][]domain.DetailedLogEntry

	// SessionExpired makes every call except Reauthenticate fail with
	// remote.ErrAuthRequired until a successful Reauthenticate.
	SessionExpired bool
	// ReauthErr, when set, is returned by Reauthenticate.
	ReauthErr error
	// LogWorkErr, when set, is returned by LogWork.
	LogWorkErr error

	Written       []domain.DayPayload
	Deleted       []string
	Reauths       int
	WorkLogsCalls map[string]int
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		Abstract:      make(map[string][]domain.AbstractLogEntry),
		Detailed:      make(map[string][]domain.DetailedLogEntry),
		WorkLogsCalls: make(map[string]int),
	}
}

// SetDay seeds one date.
func (f *FakeLedger) SetDay(date string, abstract []domain.AbstractLogEntry, detailed []domain.DetailedLogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Abstract[date] = abstract
	f.Detailed[date] = detailed
}

func (f *FakeLedger) GetReports(ctx context.Context, startDate, endDate string) (*domain.MonthlyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SessionExpired {
		return nil, remote.ErrAuthRequired
	}
	var dates []string
	for d := range f.Abstract {
		if d >= startDate && d <= endDate {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	report := &domain.MonthlyReport{}
	for _, d := range dates {
		report.Days = append(report.Days, domain.DayReport{
			Date:    d,
			Reports: append([]domain.AbstractLogEntry(nil), f.Abstract[d]...),
		})
	}
	return report, nil
}

func (f *FakeLedger) GetWorkLogs(ctx context.Context, date string) ([]domain.DetailedLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SessionExpired {
		return nil, remote.ErrAuthRequired
	}
	f.WorkLogsCalls[date]++
	return append([]domain.DetailedLogEntry(nil), f.Detailed[date]...), nil
}

func (f *FakeLedger) LogWork(ctx context.Context, payload domain.DayPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SessionExpired {
		return remote.ErrAuthRequired
	}
	if f.LogWorkErr != nil {
		return f.LogWorkErr
	}
	f.Written = append(f.Written, payload)

	abstract := make([]domain.AbstractLogEntry, 0, len(payload.Entries))
	detailed := make([]domain.DetailedLogEntry, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		abstract = append(abstract, domain.AbstractLogEntry{
			TaskID: e.TaskID, HoursHHMM: e.HoursHHMM, Comment: e.Comment, ReportingFrom: e.ReportingFrom,
		})
		detailed = append(detailed, domain.DetailedLogEntry{
			TaskID: e.TaskID, From: e.From, To: e.To, HoursHHMM: e.HoursHHMM, Comment: e.Comment, ReportingFrom: e.ReportingFrom,
		})
	}
	f.Abstract[payload.DateKey] = abstract
	f.Detailed[payload.DateKey] = detailed
	return nil
}

func (f *FakeLedger) DeleteLog(ctx context.Context, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SessionExpired {
		return remote.ErrAuthRequired
	}
	f.Deleted = append(f.Deleted, date)
	delete(f.Abstract, date)
	delete(f.Detailed, date)
	return nil
}

func (f *FakeLedger) Reauthenticate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reauths++
	if f.ReauthErr != nil {
		return f.ReauthErr
	}
	f.SessionExpired = false
	return nil
}

// LastWrite returns the most recent LogWork payload.
func (f *FakeLedger) LastWrite() (domain.DayPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Written) == 0 {
		return domain.DayPayload{}, false
	}
	return f.Written[len(f.Written)-1], true
}
