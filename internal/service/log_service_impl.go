package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/remote"
	"github.com/alexanderramin/workledger/internal/scheduler"
)

type logService struct {
	ledger   Ledger
	matcher  scheduler.Matcher
	notices  *NoticeBoard
	observer UseCaseObserver
	monthGen Generation

	mu       sync.Mutex
	detailed map[string][]domain.DetailedLogEntry
}

func NewLogService(ledger Ledger, notices *NoticeBoard, observers ...UseCaseObserver) LogService {
	if notices == nil {
		notices = NewNoticeBoard()
	}
	return &logService{
		ledger:   ledger,
		matcher:  scheduler.GreedyMatcher{},
		notices:  notices,
		observer: useCaseObserverOrNoop(observers),
		detailed: make(map[string][]domain.DetailedLogEntry),
	}
}

// withSession runs fn and, if the ledger reports an expired session,
// re-authenticates once and retries once.
func withSession[T any](ctx context.Context, ledger Ledger, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := fn(ctx)
	if !errors.Is(err, remote.ErrAuthRequired) {
		return v, err
	}
	if rerr := ledger.Reauthenticate(ctx); rerr != nil {
		return zero, fmt.Errorf("%w: re-authentication failed: %v", ErrSessionExpired, rerr)
	}
	v, err = fn(ctx)
	if errors.Is(err, remote.ErrAuthRequired) {
		return zero, ErrSessionExpired
	}
	return v, err
}

func (s *logService) ListDay(ctx context.Context, date string) (*DayView, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	entries, err := s.dayEntries(ctx, date)
	if err != nil {
		return nil, err
	}
	detailed, err := s.detailedFor(ctx, date)
	if err != nil {
		return nil, err
	}
	return &DayView{
		Date:    date,
		Entries: entries,
		Ranges:  s.matcher.Reconcile(entries, detailed),
	}, nil
}

// LoadMonth fetches the duration-only report for month ("YYYY-MM"). If a
// newer LoadMonth starts before this one settles, this one returns ErrStale.
func (s *logService) LoadMonth(ctx context.Context, month string) (*domain.MonthlyReport, error) {
	start, err := time.Parse(domain.MonthKeyLayout, month)
	if err != nil {
		return nil, fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidEntry, month)
	}
	end := start.AddDate(0, 1, -1)

	id := s.monthGen.Next()
	report, err := withSession(ctx, s.ledger, func(ctx context.Context) (*domain.MonthlyReport, error) {
		return s.ledger.GetReports(ctx, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	})
	if !s.monthGen.Current(id) {
		return nil, ErrStale
	}
	if err != nil {
		s.notices.Raise("load-month", month, err)
		return nil, err
	}
	return report, nil
}

func (s *logService) AddEntry(ctx context.Context, date string, in EntryInput) (domain.DayPayload, error) {
	return s.mutate(ctx, "add-entry", date, func(original []domain.AbstractLogEntry, detailed []domain.DetailedLogEntry) (domain.DayPayload, error) {
		entry, r, err := normalizeInput(in)
		if err != nil {
			return domain.DayPayload{}, err
		}
		newEntry := &scheduler.NewEntry{Entry: entry}
		if r != nil {
			newEntry.Range = *r
		}
		return scheduler.BuildDayPayload(scheduler.PayloadRequest{
			DateKey:   date,
			Surviving: scheduler.SurvivorsExcept(original, -1),
			Original:  original,
			Detailed:  detailed,
			NewEntry:  newEntry,
			Matcher:   s.matcher,
		}), nil
	})
}

func (s *logService) EditEntry(ctx context.Context, date string, index int, in EntryInput) (domain.DayPayload, error) {
	return s.mutate(ctx, "edit-entry", date, func(original []domain.AbstractLogEntry, detailed []domain.DetailedLogEntry) (domain.DayPayload, error) {
		if index < 0 || index >= len(original) {
			return domain.DayPayload{}, fmt.Errorf("%w: %s #%d", ErrEntryNotFound, date, index)
		}
		entry, r, err := normalizeInput(in)
		if err != nil {
			return domain.DayPayload{}, err
		}
		surviving := scheduler.SurvivorsExcept(original, -1)
		surviving[index].Entry = entry
		surviving[index].Range = r
		return scheduler.BuildDayPayload(scheduler.PayloadRequest{
			DateKey:   date,
			Surviving: surviving,
			Original:  original,
			Detailed:  detailed,
			Matcher:   s.matcher,
		}), nil
	})
}

func (s *logService) DeleteEntry(ctx context.Context, date string, index int) (domain.DayPayload, error) {
	return s.mutate(ctx, "delete-entry", date, func(original []domain.AbstractLogEntry, detailed []domain.DetailedLogEntry) (domain.DayPayload, error) {
		if index < 0 || index >= len(original) {
			return domain.DayPayload{}, fmt.Errorf("%w: %s #%d", ErrEntryNotFound, date, index)
		}
		return scheduler.BuildDayPayload(scheduler.PayloadRequest{
			DateKey:   date,
			Surviving: scheduler.SurvivorsExcept(original, index),
			Original:  original,
			Detailed:  detailed,
			Matcher:   s.matcher,
		}), nil
	})
}

type payloadBuilder func(original []domain.AbstractLogEntry, detailed []domain.DetailedLogEntry) (domain.DayPayload, error)

// mutate loads the day, builds the replacement payload and writes it. An
// empty payload clears the day. The date's detailed log is refetched on the
// next read.
func (s *logService) mutate(ctx context.Context, name, date string, build payloadBuilder) (payload domain.DayPayload, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"date": date}
	defer func() {
		if err != nil {
			s.notices.Raise(name, date, err)
		}
		observe(ctx, s.observer, name, startedAt, fields, err)
	}()

	if err = validateDate(date); err != nil {
		return domain.DayPayload{}, err
	}
	original, err := s.dayEntries(ctx, date)
	if err != nil {
		return domain.DayPayload{}, err
	}
	detailed, err := s.detailedFor(ctx, date)
	if err != nil {
		return domain.DayPayload{}, err
	}

	payload, err = build(original, detailed)
	if err != nil {
		return domain.DayPayload{}, err
	}
	payload.DateKey = date
	fields["entries"] = len(payload.Entries)
	fields["synthetic"] = countTrue(payload.Synthetic)

	if len(payload.Entries) == 0 {
		_, err = withSession(ctx, s.ledger, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.ledger.DeleteLog(ctx, date)
		})
	} else {
		_, err = withSession(ctx, s.ledger, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.ledger.LogWork(ctx, payload)
		})
	}
	s.invalidateDate(date)
	if err != nil {
		return domain.DayPayload{}, err
	}
	return payload, nil
}

func (s *logService) dayEntries(ctx context.Context, date string) ([]domain.AbstractLogEntry, error) {
	report, err := withSession(ctx, s.ledger, func(ctx context.Context) (*domain.MonthlyReport, error) {
		return s.ledger.GetReports(ctx, date, date)
	})
	if err != nil {
		return nil, err
	}
	return report.Day(date), nil
}

// detailedFor returns the date's detailed log, fetching it once per date
// until a mutation invalidates it.
func (s *logService) detailedFor(ctx context.Context, date string) ([]domain.DetailedLogEntry, error) {
	s.mu.Lock()
	cached, ok := s.detailed[date]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	detailed, err := withSession(ctx, s.ledger, func(ctx context.Context) ([]domain.DetailedLogEntry, error) {
		return s.ledger.GetWorkLogs(ctx, date)
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.detailed[date] = detailed
	s.mu.Unlock()
	return detailed, nil
}

func (s *logService) invalidateDate(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.detailed, date)
}

// Logout drops cached ledger data and supersedes in-flight month loads.
func (s *logService) Logout() {
	s.monthGen.Invalidate()
	s.mu.Lock()
	s.detailed = make(map[string][]domain.DetailedLogEntry)
	s.mu.Unlock()
}

func validateDate(date string) error {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidEntry, date)
	}
	return nil
}

// normalizeInput validates in and returns the entry with its duration
// filled from the range when one is given.
func normalizeInput(in EntryInput) (domain.AbstractLogEntry, *domain.TimeRange, error) {
	e := in.Entry
	if e.TaskID <= 0 {
		return e, nil, fmt.Errorf("%w: task id is required", ErrInvalidEntry)
	}
	if e.ReportingFrom != "" && !domain.ReportingFrom(e.ReportingFrom).Valid() {
		return e, nil, fmt.Errorf("%w: reporting-from %q must be office, home or client", ErrInvalidEntry, e.ReportingFrom)
	}

	var r *domain.TimeRange
	if in.From != "" || in.To != "" {
		tr := domain.TimeRange{From: in.From, To: in.To}
		iv, ok := tr.Interval()
		if !ok || iv.Start >= iv.End {
			return e, nil, fmt.Errorf("%w: range %s-%s is not a valid HH:MM span", ErrInvalidEntry, in.From, in.To)
		}
		r = &tr
		e.HoursHHMM = domain.FormatHHMM(iv.Len())
	}
	if r == nil {
		m, err := domain.ParseHHMM(e.HoursHHMM)
		if err != nil || m <= 0 {
			return e, nil, fmt.Errorf("%w: duration %q must be HH:MM", ErrInvalidEntry, e.HoursHHMM)
		}
		e.HoursHHMM = domain.FormatHHMM(m)
	}
	return e, r, nil
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
