package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexanderramin/workledger/internal/contributor"
	"github.com/alexanderramin/workledger/internal/db"
	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/jiracache"
	"github.com/alexanderramin/workledger/internal/prefetch"
	"github.com/alexanderramin/workledger/internal/remote"
	"github.com/alexanderramin/workledger/internal/repository"
)

// lightLoadLimit bounds the parallel light loads PrefetchAll issues before
// handing keys to the background scheduler.
const lightLoadLimit = 4

var epicKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*-[0-9]+$`)

type jiraService struct {
	mappings  repository.EpicMappingRepo
	uow       db.UnitOfWork
	cache     DetailCache
	prefetch  Prefetcher
	positions *contributor.Positions
	state     JiraState
	notices   *NoticeBoard
	observer  UseCaseObserver
	loadGen   Generation
}

func NewJiraService(
	mappings repository.EpicMappingRepo,
	uow db.UnitOfWork,
	cache DetailCache,
	prefetcher Prefetcher,
	positions *contributor.Positions,
	state JiraState,
	notices *NoticeBoard,
	observers ...UseCaseObserver,
) JiraService {
	if notices == nil {
		notices = NewNoticeBoard()
	}
	s := &jiraService{
		mappings:  mappings,
		uow:       uow,
		cache:     cache,
		prefetch:  prefetcher,
		positions: positions,
		state:     state,
		notices:   notices,
		observer:  useCaseObserverOrNoop(observers),
	}
	if positions != nil {
		cache.Subscribe(s.refreshPosition)
	}
	return s
}

// refreshPosition recomputes the month's snapshot whenever complete detail
// lands in the cache, including background prefetch results.
func (s *jiraService) refreshPosition(ev jiracache.Event) {
	if ev.Level != domain.GranularityFull || !ev.Entry.Complete() {
		return
	}
	ctx := context.Background()
	startedAt := time.Now().UTC()
	_, err := s.positions.Recompute(ctx, ev.EpicKey, ev.Entry.Items)
	observe(ctx, s.observer, "refresh-position", startedAt, map[string]any{"epic": ev.EpicKey}, err)
	if err != nil {
		s.notices.Raise("refresh-position", ev.EpicKey, err)
	}
}

func (s *jiraService) Epics(ctx context.Context) ([]*domain.EpicMapping, error) {
	return s.mappings.List(ctx)
}

func (s *jiraService) MapEpic(ctx context.Context, customer, epicKey string) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "map-epic", startedAt, map[string]any{"customer": customer, "epic": epicKey}, err)
	}()

	m, err := normalizeMapping(domain.EpicMapping{Customer: customer, EpicKey: epicKey})
	if err != nil {
		return err
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteEpicMappingRepo(tx).Upsert(ctx, m)
	})
}

// UnmapEpic removes a customer's mapping. When no other customer maps the
// same epic its stored snapshots are deleted and its cached detail and
// prefetch state are dropped.
func (s *jiraService) UnmapEpic(ctx context.Context, customer string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"customer": customer}
	defer func() {
		observe(ctx, s.observer, "unmap-epic", startedAt, fields, err)
	}()

	var epicKey string
	orphaned := false
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		mappings := repository.NewSQLiteEpicMappingRepo(tx)
		m, err := mappings.GetByCustomer(ctx, customer)
		if err != nil {
			return fmt.Errorf("unmapping %q: %w", customer, err)
		}
		epicKey = m.EpicKey
		if err := mappings.Delete(ctx, customer); err != nil {
			return err
		}

		rest, err := mappings.List(ctx)
		if err != nil {
			return err
		}
		for _, other := range rest {
			if other.EpicKey == epicKey {
				return nil
			}
		}
		orphaned = true
		n, err := repository.NewSQLiteSnapshotRepo(tx).DeleteByEpic(ctx, epicKey)
		fields["snapshots_deleted"] = n
		return err
	})
	if err != nil {
		return err
	}

	fields["epic"] = epicKey
	if orphaned {
		s.cache.Invalidate(epicKey)
		s.prefetch.Forget(epicKey)
	}
	return nil
}

// ImportMappings upserts all mappings in one transaction. A single invalid
// mapping rejects the whole import.
func (s *jiraService) ImportMappings(ctx context.Context, mappings []domain.EpicMapping) (n int, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "import-mappings", startedAt, map[string]any{"count": n}, err)
	}()

	normalized := make([]*domain.EpicMapping, 0, len(mappings))
	for i, m := range mappings {
		nm, err := normalizeMapping(m)
		if err != nil {
			return 0, fmt.Errorf("mapping %d: %w", i+1, err)
		}
		normalized = append(normalized, nm)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteEpicMappingRepo(tx)
		for _, m := range normalized {
			if err := repo.Upsert(ctx, m); err != nil {
				return fmt.Errorf("importing %q: %w", m.Customer, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(normalized), nil
}

// LoadWorkItems returns light detail for epicKey. A load superseded by a
// later LoadWorkItems or Logout returns ErrStale.
func (s *jiraService) LoadWorkItems(ctx context.Context, epicKey string) (domain.DetailEntry, error) {
	if err := s.checkConfigured(); err != nil {
		return domain.DetailEntry{}, err
	}
	id := s.loadGen.Next()
	entry, err := s.cache.Get(ctx, epicKey, domain.GranularityLight)
	if !s.loadGen.Current(id) {
		return domain.DetailEntry{}, ErrStale
	}
	if err != nil {
		return domain.DetailEntry{}, s.jiraError(ctx, "load-work-items", epicKey, err)
	}
	return entry, nil
}

// RefreshEpic re-fetches full detail for epicKey even when it is cached. The
// month's position is recomputed from the result.
func (s *jiraService) RefreshEpic(ctx context.Context, epicKey string) (entry domain.DetailEntry, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "refresh-epic", startedAt, map[string]any{"epic": epicKey}, err)
	}()

	if err := s.checkConfigured(); err != nil {
		return domain.DetailEntry{}, err
	}
	entry, err = s.cache.Refresh(ctx, epicKey)
	if err != nil {
		return domain.DetailEntry{}, s.jiraError(ctx, "refresh-epic", epicKey, err)
	}
	return entry, nil
}

// Contributors reports who worked on epicKey. With full it loads worklogs
// when they are not cached; otherwise it uses whatever is cached and falls
// back to assignees.
func (s *jiraService) Contributors(ctx context.Context, epicKey string, full bool) (report *ContributorReport, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "contributors", startedAt, map[string]any{"epic": epicKey, "full": full}, err)
	}()

	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	var entry domain.DetailEntry
	switch {
	case s.cache.HasComplete(epicKey):
		entry, _ = s.cache.Peek(epicKey)
	case full:
		entry, err = s.cache.GetFull(ctx, epicKey)
	default:
		entry, err = s.cache.Get(ctx, epicKey, domain.GranularityLight)
	}
	if err != nil {
		return nil, s.jiraError(ctx, "contributors", epicKey, err)
	}

	return &ContributorReport{
		EpicKey:      epicKey,
		Contributors: contributor.Contributors(entry.Items),
		FromWorklogs: domain.WorklogsComplete(entry.Items),
		Partial:      entry.Partial,
	}, nil
}

// Position recomputes the current month's snapshot from full detail. It
// returns nil when no snapshot can be built yet.
func (s *jiraService) Position(ctx context.Context, epicKey string) (snap *domain.PositionSnapshot, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		observe(ctx, s.observer, "position", startedAt, map[string]any{"epic": epicKey, "frozen": snap != nil && snap.Frozen}, err)
	}()

	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	existing, err := s.positions.Current(ctx, epicKey, s.positions.MonthKey())
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Frozen {
		return existing, nil
	}

	entry, err := s.cache.GetFull(ctx, epicKey)
	if err != nil {
		return nil, s.jiraError(ctx, "position", epicKey, err)
	}
	return s.positions.Recompute(ctx, epicKey, entry.Items)
}

// PrefetchAll light-loads every mapped epic in parallel and schedules full
// background loads. It returns the number of keys scheduled. Individual
// light-load failures are left to the background loads, except an auth
// failure which stops everything.
func (s *jiraService) PrefetchAll(ctx context.Context) (n int, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["scheduled"] = n
		observe(ctx, s.observer, "prefetch-all", startedAt, fields, err)
	}()

	if err := s.checkConfigured(); err != nil {
		return 0, err
	}
	mappings, err := s.mappings.List(ctx)
	if err != nil {
		return 0, err
	}
	keys := uniqueEpics(mappings)
	fields["epics"] = len(keys)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lightLoadLimit)
	for _, key := range keys {
		g.Go(func() error {
			_, err := s.cache.Get(gctx, key, domain.GranularityLight)
			if errors.Is(err, remote.ErrJiraAuthRequired) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, s.jiraError(ctx, "prefetch-all", "", err)
	}

	return s.prefetch.Schedule(keys), nil
}

func (s *jiraService) PrefetchProgress() prefetch.Progress {
	return s.prefetch.Progress()
}

func (s *jiraService) PrefetchEntries() map[string]domain.PrefetchEntry {
	return s.prefetch.Entries()
}

// OnPrefetchProgress calls fn after every prefetch state change until the
// returned func is called.
func (s *jiraService) OnPrefetchProgress(fn func(prefetch.Progress)) (cancel func()) {
	return s.prefetch.OnProgress(fn)
}

// WaitPrefetch blocks until scheduled loads have settled or ctx is done.
func (s *jiraService) WaitPrefetch(ctx context.Context) error {
	return s.prefetch.Wait(ctx)
}

// Logout drops all Jira state and supersedes in-flight loads.
func (s *jiraService) Logout() {
	s.loadGen.Invalidate()
	s.prefetch.Reset()
	s.cache.Clear()
}

func (s *jiraService) checkConfigured() error {
	if s.state != nil && !s.state.Configured() {
		return ErrJiraNotConfigured
	}
	return nil
}

// jiraError raises a notice for err. Rejected credentials also mark Jira
// unconfigured and drop everything loaded with them.
func (s *jiraService) jiraError(ctx context.Context, op, scope string, err error) error {
	if !errors.Is(err, remote.ErrJiraAuthRequired) {
		s.notices.Raise(op, scope, err)
		return err
	}
	s.Logout()
	if s.state != nil {
		if serr := s.state.MarkUnconfigured(ctx); serr != nil {
			err = errors.Join(err, fmt.Errorf("saving jira state: %w", serr))
		}
	}
	s.notices.Raise(op, scope, err)
	return fmt.Errorf("%w: %w", ErrJiraNotConfigured, err)
}

func normalizeMapping(m domain.EpicMapping) (*domain.EpicMapping, error) {
	customer := strings.TrimSpace(m.Customer)
	epicKey := strings.ToUpper(strings.TrimSpace(m.EpicKey))
	if customer == "" {
		return nil, fmt.Errorf("%w: customer is required", ErrInvalidMapping)
	}
	if !epicKeyPattern.MatchString(epicKey) {
		return nil, fmt.Errorf("%w: %q is not an issue key", ErrInvalidMapping, m.EpicKey)
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &domain.EpicMapping{Customer: customer, EpicKey: epicKey, CreatedAt: createdAt}, nil
}

func uniqueEpics(mappings []*domain.EpicMapping) []string {
	seen := make(map[string]bool, len(mappings))
	var keys []string
	for _, m := range mappings {
		if seen[m.EpicKey] {
			continue
		}
		seen[m.EpicKey] = true
		keys = append(keys, m.EpicKey)
	}
	sort.Strings(keys)
	return keys
}
