package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/workledger/internal/contributor"
	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/jiracache"
	"github.com/alexanderramin/workledger/internal/prefetch"
	"github.com/alexanderramin/workledger/internal/remote"
	"github.com/alexanderramin/workledger/internal/repository"
	"github.com/alexanderramin/workledger/internal/testutil"
)

// Wednesday; March 2026 has four workdays up to and including it.
var jiraNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

type jiraFixture struct {
	svc       JiraService
	jira      *testutil.FakeJira
	cache     *jiracache.Cache
	sched     *prefetch.Scheduler
	snapshots *repository.SQLiteSnapshotRepo
	mappings  *repository.SQLiteEpicMappingRepo
	state     *fakeJiraState
	notices   *NoticeBoard
	obs       *recordingObserver
}

func setupJira(t *testing.T) *jiraFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	f := &jiraFixture{
		jira:      testutil.NewFakeJira(),
		snapshots: repository.NewSQLiteSnapshotRepo(database),
		mappings:  repository.NewSQLiteEpicMappingRepo(database),
		state:     &fakeJiraState{configured: true},
		notices:   NewNoticeBoard(),
		obs:       &recordingObserver{},
	}
	f.cache = jiracache.New(f.jira)
	f.sched = prefetch.New(f.cache, prefetch.Options{})
	t.Cleanup(f.sched.Reset)

	positions := contributor.NewPositions(f.snapshots, contributor.DefaultPolicy(), func() time.Time { return jiraNow })
	f.svc = NewJiraService(f.mappings, testutil.NewTestUoW(database), f.cache, f.sched, positions, f.state, f.notices, f.obs)
	return f
}

func TestMapEpic_NormalizesKey(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()

	require.NoError(t, f.svc.MapEpic(ctx, "  Acme ", "acme-12"))

	epics, err := f.svc.Epics(ctx)
	require.NoError(t, err)
	require.Len(t, epics, 1)
	assert.Equal(t, "Acme", epics[0].Customer)
	assert.Equal(t, "ACME-12", epics[0].EpicKey)
}

func TestMapEpic_RejectsMalformedKey(t *testing.T) {
	f := setupJira(t)

	err := f.svc.MapEpic(context.Background(), "Acme", "not a key")
	assert.ErrorIs(t, err, ErrInvalidMapping)

	err = f.svc.MapEpic(context.Background(), "", "ACME-1")
	assert.ErrorIs(t, err, ErrInvalidMapping)

	events := f.obs.byName("map-epic")
	require.Len(t, events, 2)
	assert.False(t, events[0].Success)
}

func TestUnmapEpic_DropsStateOnlyWhenLastMappingGoes(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()
	f.jira.SetEpic("ACME-1", testutil.NewTestItem("ACME-2", testutil.WithAssignee("ana"), testutil.WithTimeSpent(3600)))

	require.NoError(t, f.svc.MapEpic(ctx, "Acme", "ACME-1"))
	require.NoError(t, f.svc.MapEpic(ctx, "Acme EU", "ACME-1"))
	require.NoError(t, f.snapshots.Save(ctx, testutil.NewTestSnapshot("ACME-1", jiraNow, false, map[string]int{"ana": 3600})))
	_, err := f.svc.LoadWorkItems(ctx, "ACME-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.UnmapEpic(ctx, "Acme"))
	_, cached := f.cache.Peek("ACME-1")
	assert.True(t, cached, "epic still mapped by another customer")
	snaps, err := f.snapshots.ListByEpic(ctx, "ACME-1")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)

	require.NoError(t, f.svc.UnmapEpic(ctx, "Acme EU"))
	_, cached = f.cache.Peek("ACME-1")
	assert.False(t, cached)
	snaps, err = f.snapshots.ListByEpic(ctx, "ACME-1")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestUnmapEpic_UnknownCustomer(t *testing.T) {
	f := setupJira(t)
	err := f.svc.UnmapEpic(context.Background(), "Nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestImportMappings_AllOrNothing(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()

	_, err := f.svc.ImportMappings(ctx, []domain.EpicMapping{
		{Customer: "Acme", EpicKey: "ACME-1"},
		{Customer: "Globex", EpicKey: "???"},
	})
	assert.ErrorIs(t, err, ErrInvalidMapping)
	epics, err := f.svc.Epics(ctx)
	require.NoError(t, err)
	assert.Empty(t, epics)

	n, err := f.svc.ImportMappings(ctx, []domain.EpicMapping{
		{Customer: "Acme", EpicKey: "ACME-1"},
		{Customer: "Globex", EpicKey: "GLX-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	epics, err = f.svc.Epics(ctx)
	require.NoError(t, err)
	assert.Len(t, epics, 2)
}

func TestContributors_LightFallsBackToAssignees(t *testing.T) {
	f := setupJira(t)
	f.jira.SetEpic("ACME-1",
		testutil.NewTestItem("ACME-2",
			testutil.WithAssignee("ana"),
			testutil.WithTimeSpent(7200),
			testutil.WithWorklog("bo", jiraNow.Add(-time.Hour), 7200),
		),
	)

	report, err := f.svc.Contributors(context.Background(), "ACME-1", false)
	require.NoError(t, err)
	assert.False(t, report.FromWorklogs)
	assert.Equal(t, []domain.Contributor{{Name: "ana", Seconds: 7200}}, report.Contributors)
	assert.Zero(t, f.jira.FetchCount("ACME-1", domain.GranularityFull))
}

func TestContributors_FullUsesWorklogAuthors(t *testing.T) {
	f := setupJira(t)
	f.jira.SetEpic("ACME-1",
		testutil.NewTestItem("ACME-2",
			testutil.WithAssignee("ana"),
			testutil.WithTimeSpent(7200),
			testutil.WithWorklog("bo", jiraNow.Add(-time.Hour), 5400),
			testutil.WithWorklog("ana", jiraNow.Add(-2*time.Hour), 1800),
		),
	)
	ctx := context.Background()

	report, err := f.svc.Contributors(ctx, "ACME-1", true)
	require.NoError(t, err)
	assert.True(t, report.FromWorklogs)
	assert.Equal(t, []domain.Contributor{{Name: "bo", Seconds: 5400}, {Name: "ana", Seconds: 1800}}, report.Contributors)

	// Complete detail is reused even when full is not requested.
	_, err = f.svc.Contributors(ctx, "ACME-1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.jira.FetchCount("ACME-1", domain.GranularityFull))
	assert.Zero(t, f.jira.FetchCount("ACME-1", domain.GranularityLight))
}

func TestPosition_ComputesAndKeepsFrozenSnapshot(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()
	f.jira.SetEpic("ACME-1",
		testutil.NewTestItem("ACME-2",
			testutil.WithStatus("Done"),
			testutil.WithWorklog("ana", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 20*3600),
		),
	)

	snap, err := f.svc.Position(ctx, "ACME-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "2026-03", snap.MonthKey)
	assert.Equal(t, 50, snap.Percents["ana"], "20h of 4 workdays x 10h")
	assert.True(t, snap.Frozen)

	f.jira.SetEpic("ACME-1",
		testutil.NewTestItem("ACME-2",
			testutil.WithWorklog("ana", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 40*3600),
		),
	)
	f.cache.Clear()

	again, err := f.svc.Position(ctx, "ACME-1")
	require.NoError(t, err)
	assert.Equal(t, 50, again.Percents["ana"], "frozen snapshot is not recomputed")
	assert.Equal(t, 1, f.jira.FetchCount("ACME-1", domain.GranularityFull))
}

func TestPrefetchAll_SchedulesMappedEpics(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()
	f.jira.SetEpic("ACME-1", testutil.NewTestItem("ACME-2", testutil.WithWorklogsLoaded()))
	f.jira.SetEpic("GLX-7", testutil.NewTestItem("GLX-8", testutil.WithWorklogsLoaded()))
	require.NoError(t, f.svc.MapEpic(ctx, "Acme", "ACME-1"))
	require.NoError(t, f.svc.MapEpic(ctx, "Acme EU", "ACME-1"))
	require.NoError(t, f.svc.MapEpic(ctx, "Globex", "GLX-7"))

	n, err := f.svc.PrefetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.sched.Wait(waitCtx))

	progress := f.svc.PrefetchProgress()
	assert.Equal(t, 2, progress.Total)
	assert.Equal(t, 2, progress.Done)
	assert.True(t, f.cache.HasComplete("ACME-1"))
	assert.True(t, f.cache.HasComplete("GLX-7"))
	assert.Equal(t, 1, f.jira.FetchCount("ACME-1", domain.GranularityLight))
	assert.Len(t, f.svc.PrefetchEntries(), 2)
}

func TestPrefetchAll_RefreshesPositions(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()
	f.jira.SetEpic("ACME-1",
		testutil.NewTestItem("ACME-2",
			testutil.WithWorklog("ana", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 10*3600),
		),
	)
	require.NoError(t, f.svc.MapEpic(ctx, "Acme", "ACME-1"))

	var mu sync.Mutex
	var seen []prefetch.Progress
	cancelProgress := f.svc.OnPrefetchProgress(func(p prefetch.Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})
	defer cancelProgress()

	_, err := f.svc.PrefetchAll(ctx)
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.WaitPrefetch(waitCtx))

	snap, err := f.snapshots.Get(ctx, "ACME-1", "2026-03")
	require.NoError(t, err, "prefetched detail stores a snapshot without a Position call")
	assert.Equal(t, 25, snap.Percents["ana"])
	require.Len(t, f.obs.byName("refresh-position"), 1)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	settled := false
	for _, p := range seen {
		if p.Done == 1 && p.Loading+p.Pending == 0 {
			settled = true
		}
	}
	assert.True(t, settled, "a settled progress update is delivered")
}

func TestRefreshEpic_RefetchesAndUpdatesPosition(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()
	march2 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f.jira.SetEpic("ACME-1", testutil.NewTestItem("ACME-2", testutil.WithWorklog("ana", march2, 10*3600)))

	_, err := f.svc.Contributors(ctx, "ACME-1", true)
	require.NoError(t, err)

	f.jira.SetEpic("ACME-1", testutil.NewTestItem("ACME-2", testutil.WithWorklog("ana", march2, 20*3600)))
	entry, err := f.svc.RefreshEpic(ctx, "ACME-1")
	require.NoError(t, err)
	assert.True(t, entry.Complete())
	assert.Equal(t, 2, f.jira.FetchCount("ACME-1", domain.GranularityFull))

	snap, err := f.snapshots.Get(ctx, "ACME-1", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, 50, snap.Percents["ana"])
}

func TestRefreshPosition_IgnoresLightDetail(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()
	f.jira.SetEpic("ACME-1",
		testutil.NewTestItem("ACME-2",
			testutil.WithWorklog("ana", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 10*3600),
		),
	)

	_, err := f.svc.LoadWorkItems(ctx, "ACME-1")
	require.NoError(t, err)

	_, err = f.snapshots.Get(ctx, "ACME-1", "2026-03")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, f.obs.byName("refresh-position"))
}

func TestJiraAuthFailure_MarksUnconfigured(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()
	f.jira.Err = remote.ErrJiraAuthRequired

	_, err := f.svc.LoadWorkItems(ctx, "ACME-1")
	assert.ErrorIs(t, err, ErrJiraNotConfigured)
	assert.ErrorIs(t, err, remote.ErrJiraAuthRequired)
	assert.Equal(t, 1, f.state.marked)

	list := listNotices(t, f.notices)
	require.Len(t, list, 1)
	assert.Equal(t, "load-work-items", list[0].Operation)
	assert.Equal(t, HumanMessage(remote.ErrJiraAuthRequired), list[0].Message)

	_, err = f.svc.Contributors(ctx, "ACME-1", false)
	assert.ErrorIs(t, err, ErrJiraNotConfigured)
	assert.Equal(t, 1, f.jira.FetchCount("ACME-1", domain.GranularityLight), "no fetch while unconfigured")
}

func TestPrefetchAll_AuthFailureStops(t *testing.T) {
	f := setupJira(t)
	ctx := context.Background()
	require.NoError(t, f.svc.MapEpic(ctx, "Acme", "ACME-1"))
	f.jira.Err = remote.ErrJiraAuthRequired

	n, err := f.svc.PrefetchAll(ctx)
	assert.ErrorIs(t, err, ErrJiraNotConfigured)
	assert.Zero(t, n)
	assert.Zero(t, f.svc.PrefetchProgress().Total)
}
