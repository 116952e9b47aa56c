package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/prefetch"
)

func TestTable_AlignsColumns(t *testing.T) {
	out := Table{
		Headers:    []string{"NAME", "N"},
		Rows:       [][]string{{"a", "1"}, {"longer", "100"}},
		RightAlign: map[int]bool{1: true},
	}.Render()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "a         1", lines[2])
	assert.Equal(t, "longer  100", lines[3])
}

func TestRenderTable_EmptyHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, [][]string{{"x"}}))
}

func TestRenderProgress_Clamps(t *testing.T) {
	assert.Contains(t, RenderProgress(1.5, 4), "100%")
	assert.Contains(t, RenderProgress(-1, 4), "  0%")
	assert.Contains(t, RenderProgress(0.5, 4), filledBlock+filledBlock+emptyBlock+emptyBlock)
}

func TestPrefetchSummary(t *testing.T) {
	assert.Contains(t, PrefetchSummary(prefetch.Progress{}), "Nothing to prefetch")

	out := PrefetchSummary(prefetch.Progress{Total: 4, Done: 2, Failed: 1, TimedOut: 1, Pending: 1, RetryAvailable: true})
	assert.Contains(t, out, "2/4 loaded")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "retry after cooldown")
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "0m"},
		{59, "0m"},
		{60, "1m"},
		{3600, "1h"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSeconds(tt.secs))
	}
}

func TestHumanTimestampFrom(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", HumanTimestampFrom(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", HumanTimestampFrom(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", HumanTimestampFrom(now.Add(-3*time.Hour), now))
	assert.Equal(t, "Mar 1 08:00", HumanTimestampFrom(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), now))
	assert.Equal(t, "-", HumanTimestampFrom(time.Time{}, now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
}

func TestFormatDay(t *testing.T) {
	out := FormatDay("2026-03-02",
		[]domain.AbstractLogEntry{
			{TaskID: 1, HoursHHMM: "01:00", Comment: "dev"},
			{TaskID: 2, HoursHHMM: "00:30"},
		},
		[]*domain.TimeRange{{From: "09:00", To: "10:00"}, nil},
	)
	assert.Contains(t, out, "09:00-10:00")
	assert.Contains(t, out, "--:--")
	assert.Contains(t, out, "Total 01:30")

	assert.Contains(t, FormatDay("2026-03-02", nil, nil), "No entries")
}

func TestFormatPayload_MarksAllocated(t *testing.T) {
	out := FormatPayload(domain.DayPayload{
		DateKey:   "2026-03-02",
		Entries:   []domain.PayloadEntry{{TaskID: 1, From: "00:00", To: "01:00", HoursHHMM: "01:00"}},
		Synthetic: []bool{true},
	})
	assert.Contains(t, out, "Saved 2026-03-02")
	assert.Contains(t, out, "allocated")

	assert.Equal(t, "Cleared 2026-03-02.\n", FormatPayload(domain.DayPayload{DateKey: "2026-03-02"}))
}

func TestFormatContributors_NotesFallback(t *testing.T) {
	out := FormatContributors("ACME-1", []domain.Contributor{{Name: "ana", Seconds: 7200}}, false, true)
	assert.Contains(t, out, "ana")
	assert.Contains(t, out, "2h")
	assert.Contains(t, out, "Based on assignees")
	assert.Contains(t, out, "partial result")
}

func TestFormatPosition(t *testing.T) {
	assert.Contains(t, FormatPosition(nil), "No position yet")

	out := FormatPosition(&domain.PositionSnapshot{
		EpicKey:         "ACME-1",
		MonthKey:        "2026-03",
		Frozen:          true,
		SecondsByPerson: map[string]int{"ana": 72000, "bo": 3600},
		Percents:        map[string]int{"ana": 50, "bo": 3},
	})
	assert.Contains(t, out, "(FROZEN)")
	assert.Less(t, strings.Index(out, "ana"), strings.Index(out, "bo"))
	assert.Contains(t, out, "50%")
}

func TestFormatPrefetchEntries_ShowsCooldown(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	until := now.Add(90 * time.Second)
	out := FormatPrefetchEntries(map[string]domain.PrefetchEntry{
		"B-1": {Status: domain.PrefetchError, TimedOut: true, CooldownUntil: &until},
		"A-1": {Status: domain.PrefetchDone, Tasks: 3, Subtasks: 1},
	}, now)
	assert.Less(t, strings.Index(out, "A-1"), strings.Index(out, "B-1"))
	assert.Contains(t, out, "retry in 1m30s")
	assert.Contains(t, out, "3 tasks, 1 subtasks")
}

func TestFormatNotices(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	assert.Contains(t, FormatNotices(nil, now), "No notices")

	out := FormatNotices([]domain.Notice{{
		ID:        "abc",
		Operation: "add-entry",
		Scope:     "2026-03-02",
		Message:   "The server could not be reached.",
		CreatedAt: now.Add(-2 * time.Minute),
	}}, now)
	assert.Contains(t, out, "The server could not be reached.")
	assert.Contains(t, out, "add-entry 2026-03-02")
	assert.Contains(t, out, "2m ago")
}
