package scheduler

import (
	"testing"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeEntryDay() ([]domain.AbstractLogEntry, []domain.DetailedLogEntry) {
	original := []domain.AbstractLogEntry{
		{TaskID: 1, HoursHHMM: "02:00", Comment: "design", ReportingFrom: "office"},
		{TaskID: 2, HoursHHMM: "01:00", Comment: "review", ReportingFrom: "office"},
		{TaskID: 3, HoursHHMM: "00:30", Comment: "sync", ReportingFrom: "home"},
	}
	detailed := []domain.DetailedLogEntry{
		{TaskID: 1, From: "09:00", To: "11:00", HoursHHMM: "02:00", Comment: "design", ReportingFrom: "office"},
		{TaskID: 2, From: "13:00", To: "14:00", HoursHHMM: "01:00", Comment: "review", ReportingFrom: "office"},
	}
	return original, detailed
}

func TestBuildDayPayload_DeleteUnresolvedKeepsExactTimes(t *testing.T) {
	original, detailed := threeEntryDay()

	payload := BuildDayPayload(PayloadRequest{
		DateKey:   "2025-03-10",
		Surviving: SurvivorsExcept(original, 2),
		Original:  original,
		Detailed:  detailed,
	})

	want := []domain.PayloadEntry{
		{TaskID: 1, From: "09:00", To: "11:00", HoursHHMM: "02:00", Hours: 2, Comment: "design", ReportingFrom: "office"},
		{TaskID: 2, From: "13:00", To: "14:00", HoursHHMM: "01:00", Hours: 1, Comment: "review", ReportingFrom: "office"},
	}
	if diff := cmp.Diff(want, payload.Entries); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []bool{false, false}, payload.Synthetic)
	assert.Equal(t, "2025-03-10", payload.DateKey)
}

func TestBuildDayPayload_UntouchedSiblingKeepsRangeWhenLengthsDisagree(t *testing.T) {
	original := []domain.AbstractLogEntry{
		{TaskID: 1, HoursHHMM: "01:30", Comment: "design"},
		{TaskID: 2, HoursHHMM: "01:00", Comment: "review"},
		{TaskID: 3, HoursHHMM: "00:30", Comment: "sync"},
	}
	// The report rounds task 1 to 01:30; the detailed log has 89 minutes.
	detailed := []domain.DetailedLogEntry{
		{TaskID: 1, From: "09:00", To: "10:29", Comment: "design"},
		{TaskID: 2, From: "13:00", To: "14:00", Comment: "review"},
	}

	payload := BuildDayPayload(PayloadRequest{
		Surviving: SurvivorsExcept(original, 2),
		Original:  original,
		Detailed:  detailed,
	})

	require.Len(t, payload.Entries, 2)
	assert.Equal(t, "09:00", payload.Entries[0].From)
	assert.Equal(t, "10:29", payload.Entries[0].To)
	assert.Equal(t, "13:00", payload.Entries[1].From)
	assert.Equal(t, "14:00", payload.Entries[1].To)
	assert.Equal(t, []bool{false, false}, payload.Synthetic)
}

func TestBuildDayPayload_CommentOnlyEditKeepsRange(t *testing.T) {
	original := []domain.AbstractLogEntry{{TaskID: 1, HoursHHMM: "01:30", Comment: "design"}}
	detailed := []domain.DetailedLogEntry{{TaskID: 1, From: "09:00", To: "10:29", Comment: "design"}}
	survivors := SurvivorsExcept(original, -1)
	survivors[0].Entry.Comment = "design review"

	payload := BuildDayPayload(PayloadRequest{
		Surviving: survivors,
		Original:  original,
		Detailed:  detailed,
	})

	require.Len(t, payload.Entries, 1)
	assert.Equal(t, "10:29", payload.Entries[0].To)
	assert.Equal(t, "design review", payload.Entries[0].Comment)
}

func TestBuildDayPayload_UnresolvedSiblingIsGapAllocated(t *testing.T) {
	original, detailed := threeEntryDay()

	payload := BuildDayPayload(PayloadRequest{
		Surviving: SurvivorsExcept(original, -1),
		Original:  original,
		Detailed:  detailed,
	})

	require.Len(t, payload.Entries, 3)
	assert.Equal(t, "00:00", payload.Entries[2].From)
	assert.Equal(t, "00:30", payload.Entries[2].To)
	assert.Equal(t, []bool{false, false, true}, payload.Synthetic)
	assertNoOverlap(t, payload.Entries)
}

func TestBuildDayPayload_NewEntryReservedBeforeAllocationAndAppendedLast(t *testing.T) {
	original := []domain.AbstractLogEntry{{TaskID: 5, HoursHHMM: "01:00"}}

	payload := BuildDayPayload(PayloadRequest{
		Surviving: SurvivorsExcept(original, -1),
		Original:  original,
		NewEntry: &NewEntry{
			Entry: domain.AbstractLogEntry{TaskID: 9, HoursHHMM: "01:00", Comment: "new"},
			Range: domain.TimeRange{From: "00:00", To: "01:00"},
		},
	})

	require.Len(t, payload.Entries, 2)
	assert.Equal(t, 5, payload.Entries[0].TaskID)
	assert.Equal(t, "01:00", payload.Entries[0].From, "sibling allocated after the new entry's slot")
	assert.Equal(t, 9, payload.Entries[1].TaskID)
	assert.Equal(t, "00:00", payload.Entries[1].From)
	assert.Equal(t, []bool{true, false}, payload.Synthetic)
}

func TestBuildDayPayload_NewEntryOverlappingSiblingMovesSibling(t *testing.T) {
	original, detailed := threeEntryDay()

	payload := BuildDayPayload(PayloadRequest{
		Surviving: SurvivorsExcept(original, 2),
		Original:  original,
		Detailed:  detailed,
		NewEntry: &NewEntry{
			Entry: domain.AbstractLogEntry{TaskID: 4, HoursHHMM: "01:00"},
			Range: domain.TimeRange{From: "10:00", To: "11:00"},
		},
	})

	require.Len(t, payload.Entries, 3)
	assert.Equal(t, "10:00", payload.Entries[2].From)
	assert.True(t, payload.Synthetic[0], "design overlapped the new entry and was re-allocated")
	assert.Equal(t, "13:00", payload.Entries[1].From)
	assertNoOverlap(t, payload.Entries)
}

func TestBuildDayPayload_EditKeepsStartAndRecutsDuration(t *testing.T) {
	original, detailed := threeEntryDay()
	survivors := SurvivorsExcept(original, -1)
	survivors[0].Entry.HoursHHMM = "01:30"
	survivors[0].Entry.Comment = "design v2"

	payload := BuildDayPayload(PayloadRequest{
		Surviving: survivors,
		Original:  original,
		Detailed:  detailed,
	})

	assert.Equal(t, "09:00", payload.Entries[0].From)
	assert.Equal(t, "10:30", payload.Entries[0].To)
	assert.Equal(t, "design v2", payload.Entries[0].Comment)
	assert.False(t, payload.Synthetic[0])
	assertNoOverlap(t, payload.Entries)
}

func TestBuildDayPayload_EditExtendingIntoSiblingFallsBackToAllocation(t *testing.T) {
	original, detailed := threeEntryDay()
	survivors := SurvivorsExcept(original, 2)
	survivors[0].Entry.HoursHHMM = "05:00" // 09:00-14:00 would cover review

	payload := BuildDayPayload(PayloadRequest{
		Surviving: survivors,
		Original:  original,
		Detailed:  detailed,
	})

	assert.Equal(t, "13:00", payload.Entries[1].From, "untouched sibling keeps its time")
	assert.True(t, payload.Synthetic[0])
	assertNoOverlap(t, payload.Entries)
}

func TestBuildDayPayload_ExplicitRangeWins(t *testing.T) {
	original, detailed := threeEntryDay()
	survivors := SurvivorsExcept(original, 2)
	survivors[1].Range = &domain.TimeRange{From: "15:00", To: "16:00"}

	payload := BuildDayPayload(PayloadRequest{
		Surviving: survivors,
		Original:  original,
		Detailed:  detailed,
	})

	assert.Equal(t, "15:00", payload.Entries[1].From)
	assert.Equal(t, "16:00", payload.Entries[1].To)
}

func TestBuildDayPayload_NoDetailedLogAllocatesSequentially(t *testing.T) {
	original := []domain.AbstractLogEntry{
		{TaskID: 1, HoursHHMM: "01:00"},
		{TaskID: 2, HoursHHMM: "02:00"},
		{TaskID: 3, HoursHHMM: "00:15"},
	}
	payload := BuildDayPayload(PayloadRequest{
		Surviving: SurvivorsExcept(original, -1),
		Original:  original,
	})

	var froms []string
	for _, e := range payload.Entries {
		froms = append(froms, e.From)
	}
	assert.Equal(t, []string{"00:00", "01:00", "03:00"}, froms)
}

type fixedMatcher struct{ ranges []*domain.TimeRange }

func (m fixedMatcher) Reconcile([]domain.AbstractLogEntry, []domain.DetailedLogEntry) []*domain.TimeRange {
	return m.ranges
}

func TestBuildDayPayload_UsesInjectedMatcher(t *testing.T) {
	original := []domain.AbstractLogEntry{{TaskID: 1, HoursHHMM: "01:00"}}
	payload := BuildDayPayload(PayloadRequest{
		Surviving: SurvivorsExcept(original, -1),
		Original:  original,
		Matcher:   fixedMatcher{ranges: []*domain.TimeRange{{From: "20:00", To: "21:00"}}},
	})
	assert.Equal(t, "20:00", payload.Entries[0].From)
}

func assertNoOverlap(t *testing.T, entries []domain.PayloadEntry) {
	t.Helper()
	for i := range entries {
		a, ok := entries[i].Interval()
		require.True(t, ok)
		for j := i + 1; j < len(entries); j++ {
			b, ok := entries[j].Interval()
			require.True(t, ok)
			assert.False(t, a.Overlaps(b), "entries %d (%s-%s) and %d (%s-%s) overlap",
				i, entries[i].From, entries[i].To, j, entries[j].From, entries[j].To)
		}
	}
}
