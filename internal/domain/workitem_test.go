package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		status   string
		terminal bool
	}{
		{"To Do", false},
		{"In Progress", false},
		{"Done", true},
		{"done", true},
		{" Closed ", true},
		{"Won't Do", true},
		{"", false},
	}
	for _, tc := range cases {
		w := WorkItem{StatusName: tc.status}
		assert.Equal(t, tc.terminal, w.IsTerminal(DefaultDoneStatuses), "status=%q", tc.status)
	}
}

func TestWorklogsComplete_LightEntryIsNotComplete(t *testing.T) {
	items := []WorkItem{{Key: "A-1", WorklogsLoaded: true}, {Key: "A-2"}}
	assert.False(t, WorklogsComplete(items))
}

func TestWorklogsComplete_ChecksSubtasksRecursively(t *testing.T) {
	items := []WorkItem{{
		Key:            "A-1",
		WorklogsLoaded: true,
		Subtasks: []WorkItem{
			{Key: "A-2", WorklogsLoaded: true},
			{Key: "A-3"},
		},
	}}
	assert.False(t, WorklogsComplete(items))

	items[0].Subtasks[1].WorklogsLoaded = true
	assert.True(t, WorklogsComplete(items))
}

func TestWorklogsComplete_EmptyIsComplete(t *testing.T) {
	assert.True(t, WorklogsComplete(nil))
	assert.True(t, DetailEntry{}.Complete())
}

func TestCountItems(t *testing.T) {
	items := []WorkItem{
		{Key: "A-1", Subtasks: []WorkItem{{Key: "A-2"}, {Key: "A-3"}}},
		{Key: "A-4"},
	}
	tasks, subtasks := CountItems(items)
	assert.Equal(t, 2, tasks)
	assert.Equal(t, 2, subtasks)
}

func TestTotalSpent_RollsUpSubtasks(t *testing.T) {
	w := WorkItem{TimeSpent: 600, EstimateSeconds: 3600, Subtasks: []WorkItem{
		{TimeSpent: 300, EstimateSeconds: 1800},
		{TimeSpent: 100},
	}}
	assert.Equal(t, 1000, w.TotalSpent())
	assert.Equal(t, 5400, w.TotalEstimate())
}

func TestAllTerminal(t *testing.T) {
	done := []string{"Done"}
	assert.False(t, AllTerminal(nil, done), "empty epic is never complete")

	items := []WorkItem{
		{StatusName: "Done", Subtasks: []WorkItem{{StatusName: "Done"}, {StatusName: "In Progress"}}},
	}
	assert.False(t, AllTerminal(items, done))

	items[0].Subtasks[1].StatusName = "Done"
	assert.True(t, AllTerminal(items, done))
}

func TestPrefetchEntry_InCooldown(t *testing.T) {
	until := testNow.Add(5 * time.Minute)
	e := PrefetchEntry{Status: PrefetchError, TimedOut: true, CooldownUntil: &until}

	assert.True(t, e.InCooldown(testNow))
	assert.True(t, e.InCooldown(until.Add(-time.Nanosecond)))
	assert.False(t, e.InCooldown(until), "boundary is inclusive for re-entry")

	e.TimedOut = false
	assert.False(t, e.InCooldown(testNow))
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2025-06", MonthKey(testNow))
}

func TestReportingFrom_Valid(t *testing.T) {
	for _, r := range []ReportingFrom{ReportingOffice, ReportingHome, ReportingClient} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, ReportingFrom("beach").Valid())
	assert.False(t, ReportingFrom("").Valid())
}
