package testutil

import (
	"context"
	"sync"

	"github.com/alexanderramin/workledger/internal/domain"
)

// FakeJira serves canned epics. Light fetches strip worklogs the way the
// real light query does.
type FakeJira struct {
	mu      sync.Mutex
	Epics   map[string]domain.DetailEntry
	Err     error
	ErrFor  map[string]error
	Fetches map[string]int
}

func NewFakeJira() *FakeJira {
	return &FakeJira{
		Epics:   make(map[string]domain.DetailEntry),
		ErrFor:  make(map[string]error),
		Fetches: make(map[string]int),
	}
}

func (f *FakeJira) SetEpic(epicKey string, items ...domain.WorkItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Epics[epicKey] = domain.DetailEntry{Items: items}
}

func (f *FakeJira) Fetch(ctx context.Context, epicKey string, level domain.Granularity) (domain.DetailEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetches[epicKey+"|"+string(level)]++
	if err := f.ErrFor[epicKey]; err != nil {
		return domain.DetailEntry{}, err
	}
	if f.Err != nil {
		return domain.DetailEntry{}, f.Err
	}
	e := f.Epics[epicKey]
	if level == domain.GranularityFull {
		return e, nil
	}
	return domain.DetailEntry{Items: stripWorklogs(e.Items), Partial: e.Partial}, nil
}

// FetchCount returns how many fetches ran for epicKey at level.
func (f *FakeJira) FetchCount(epicKey string, level domain.Granularity) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Fetches[epicKey+"|"+string(level)]
}

func stripWorklogs(items []domain.WorkItem) []domain.WorkItem {
	out := make([]domain.WorkItem, len(items))
	for i, it := range items {
		it.Worklogs = nil
		it.WorklogsLoaded = false
		it.Subtasks = stripWorklogs(it.Subtasks)
		out[i] = it
	}
	return out
}
