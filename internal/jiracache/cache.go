// Package jiracache memoizes per-epic Jira detail with single-flight loading.
package jiracache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/alexanderramin/workledger/internal/domain"
)

// Fetcher loads one epic at the requested granularity.
type Fetcher interface {
	Fetch(ctx context.Context, epicKey string, level domain.Granularity) (domain.DetailEntry, error)
}

// Event is delivered to subscribers each time a fetch result is applied to
// the cache.
type Event struct {
	EpicKey string
	Level   domain.Granularity
	Entry   domain.DetailEntry
}

// Cache is a per-epic memoized store of Jira detail. Concurrent requests for
// the same epic and granularity share one underlying fetch.
//
// A light entry never satisfies a full request, and a light result never
// replaces a complete full entry. Results that settle after Invalidate or
// Clear are returned to their callers but not stored.
type Cache struct {
	fetcher Fetcher
	group   singleflight.Group

	mu       sync.Mutex
	entries  map[string]domain.DetailEntry
	epoch    uint64
	keyEpoch map[string]uint64
	waiting  map[string]int
	subs     map[int]func(Event)
	nextSub  int
}

// New creates an empty cache backed by fetcher.
func New(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher:  fetcher,
		entries:  make(map[string]domain.DetailEntry),
		keyEpoch: make(map[string]uint64),
		waiting:  make(map[string]int),
		subs:     make(map[int]func(Event)),
	}
}

func flightKey(epicKey string, level domain.Granularity) string {
	return epicKey + "|" + string(level)
}

// Get returns the cached entry for epicKey when it satisfies level, otherwise
// fetches it. ctx bounds only this caller's wait; the shared fetch keeps
// running for other callers.
func (c *Cache) Get(ctx context.Context, epicKey string, level domain.Granularity) (domain.DetailEntry, error) {
	c.mu.Lock()
	if e, ok := c.entries[epicKey]; ok && satisfies(e, level) {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()
	return c.load(ctx, epicKey, level)
}

// GetFull is Get at full granularity.
func (c *Cache) GetFull(ctx context.Context, epicKey string) (domain.DetailEntry, error) {
	return c.Get(ctx, epicKey, domain.GranularityFull)
}

// Refresh bypasses the cached entry and performs a fresh full fetch. The
// previous entry stays visible until the new result is applied.
func (c *Cache) Refresh(ctx context.Context, epicKey string) (domain.DetailEntry, error) {
	c.group.Forget(flightKey(epicKey, domain.GranularityFull))
	return c.load(ctx, epicKey, domain.GranularityFull)
}

func (c *Cache) load(ctx context.Context, epicKey string, level domain.Granularity) (domain.DetailEntry, error) {
	fk := flightKey(epicKey, level)

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fk, func() (any, error) {
		epoch := c.epochFor(epicKey)
		entry, err := c.fetcher.Fetch(fetchCtx, epicKey, level)
		if err != nil {
			return domain.DetailEntry{}, err
		}
		return c.apply(epicKey, level, entry, epoch), nil
	})

	// DoChan has registered this caller; count it until it stops waiting.
	c.mu.Lock()
	c.waiting[fk]++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.waiting[fk]--; c.waiting[fk] <= 0 {
			delete(c.waiting, fk)
		}
		c.mu.Unlock()
	}()

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.DetailEntry{}, fmt.Errorf("fetch %s (%s): %w", epicKey, level, res.Err)
		}
		return res.Val.(domain.DetailEntry), nil
	case <-ctx.Done():
		return domain.DetailEntry{}, ctx.Err()
	}
}

type epochPair struct{ global, key uint64 }

func (c *Cache) epochFor(epicKey string) epochPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return epochPair{global: c.epoch, key: c.keyEpoch[epicKey]}
}

// apply stores entry unless the cache was invalidated since the fetch began,
// and returns the entry callers should observe.
func (c *Cache) apply(epicKey string, level domain.Granularity, entry domain.DetailEntry, started epochPair) domain.DetailEntry {
	c.mu.Lock()
	if c.epoch != started.global || c.keyEpoch[epicKey] != started.key {
		c.mu.Unlock()
		return entry
	}
	if cur, ok := c.entries[epicKey]; ok && level == domain.GranularityLight && cur.Complete() {
		c.mu.Unlock()
		return cur
	}
	c.entries[epicKey] = entry
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	ev := Event{EpicKey: epicKey, Level: level, Entry: entry}
	for _, fn := range subs {
		fn(ev)
	}
	return entry
}

func satisfies(e domain.DetailEntry, level domain.Granularity) bool {
	return level != domain.GranularityFull || e.Complete()
}

// Peek returns the cached entry without fetching.
func (c *Cache) Peek(epicKey string) (domain.DetailEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[epicKey]
	return e, ok
}

// HasComplete reports whether the cached entry can satisfy a full request.
func (c *Cache) HasComplete(epicKey string) bool {
	e, ok := c.Peek(epicKey)
	return ok && e.Complete()
}

// Invalidate drops epicKey. In-flight fetches for it will not repopulate
// the cache.
func (c *Cache) Invalidate(epicKey string) {
	c.mu.Lock()
	delete(c.entries, epicKey)
	c.keyEpoch[epicKey]++
	c.mu.Unlock()
	c.group.Forget(flightKey(epicKey, domain.GranularityLight))
	c.group.Forget(flightKey(epicKey, domain.GranularityFull))
}

// Clear drops every entry, as on logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	flights := make([]string, 0, len(c.entries)*2+len(c.waiting))
	for k := range c.entries {
		flights = append(flights, flightKey(k, domain.GranularityLight), flightKey(k, domain.GranularityFull))
	}
	for fk := range c.waiting {
		flights = append(flights, fk)
	}
	c.entries = make(map[string]domain.DetailEntry)
	c.epoch++
	c.mu.Unlock()
	for _, fk := range flights {
		c.group.Forget(fk)
	}
}

// Subscribe registers fn for applied results. The returned func removes it.
func (c *Cache) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}
