// Package prefetch loads full Jira detail for many epics in the background
// with a bounded worker pool and a cooldown for timed-out keys.
package prefetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/remote"
)

const (
	DefaultConcurrency = 1
	DefaultCooldown    = 5 * time.Minute
	DefaultKeyTimeout  = 60 * time.Second
)

// Loader is the full-granularity cache surface the scheduler drives.
type Loader interface {
	GetFull(ctx context.Context, epicKey string) (domain.DetailEntry, error)
	HasComplete(epicKey string) bool
}

// Options configures a Scheduler. Zero values use the defaults.
type Options struct {
	Concurrency int
	Cooldown    time.Duration
	KeyTimeout  time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
}

// Progress aggregates per-key state for loading indicators.
type Progress struct {
	Total    int
	Done     int
	Failed   int
	TimedOut int
	Loading  int
	Pending  int
	// RetryAvailable is set when some keys timed out; they become schedulable
	// again once their cooldown passes.
	RetryAvailable bool
}

// Scheduler owns the per-key prefetch lifecycle: pending, loading, then done
// or error. Individual failures are recorded, never propagated.
type Scheduler struct {
	loader Loader
	opts   Options

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	gen       uint64
	entries   map[string]domain.PrefetchEntry
	queue     []string
	queued    map[string]bool
	active    int
	idle      chan struct{}
	listeners map[int]func(Progress)
	nextID    int
}

// New creates a Scheduler that loads through loader.
func New(loader Loader, opts Options) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.KeyTimeout <= 0 {
		opts.KeyTimeout = DefaultKeyTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Scheduler{
		loader:    loader,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[string]domain.PrefetchEntry),
		queued:    make(map[string]bool),
		idle:      idle,
		listeners: make(map[int]func(Progress)),
	}
}

// Schedule enqueues every eligible key and starts workers as needed. It
// returns the number of keys enqueued.
//
// A key is skipped when it is already queued or loading, when the cache holds
// complete detail for it, or while a timeout cooldown is running. Failed keys
// whose cooldown has passed, and keys that failed for other reasons, re-enter
// pending.
func (s *Scheduler) Schedule(keys []string) int {
	s.mu.Lock()
	now := s.opts.Now()
	s.expireLocked(now)

	enqueued := 0
	for _, key := range keys {
		if key == "" || s.queued[key] {
			continue
		}
		e, seen := s.entries[key]
		if seen && e.Status == domain.PrefetchLoading {
			continue
		}
		if e.InCooldown(now) {
			continue
		}
		if s.loader.HasComplete(key) {
			continue
		}
		s.entries[key] = domain.PrefetchEntry{Status: domain.PrefetchPending}
		s.queue = append(s.queue, key)
		s.queued[key] = true
		enqueued++
	}

	if s.active == 0 && len(s.queue) > 0 {
		s.idle = make(chan struct{})
	}
	for s.active < s.opts.Concurrency && s.active < len(s.queue) {
		s.active++
		go s.worker()
	}
	s.mu.Unlock()

	if enqueued > 0 {
		s.opts.Logger.Debug("prefetch scheduled", "keys", enqueued)
		s.emit()
	}
	return enqueued
}

func (s *Scheduler) worker() {
	for {
		key, ctx, gen, ok := s.next()
		if !ok {
			return
		}
		start := s.opts.Now()
		entry, err := remote.WithTimeout(ctx, s.opts.KeyTimeout, func(ctx context.Context) (domain.DetailEntry, error) {
			return s.loader.GetFull(ctx, key)
		})
		s.finish(key, gen, start, entry, err)
	}
}

// next pops a key and marks it loading, or retires the worker when the queue
// is drained. The returned context and generation belong to the current
// lifecycle so a Reset cancels the load.
func (s *Scheduler) next() (string, context.Context, uint64, bool) {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.active--
		if s.active == 0 {
			close(s.idle)
		}
		s.mu.Unlock()
		s.emit()
		return "", nil, 0, false
	}
	key := s.queue[0]
	s.queue = s.queue[1:]
	delete(s.queued, key)

	now := s.opts.Now()
	s.entries[key] = domain.PrefetchEntry{Status: domain.PrefetchLoading, StartedAt: &now}
	ctx, gen := s.ctx, s.gen
	s.mu.Unlock()

	s.opts.Logger.Debug("prefetch loading", "epic", key)
	s.emit()
	return key, ctx, gen, true
}

func (s *Scheduler) finish(key string, gen uint64, start time.Time, entry domain.DetailEntry, err error) {
	s.mu.Lock()
	cur, ok := s.entries[key]
	if gen != s.gen || !ok || cur.Status != domain.PrefetchLoading {
		s.mu.Unlock()
		return
	}
	now := s.opts.Now()
	cur.FinishedAt = &now
	cur.Elapsed = now.Sub(start)

	if err != nil {
		cur.Status = domain.PrefetchError
		cur.Error = err.Error()
		if remote.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			cur.TimedOut = true
			until := now.Add(s.opts.Cooldown)
			cur.CooldownUntil = &until
		}
	} else {
		cur.Status = domain.PrefetchDone
		cur.Tasks, cur.Subtasks = domain.CountItems(entry.Items)
	}
	s.entries[key] = cur
	s.mu.Unlock()

	if err != nil {
		s.opts.Logger.Warn("prefetch failed", "epic", key, "timed_out", cur.TimedOut, "error", err)
	} else {
		s.opts.Logger.Debug("prefetch done", "epic", key, "tasks", cur.Tasks, "subtasks", cur.Subtasks, "elapsed", cur.Elapsed)
	}
	s.emit()
}

// Wait blocks until all workers have drained the queue or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// expireLocked moves timed-out keys whose cooldown has passed back to
// pending.
func (s *Scheduler) expireLocked(now time.Time) {
	for key, e := range s.entries {
		if e.Status == domain.PrefetchError && e.TimedOut && !e.InCooldown(now) {
			s.entries[key] = domain.PrefetchEntry{Status: domain.PrefetchPending}
		}
	}
}

// Entries returns a copy of every key's state.
func (s *Scheduler) Entries() map[string]domain.PrefetchEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.PrefetchEntry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Progress summarises the current state.
func (s *Scheduler) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Scheduler) progressLocked() Progress {
	p := Progress{Total: len(s.entries)}
	for _, e := range s.entries {
		switch e.Status {
		case domain.PrefetchDone:
			p.Done++
		case domain.PrefetchError:
			p.Failed++
			if e.TimedOut {
				p.TimedOut++
			}
		case domain.PrefetchLoading:
			p.Loading++
		case domain.PrefetchPending:
			p.Pending++
		}
	}
	p.RetryAvailable = p.TimedOut > 0
	return p
}

// OnProgress registers fn to be called after every state change. The
// returned func removes it.
func (s *Scheduler) OnProgress(fn func(Progress)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Scheduler) emit() {
	s.mu.Lock()
	p := s.progressLocked()
	fns := make([]func(Progress), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

// Forget drops key from the queue and the state map, as when its epic is
// unmapped. A load already running for it is discarded when it settles.
func (s *Scheduler) Forget(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	if s.queued[key] {
		delete(s.queued, key)
		for i, k := range s.queue {
			if k == key {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	s.emit()
}

// Reset cancels running loads and clears all state, as on logout.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.gen++
	s.entries = make(map[string]domain.PrefetchEntry)
	s.queue = nil
	s.queued = make(map[string]bool)
	s.mu.Unlock()
	s.emit()
}
