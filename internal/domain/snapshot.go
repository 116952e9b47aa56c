package domain

import "time"

// PrefetchEntry tracks one cache key's prefetch lifecycle.
type PrefetchEntry struct {
	Status        PrefetchStatus
	Tasks         int
	Subtasks      int
	StartedAt     *time.Time
	FinishedAt    *time.Time
	Elapsed       time.Duration
	Error         string
	TimedOut      bool
	CooldownUntil *time.Time
}

// InCooldown reports whether the entry is a timed-out failure whose cooldown
// window has not yet elapsed at now.
func (e PrefetchEntry) InCooldown(now time.Time) bool {
	return e.Status == PrefetchError && e.TimedOut && e.CooldownUntil != nil && now.Before(*e.CooldownUntil)
}

// Contributor is one person's total time on an epic.
type Contributor struct {
	Name    string
	Seconds int
}

// PositionSnapshot is the monthly position computation for one epic. Once
// Frozen is true the snapshot is never overwritten.
type PositionSnapshot struct {
	EpicKey         string
	MonthKey        string
	Frozen          bool
	ComputedAt      time.Time
	TotalSeconds    int
	SecondsByPerson map[string]int
	Percents        map[string]int
}

// MonthKeyLayout formats month keys as "YYYY-MM".
const MonthKeyLayout = "2006-01"

// MonthKey returns the "YYYY-MM" key for t.
func MonthKey(t time.Time) string {
	return t.Format(MonthKeyLayout)
}

// EpicMapping binds a ledger customer to a Jira epic.
type EpicMapping struct {
	Customer  string
	EpicKey   string
	CreatedAt time.Time
}
