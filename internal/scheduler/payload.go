package scheduler

import "github.com/alexanderramin/workledger/internal/domain"

// SurvivingEntry is an existing day entry kept by a mutation, possibly edited.
type SurvivingEntry struct {
	Entry domain.AbstractLogEntry
	// OriginalIndex points into PayloadRequest.Original; -1 when the entry
	// has no counterpart there.
	OriginalIndex int
	// Range is an explicit clock range supplied by the caller. It takes
	// precedence over reconciliation.
	Range *domain.TimeRange
}

// NewEntry is an entry being added. A zero Range means it is gap-allocated.
type NewEntry struct {
	Entry domain.AbstractLogEntry
	Range domain.TimeRange
}

// PayloadRequest is the input to BuildDayPayload.
type PayloadRequest struct {
	DateKey   string
	Surviving []SurvivingEntry
	Original  []domain.AbstractLogEntry
	Detailed  []domain.DetailedLogEntry
	NewEntry  *NewEntry
	Matcher   Matcher
}

// BuildDayPayload composes the full ordered payload for a replace-day write.
//
// Ranges are reserved in order: the new entry, explicit surviving ranges,
// ranges reconciled from the detailed log, then reconciled ranges re-cut to an
// edited duration. Only entries whose duration was edited are re-cut; every
// other reconciled range is kept verbatim. A range that would overlap an
// already-reserved one is dropped and the entry is gap-allocated instead, in
// surviving order. It never fails: an unresolvable entry gets a synthetic range.
func BuildDayPayload(req PayloadRequest) domain.DayPayload {
	matcher := req.Matcher
	if matcher == nil {
		matcher = GreedyMatcher{}
	}
	resolved := matcher.Reconcile(req.Original, req.Detailed)

	slots := make([]*domain.Interval, len(req.Surviving))
	synthetic := make([]bool, len(req.Surviving))
	var reserved []domain.Interval

	var newSlot *domain.Interval
	if req.NewEntry != nil {
		if iv, ok := req.NewEntry.Range.Interval(); ok && iv.Start < iv.End {
			reserved = append(reserved, iv)
			newSlot = &iv
		}
	}

	for i, s := range req.Surviving {
		if s.Range == nil {
			continue
		}
		iv, ok := s.Range.Interval()
		if !ok || iv.Start >= iv.End || overlapsAny(reserved, iv) {
			continue
		}
		reserved = append(reserved, iv)
		slots[i] = &iv
	}

	// Unchanged reconciled ranges are reserved before re-cut ones so an
	// edited entry that grows cannot push an untouched sibling out.
	type recut struct {
		idx int
		iv  domain.Interval
	}
	var recuts []recut
	for i, s := range req.Surviving {
		if s.Range != nil || s.OriginalIndex < 0 || s.OriginalIndex >= len(resolved) || s.OriginalIndex >= len(req.Original) {
			continue
		}
		r := resolved[s.OriginalIndex]
		if r == nil {
			continue
		}
		iv, ok := r.Interval()
		if !ok {
			continue
		}
		if d := entryMinutes(s.Entry, iv.Len()); d != iv.Len() && durationEdited(s.Entry, req.Original[s.OriginalIndex]) {
			iv.End = min(iv.Start+d, domain.MinutesPerDay)
			recuts = append(recuts, recut{idx: i, iv: iv})
			continue
		}
		if overlapsAny(reserved, iv) {
			continue
		}
		reserved = append(reserved, iv)
		slots[i] = &iv
	}
	for _, rc := range recuts {
		if overlapsAny(reserved, rc.iv) {
			continue
		}
		iv := rc.iv
		reserved = append(reserved, iv)
		slots[rc.idx] = &iv
	}

	for i, s := range req.Surviving {
		if slots[i] != nil {
			continue
		}
		fallback := 0
		if s.Range != nil {
			if iv, ok := s.Range.Interval(); ok && iv.Start < iv.End {
				fallback = iv.Len()
			}
		}
		iv := allocate(&reserved, entryMinutes(s.Entry, fallback))
		slots[i] = &iv
		synthetic[i] = true
	}

	payload := domain.DayPayload{
		DateKey:   req.DateKey,
		Entries:   make([]domain.PayloadEntry, 0, len(req.Surviving)+1),
		Synthetic: synthetic,
	}
	for i, s := range req.Surviving {
		payload.Entries = append(payload.Entries, payloadEntry(s.Entry, *slots[i]))
	}

	if req.NewEntry != nil {
		newSynthetic := false
		if newSlot == nil {
			iv := allocate(&reserved, entryMinutes(req.NewEntry.Entry, 0))
			newSlot = &iv
			newSynthetic = true
		}
		payload.Entries = append(payload.Entries, payloadEntry(req.NewEntry.Entry, *newSlot))
		payload.Synthetic = append(payload.Synthetic, newSynthetic)
	}

	return payload
}

// durationEdited reports whether a mutation changed the entry's reported
// duration. An untouched entry keeps its reconciled range even when the
// report and the detailed log disagree on its length.
func durationEdited(e, original domain.AbstractLogEntry) bool {
	return entryMinutes(e, -1) != entryMinutes(original, -1)
}

// entryMinutes returns the entry's reported duration, or fallback when the
// HH:MM value is missing or malformed.
func entryMinutes(e domain.AbstractLogEntry, fallback int) int {
	if m, err := domain.ParseHHMM(e.HoursHHMM); err == nil {
		return m
	}
	return fallback
}

func payloadEntry(e domain.AbstractLogEntry, iv domain.Interval) domain.PayloadEntry {
	r := domain.RangeFromInterval(iv)
	return domain.PayloadEntry{
		TaskID:        e.TaskID,
		From:          r.From,
		To:            r.To,
		HoursHHMM:     domain.FormatHHMM(iv.Len()),
		Hours:         domain.HoursFromMinutes(iv.Len()),
		Comment:       e.Comment,
		ReportingFrom: e.ReportingFrom,
	}
}

// SurvivorsExcept returns every original entry except the one at skip, each
// pointing back to its original index. skip < 0 keeps all entries.
func SurvivorsExcept(original []domain.AbstractLogEntry, skip int) []SurvivingEntry {
	out := make([]SurvivingEntry, 0, len(original))
	for i, e := range original {
		if i == skip {
			continue
		}
		out = append(out, SurvivingEntry{Entry: e, OriginalIndex: i})
	}
	return out
}
