package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/workledger/internal/domain"
)

func FormatMappings(mappings []*domain.EpicMapping) string {
	if len(mappings) == 0 {
		return Dim("No epics mapped.") + "\n"
	}
	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []string{m.Customer, m.EpicKey})
	}
	return RenderTable([]string{"CUSTOMER", "EPIC"}, rows)
}

// FormatContributors renders contributor totals and notes where the data
// came from.
func FormatContributors(epicKey string, contributors []domain.Contributor, fromWorklogs, partial bool) string {
	var b strings.Builder
	b.WriteString(Header("Contributors " + epicKey))
	b.WriteString("\n")
	if len(contributors) == 0 {
		b.WriteString(Dim("No time logged.") + "\n")
	} else {
		rows := make([][]string, 0, len(contributors))
		for _, c := range contributors {
			rows = append(rows, []string{c.Name, FormatSeconds(c.Seconds)})
		}
		b.WriteString(Table{
			Headers:    []string{"NAME", "TIME"},
			Rows:       rows,
			RightAlign: map[int]bool{1: true},
		}.Render())
	}
	if !fromWorklogs {
		b.WriteString(Dim("Based on assignees; worklogs not loaded.") + "\n")
	}
	if partial {
		b.WriteString(StyleYellow.Render("Jira returned a partial result; totals may be low.") + "\n")
	}
	return b.String()
}

// FormatPosition renders a monthly position snapshot, highest share first.
func FormatPosition(s *domain.PositionSnapshot) string {
	if s == nil {
		return Dim("No position yet: worklogs unavailable or no workday has elapsed.") + "\n"
	}
	names := make([]string, 0, len(s.Percents))
	for name := range s.Percents {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.Percents[names[i]] != s.Percents[names[j]] {
			return s.Percents[names[i]] > s.Percents[names[j]]
		}
		return names[i] < names[j]
	})

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, FormatSeconds(s.SecondsByPerson[name]), PercentStyled(s.Percents[name])})
	}

	title := fmt.Sprintf("Position %s %s", s.EpicKey, s.MonthKey)
	if s.Frozen {
		title += " (frozen)"
	}
	return Header(title) + "\n" + Table{
		Headers:    []string{"NAME", "TIME", "POSITION"},
		Rows:       rows,
		RightAlign: map[int]bool{1: true, 2: true},
	}.Render()
}

// FormatPrefetchEntries renders per-epic prefetch state sorted by key.
func FormatPrefetchEntries(entries map[string]domain.PrefetchEntry, now time.Time) string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		e := entries[k]
		detail := e.Error
		if e.InCooldown(now) {
			detail = fmt.Sprintf("retry in %s", e.CooldownUntil.Sub(now).Round(time.Second))
		} else if e.Status == domain.PrefetchDone {
			detail = fmt.Sprintf("%d tasks, %d subtasks in %s", e.Tasks, e.Subtasks, e.Elapsed.Round(time.Millisecond))
		}
		rows = append(rows, []string{k, PrefetchPill(e), Truncate(detail, 50)})
	}
	return RenderTable([]string{"EPIC", "STATUS", "DETAIL"}, rows)
}
