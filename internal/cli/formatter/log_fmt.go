package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/workledger/internal/domain"
)

// FormatDay renders one date's entries with their reconciled ranges.
// Unresolved ranges show as "--:--".
func FormatDay(date string, entries []domain.AbstractLogEntry, ranges []*domain.TimeRange) string {
	if len(entries) == 0 {
		return Dim(fmt.Sprintf("No entries on %s.", date)) + "\n"
	}

	rows := make([][]string, 0, len(entries))
	total := 0
	for i, e := range entries {
		span := Dim("--:--")
		if i < len(ranges) && ranges[i] != nil {
			span = ranges[i].From + "-" + ranges[i].To
		}
		if m, err := domain.ParseHHMM(e.HoursHHMM); err == nil {
			total += m
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.Itoa(e.TaskID),
			span,
			e.HoursHHMM,
			e.ReportingFrom,
			Truncate(e.Comment, 40),
		})
	}

	var b strings.Builder
	b.WriteString(Header(date))
	b.WriteString("\n")
	b.WriteString(Table{
		Headers:    []string{"#", "TASK", "RANGE", "HOURS", "FROM", "COMMENT"},
		Rows:       rows,
		RightAlign: map[int]bool{0: true, 1: true},
	}.Render())
	b.WriteString(fmt.Sprintf("Total %s\n", Bold(domain.FormatHHMM(total))))
	return b.String()
}

// FormatPayload renders the day written by a mutation, marking
// gap-allocated ranges.
func FormatPayload(p domain.DayPayload) string {
	if len(p.Entries) == 0 {
		return fmt.Sprintf("Cleared %s.\n", p.DateKey)
	}

	rows := make([][]string, 0, len(p.Entries))
	for i, e := range p.Entries {
		note := ""
		if i < len(p.Synthetic) && p.Synthetic[i] {
			note = StyleYellow.Render("allocated")
		}
		rows = append(rows, []string{
			strconv.Itoa(e.TaskID),
			e.From + "-" + e.To,
			e.HoursHHMM,
			Truncate(e.Comment, 40),
			note,
		})
	}
	return fmt.Sprintf("Saved %s.\n", p.DateKey) + Table{
		Headers:    []string{"TASK", "RANGE", "HOURS", "COMMENT", ""},
		Rows:       rows,
		RightAlign: map[int]bool{0: true},
	}.Render()
}

// FormatMonth renders per-day totals of a monthly report.
func FormatMonth(month string, report *domain.MonthlyReport) string {
	if report == nil || len(report.Days) == 0 {
		return Dim(fmt.Sprintf("No entries in %s.", month)) + "\n"
	}
	rows := make([][]string, 0, len(report.Days))
	grand := 0
	for _, d := range report.Days {
		total := 0
		for _, e := range d.Reports {
			if m, err := domain.ParseHHMM(e.HoursHHMM); err == nil {
				total += m
			}
		}
		grand += total
		rows = append(rows, []string{d.Date, strconv.Itoa(len(d.Reports)), domain.FormatHHMM(total)})
	}
	return Header(month) + "\n" + Table{
		Headers:    []string{"DATE", "ENTRIES", "HOURS"},
		Rows:       rows,
		RightAlign: map[int]bool{1: true, 2: true},
	}.Render() + fmt.Sprintf("Total %s\n", Bold(domain.FormatHHMM(grand)))
}
