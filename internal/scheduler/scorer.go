package scheduler

import (
	"strings"

	"github.com/alexanderramin/workledger/internal/domain"
)

// Match score weights. A task mismatch always scores zero.
const (
	scoreTaskMatch       = 100
	scoreHoursMatch      = 50
	scoreCommentExact    = 25
	scoreCommentContains = 10
	scoreCommentEmpty    = 5
	scoreReportingFrom   = 15
	scoreProjectInstance = 10
)

// MatchScore rates how likely detailed is the time-ranged record of abstract.
func MatchScore(abstract domain.AbstractLogEntry, detailed domain.DetailedLogEntry) int {
	if abstract.TaskID != detailed.TaskID {
		return 0
	}

	score := scoreTaskMatch
	factors := []func(domain.AbstractLogEntry, domain.DetailedLogEntry) int{
		scoreHours,
		scoreComment,
		scoreReporting,
		scoreInstance,
	}
	for _, f := range factors {
		score += f(abstract, detailed)
	}
	return score
}

// scoreHours compares durations. A detailed entry without an HH:MM value is
// measured by its clock range.
func scoreHours(a domain.AbstractLogEntry, d domain.DetailedLogEntry) int {
	am, err := domain.ParseHHMM(a.HoursHHMM)
	if err != nil {
		return 0
	}
	dm, ok := detailedMinutes(d)
	if !ok || am != dm {
		return 0
	}
	return scoreHoursMatch
}

func detailedMinutes(d domain.DetailedLogEntry) (int, bool) {
	if d.HoursHHMM != "" {
		m, err := domain.ParseHHMM(d.HoursHHMM)
		return m, err == nil
	}
	r := d.Range()
	if r == nil {
		return 0, false
	}
	iv, ok := r.Interval()
	return iv.Len(), ok
}

func scoreComment(a domain.AbstractLogEntry, d domain.DetailedLogEntry) int {
	ac, dc := domain.NormalizeComment(a.Comment), domain.NormalizeComment(d.Comment)
	switch {
	case ac == "" && dc == "":
		return scoreCommentEmpty
	case ac == "" || dc == "":
		return 0
	case ac == dc:
		return scoreCommentExact
	case strings.Contains(ac, dc) || strings.Contains(dc, ac):
		return scoreCommentContains
	default:
		return 0
	}
}

func scoreReporting(a domain.AbstractLogEntry, d domain.DetailedLogEntry) int {
	if a.ReportingFrom != "" && strings.EqualFold(a.ReportingFrom, d.ReportingFrom) {
		return scoreReportingFrom
	}
	return 0
}

func scoreInstance(a domain.AbstractLogEntry, d domain.DetailedLogEntry) int {
	if a.ProjectInstance != "" && a.ProjectInstance == d.ProjectInstance {
		return scoreProjectInstance
	}
	return 0
}
