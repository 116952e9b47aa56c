package domain

// AbstractLogEntry is one ledger-reported duration for a day. The monthly
// report carries no clock times.
type AbstractLogEntry struct {
	TaskID          int
	HoursHHMM       string
	Comment         string
	ReportingFrom   string
	ProjectInstance string
}

// DetailedLogEntry is a per-date log entry with explicit clock times.
type DetailedLogEntry struct {
	TaskID          int
	From            string
	To              string
	HoursHHMM       string
	Comment         string
	ReportingFrom   string
	ProjectInstance string
}

// Range returns the entry's clock range, or nil when From/To are missing or
// not strictly ordered.
func (d DetailedLogEntry) Range() *TimeRange {
	r := TimeRange{From: d.From, To: d.To}
	if !r.Valid() {
		return nil
	}
	return &r
}

// PayloadEntry is one row of a full-day replace write.
type PayloadEntry struct {
	TaskID        int     `json:"taskId"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	HoursHHMM     string  `json:"hoursHHMM"`
	Hours         float64 `json:"hours"`
	Comment       string  `json:"comment"`
	ReportingFrom string  `json:"reportingFrom"`
}

// Interval returns the entry's [from,to) interval in minutes since midnight.
func (p PayloadEntry) Interval() (Interval, bool) {
	return TimeRange{From: p.From, To: p.To}.Interval()
}

// DayReport groups the abstract entries the ledger reports for one date.
type DayReport struct {
	Date    string
	Reports []AbstractLogEntry
}

// MonthlyReport is the ledger's duration-only view over a date range.
type MonthlyReport struct {
	Days []DayReport
}

// Day returns the abstract entries for dateKey, or nil when the report has none.
func (m *MonthlyReport) Day(dateKey string) []AbstractLogEntry {
	if m == nil {
		return nil
	}
	for _, d := range m.Days {
		if d.Date == dateKey {
			return d.Reports
		}
	}
	return nil
}

// DayPayload is the full ordered entry set that replaces one ledger day.
// Synthetic is index-aligned with Entries and marks gap-allocated ranges.
type DayPayload struct {
	DateKey   string
	Entries   []PayloadEntry
	Synthetic []bool
}
