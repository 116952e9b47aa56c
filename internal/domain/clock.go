package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinutesPerDay is the end-of-day boundary used for slot allocation.
const MinutesPerDay = 24 * 60

// DateLayout is the ledger's date key format.
const DateLayout = "2006-01-02"

// Interval is a half-open [Start,End) span in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether the two half-open intervals share any minute.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// Len returns the interval length in minutes.
func (i Interval) Len() int {
	return i.End - i.Start
}

// TimeRange is a resolved HH:MM clock range for one entry.
type TimeRange struct {
	From string
	To   string
}

// Interval parses the range into minutes. ok is false when either bound is
// malformed.
func (r TimeRange) Interval() (Interval, bool) {
	from, err := ParseClock(r.From)
	if err != nil {
		return Interval{}, false
	}
	to, err := ParseClock(r.To)
	if err != nil {
		return Interval{}, false
	}
	return Interval{Start: from, End: to}, true
}

// Valid reports whether both bounds parse and From is strictly before To.
func (r TimeRange) Valid() bool {
	iv, ok := r.Interval()
	return ok && iv.Start < iv.End
}

// RangeFromInterval formats an interval back into clock strings.
func RangeFromInterval(iv Interval) TimeRange {
	return TimeRange{From: FormatClock(iv.Start), To: FormatClock(iv.End)}
}

// ParseClock parses a 24h "HH:MM" clock time into minutes since midnight.
// "24:00" is accepted as the end-of-day boundary.
func ParseClock(s string) (int, error) {
	h, m, err := splitHHMM(s)
	if err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, err)
	}
	if m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock formats minutes since midnight as "HH:MM".
func FormatClock(min int) string {
	if min < 0 {
		min = 0
	}
	if min > MinutesPerDay {
		min = MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseHHMM parses a duration written as "H:MM" or "HH:MM" into minutes.
// Unlike ParseClock the hour part is not bounded to a day.
func ParseHHMM(s string) (int, error) {
	h, m, err := splitHHMM(s)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	if m > 59 {
		return 0, fmt.Errorf("duration %q: minutes out of range", s)
	}
	return h*60 + m, nil
}

// FormatHHMM formats a minute count as a zero-padded "HH:MM" duration.
func FormatHHMM(min int) string {
	if min < 0 {
		min = 0
	}
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// HoursFromMinutes converts minutes to fractional hours rounded to 2 decimals.
func HoursFromMinutes(min int) float64 {
	return math.Round(float64(min)*100/60) / 100
}

func splitHHMM(s string) (int, int, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || hs == "" || len(ms) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM")
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 {
		return 0, 0, fmt.Errorf("invalid hours")
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 {
		return 0, 0, fmt.Errorf("invalid minutes")
	}
	return h, m, nil
}
