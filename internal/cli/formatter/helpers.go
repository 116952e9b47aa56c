package formatter

import (
	"fmt"
	"time"
)

// FormatSeconds renders a duration in seconds as "12h 30m".
func FormatSeconds(secs int) string {
	mins := secs / 60
	if mins <= 0 {
		return "0m"
	}
	h, m := mins/60, mins%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// HumanTimestampFrom renders t relative to now.
func HumanTimestampFrom(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case t.IsZero():
		return "-"
	case diff < 0:
		return t.Format("Jan 2 15:04")
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return t.Format("Jan 2 15:04")
	}
}

func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
