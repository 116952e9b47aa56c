package domain

import "strings"

// NormalizeComment lower-cases s and collapses runs of whitespace.
func NormalizeComment(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
