package formatter

import (
	"strings"
	"time"

	"github.com/alexanderramin/workledger/internal/domain"
)

func FormatNotices(notices []domain.Notice, now time.Time) string {
	if len(notices) == 0 {
		return Dim("No notices.") + "\n"
	}
	var b strings.Builder
	for _, n := range notices {
		meta := n.Operation
		if n.Scope != "" {
			meta += " " + n.Scope
		}
		b.WriteString(StyleRed.Render("✖ ") + n.Message + "\n")
		b.WriteString("  " + Dim(meta+" · "+HumanTimestampFrom(n.CreatedAt, now)+" · "+n.ID) + "\n")
	}
	return b.String()
}
