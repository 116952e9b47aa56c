package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/workledger/internal/prefetch"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a bar like [████░░░░] 45%, green once past two
// thirds, yellow past one third, red below.
func RenderProgress(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	width = max(width, 2)

	filled := min(int(pct*float64(width)), width)
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	if pct < 0.33 {
		style = StyleRed
	} else if pct < 0.66 {
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %3.0f%%", style.Render(bar), pct*100)
}

// PrefetchSummary renders a one-line summary of background loading.
func PrefetchSummary(p prefetch.Progress) string {
	if p.Total == 0 {
		return Dim("Nothing to prefetch.")
	}
	settled := p.Done + p.Failed
	line := fmt.Sprintf("%s  %d/%d loaded", RenderProgress(float64(settled)/float64(p.Total), 20), p.Done, p.Total)
	if p.Loading+p.Pending > 0 {
		line += Dim(fmt.Sprintf(", %d in flight", p.Loading+p.Pending))
	}
	if p.Failed > 0 {
		line += StyleRed.Render(fmt.Sprintf(", %d failed", p.Failed))
	}
	if p.RetryAvailable {
		line += StyleYellow.Render(fmt.Sprintf(" (%d timed out, retry after cooldown)", p.TimedOut))
	}
	return line
}
