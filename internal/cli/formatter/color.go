package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/workledger/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// PrefetchPill returns a colored indicator for a prefetch entry.
func PrefetchPill(e domain.PrefetchEntry) string {
	switch e.Status {
	case domain.PrefetchDone:
		return StyleGreen.Render("✔ done")
	case domain.PrefetchLoading:
		return StyleBlue.Render("● loading")
	case domain.PrefetchPending:
		return StyleDim.Render("○ pending")
	case domain.PrefetchError:
		if e.TimedOut {
			return StyleYellow.Render("⏱ timed out")
		}
		return StyleRed.Render("✖ error")
	default:
		return StyleDim.Render(string(e.Status))
	}
}

// PercentStyled colors a position percentage: green at or above 80,
// yellow from 40, red below.
func PercentStyled(pct int) string {
	text := fmt.Sprintf("%d%%", pct)
	switch {
	case pct >= 80:
		return StyleGreen.Render(text)
	case pct >= 40:
		return StyleYellow.Render(text)
	default:
		return StyleRed.Render(text)
	}
}

// Header renders a section header with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
