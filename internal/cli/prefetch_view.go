package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexanderramin/workledger/internal/cli/formatter"
	"github.com/alexanderramin/workledger/internal/prefetch"
)

const prefetchBarMaxWidth = 60

// prefetchProgressMsg carries a scheduler update into the view.
type prefetchProgressMsg prefetch.Progress

// prefetchSettledMsg ends the view; err is set when the wait gave up.
type prefetchSettledMsg struct{ err error }

// prefetchModel draws a progress bar while background loads run.
type prefetchModel struct {
	bar      progress.Model
	progress prefetch.Progress
	settled  bool
	err      error
}

func newPrefetchModel(initial prefetch.Progress) prefetchModel {
	return prefetchModel{
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		progress: initial,
	}
}

func (m prefetchModel) Init() tea.Cmd { return nil }

func (m prefetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case prefetchProgressMsg:
		m.progress = prefetch.Progress(msg)
	case prefetchSettledMsg:
		m.settled, m.err = true, msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Interrupt
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), prefetchBarMaxWidth)
	}
	return m, nil
}

func (m prefetchModel) View() string {
	if m.settled {
		return ""
	}
	p := m.progress
	line := fmt.Sprintf("%d/%d loaded · %d loading · %d pending", p.Done, p.Total, p.Loading, p.Pending)
	if p.Failed > 0 {
		line += fmt.Sprintf(" · %d failed", p.Failed)
	}
	return "  " + m.bar.ViewAs(settledFraction(p)) + "\n  " + formatter.Dim(line) + "\n"
}

func settledFraction(p prefetch.Progress) float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Done+p.Failed) / float64(p.Total)
}

// runPrefetchView shows live progress until scheduled loads settle or ctx is
// done.
func runPrefetchView(ctx context.Context, app *App, out io.Writer) error {
	p := tea.NewProgram(newPrefetchModel(app.Jira.PrefetchProgress()),
		tea.WithContext(ctx),
		tea.WithOutput(out),
	)
	stop := app.Jira.OnPrefetchProgress(func(pr prefetch.Progress) {
		p.Send(prefetchProgressMsg(pr))
	})
	defer stop()
	go func() {
		p.Send(prefetchSettledMsg{err: app.Jira.WaitPrefetch(ctx)})
	}()

	final, err := p.Run()
	switch {
	case errors.Is(err, tea.ErrProgramKilled), errors.Is(err, tea.ErrInterrupted):
		if ctx.Err() != nil {
			return fmt.Errorf("waiting for prefetch: %w", ctx.Err())
		}
		return fmt.Errorf("waiting for prefetch: %w", context.Canceled)
	case err != nil:
		return fmt.Errorf("showing prefetch progress: %w", err)
	}
	if m, ok := final.(prefetchModel); ok && m.err != nil {
		return fmt.Errorf("waiting for prefetch: %w", m.err)
	}
	return nil
}
