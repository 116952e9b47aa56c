package cli

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/workledger/internal/prefetch"
)

func TestPrefetchModel_ProgressUpdatesView(t *testing.T) {
	m := newPrefetchModel(prefetch.Progress{Total: 3, Pending: 3})
	assert.Contains(t, m.View(), "0/3 loaded")

	model, cmd := m.Update(prefetchProgressMsg{Total: 3, Done: 1, Failed: 1, Loading: 1})
	m = model.(prefetchModel)
	require.Nil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "1/3 loaded · 1 loading · 0 pending")
	assert.Contains(t, view, "1 failed")
	assert.Contains(t, view, "67%")
}

func TestPrefetchModel_SettledQuits(t *testing.T) {
	m := newPrefetchModel(prefetch.Progress{Total: 1, Loading: 1})

	model, cmd := m.Update(prefetchSettledMsg{err: context.DeadlineExceeded})
	m = model.(prefetchModel)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.err, context.DeadlineExceeded)
	assert.Empty(t, m.View())
}

func TestPrefetchModel_CtrlCInterrupts(t *testing.T) {
	m := newPrefetchModel(prefetch.Progress{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.InterruptMsg{}, cmd())
}

func TestPrefetchModel_ResizeClampsBar(t *testing.T) {
	m := newPrefetchModel(prefetch.Progress{})

	model, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, prefetchBarMaxWidth, model.(prefetchModel).bar.Width)

	model, _ = m.Update(tea.WindowSizeMsg{Width: 30, Height: 40})
	assert.Equal(t, 26, model.(prefetchModel).bar.Width)
}

func TestSettledFraction(t *testing.T) {
	assert.Equal(t, 1.0, settledFraction(prefetch.Progress{}))
	assert.Equal(t, 0.5, settledFraction(prefetch.Progress{Total: 4, Done: 1, Failed: 1, Loading: 2}))
}
