package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/workledger/internal/domain"
)

func listNotices(t *testing.T, b *NoticeBoard) []domain.Notice {
	t.Helper()
	list, err := b.List(context.Background())
	require.NoError(t, err)
	return list
}

// recordingObserver captures use-case events for assertions.
type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) byName(name string) []UseCaseEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []UseCaseEvent
	for _, e := range o.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeJiraState struct {
	mu         sync.Mutex
	configured bool
	marked     int
}

func (s *fakeJiraState) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured
}

func (s *fakeJiraState) MarkUnconfigured(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured = false
	s.marked++
	return nil
}
