package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/workledger/internal/domain"
	"github.com/alexanderramin/workledger/internal/remote"
	"github.com/alexanderramin/workledger/internal/repository"
)

// NoticeStore persists notices across processes.
type NoticeStore interface {
	Save(ctx context.Context, n *domain.Notice) error
	List(ctx context.Context) ([]*domain.Notice, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) (int64, error)
}

// NoticeBoard accumulates notices until they are dismissed. With a store,
// notices raised by earlier runs are listed too; a notice the store failed
// to save is kept in memory for the life of the process.
type NoticeBoard struct {
	store  NoticeStore
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]domain.Notice
	now     func() time.Time
}

// NewNoticeBoard creates a board that lives only as long as the process.
func NewNoticeBoard() *NoticeBoard {
	return NewStoredNoticeBoard(nil, nil)
}

// NewStoredNoticeBoard creates a board backed by store. A nil store keeps
// notices in memory.
func NewStoredNoticeBoard(store NoticeStore, logger *slog.Logger) *NoticeBoard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NoticeBoard{
		store:   store,
		logger:  logger,
		pending: make(map[string]domain.Notice),
		now:     time.Now,
	}
}

// Raise records a notice for err and returns it.
func (b *NoticeBoard) Raise(operation, scope string, err error) domain.Notice {
	n := domain.Notice{
		ID:        uuid.NewString(),
		Operation: operation,
		Scope:     scope,
		Message:   HumanMessage(err),
		CreatedAt: b.now().UTC(),
	}
	if b.store != nil {
		serr := b.store.Save(context.Background(), &n)
		if serr == nil {
			return n
		}
		b.logger.Warn("notice not persisted", "operation", operation, "error", serr)
	}
	b.mu.Lock()
	b.pending[n.ID] = n
	b.mu.Unlock()
	return n
}

// List returns all notices, oldest first.
func (b *NoticeBoard) List(ctx context.Context) ([]domain.Notice, error) {
	b.mu.Lock()
	out := make([]domain.Notice, 0, len(b.pending))
	for _, n := range b.pending {
		out = append(out, n)
	}
	b.mu.Unlock()

	if b.store != nil {
		stored, err := b.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing notices: %w", err)
		}
		for _, n := range stored {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Dismiss removes a notice. It reports whether one was removed.
func (b *NoticeBoard) Dismiss(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	_, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if ok || b.store == nil {
		return ok, nil
	}

	err := b.store.Delete(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("dismissing notice: %w", err)
	}
	return true, nil
}

// Clear removes every notice and returns how many were removed.
func (b *NoticeBoard) Clear(ctx context.Context) (int, error) {
	b.mu.Lock()
	n := len(b.pending)
	b.pending = make(map[string]domain.Notice)
	b.mu.Unlock()
	if b.store == nil {
		return n, nil
	}

	stored, err := b.store.Clear(ctx)
	if err != nil {
		return n, fmt.Errorf("clearing notices: %w", err)
	}
	return n + int(stored), nil
}

// HumanMessage maps an error to the text shown to the user.
func HumanMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return "Your ledger session expired. Please log in again."
	case errors.Is(err, remote.ErrJiraAuthRequired):
		return "Jira rejected the saved credentials. Reconnect Jira to continue."
	case remote.IsTimeout(err):
		return "The server took too long to respond. Try again."
	case errors.Is(err, remote.ErrUnavailable):
		return "The server could not be reached."
	case errors.Is(err, ErrEntryNotFound):
		return "That log entry no longer exists. Refresh the day and try again."
	case errors.Is(err, ErrJiraNotConfigured):
		return "Jira is not connected. Add Jira credentials to continue."
	case errors.Is(err, ErrInvalidEntry), errors.Is(err, ErrInvalidMapping):
		return err.Error()
	default:
		return "Something went wrong: " + err.Error()
	}
}
