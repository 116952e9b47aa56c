package repository

import (
	"context"
	"errors"

	"github.com/alexanderramin/workledger/internal/domain"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSnapshotFrozen is returned when a write targets a frozen snapshot.
	ErrSnapshotFrozen = errors.New("position snapshot is frozen")
)

type SnapshotRepo interface {
	Get(ctx context.Context, epicKey, monthKey string) (*domain.PositionSnapshot, error)
	Save(ctx context.Context, s *domain.PositionSnapshot) error
	ListByEpic(ctx context.Context, epicKey string) ([]*domain.PositionSnapshot, error)
	DeleteByEpic(ctx context.Context, epicKey string) (int64, error)
}

type EpicMappingRepo interface {
	Upsert(ctx context.Context, m *domain.EpicMapping) error
	GetByCustomer(ctx context.Context, customer string) (*domain.EpicMapping, error)
	List(ctx context.Context) ([]*domain.EpicMapping, error)
	Delete(ctx context.Context, customer string) error
}

type NoticeRepo interface {
	Save(ctx context.Context, n *domain.Notice) error
	List(ctx context.Context) ([]*domain.Notice, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) (int64, error)
}
