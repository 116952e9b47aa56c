package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/alexanderramin/workledger/internal/db"
	"github.com/alexanderramin/workledger/internal/domain"
)

// SQLiteNoticeRepo implements NoticeRepo.
type SQLiteNoticeRepo struct {
	db db.DBTX
}

func NewSQLiteNoticeRepo(dbtx db.DBTX) *SQLiteNoticeRepo {
	return &SQLiteNoticeRepo{db: dbtx}
}

func (r *SQLiteNoticeRepo) Save(ctx context.Context, n *domain.Notice) error {
	query := `INSERT INTO notices (id, operation, scope, message, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET message = excluded.message`
	if _, err := r.db.ExecContext(ctx, query, n.ID, n.Operation, n.Scope, n.Message, formatTime(n.CreatedAt)); err != nil {
		return fmt.Errorf("saving notice: %w", err)
	}
	return nil
}

// List returns every notice, oldest first.
func (r *SQLiteNoticeRepo) List(ctx context.Context) ([]*domain.Notice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, operation, scope, message, created_at FROM notices`)
	if err != nil {
		return nil, fmt.Errorf("listing notices: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notice
	for rows.Next() {
		var n domain.Notice
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Operation, &n.Scope, &n.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning notice row: %w", err)
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notices: %w", err)
	}
	// created_at is RFC 3339 with trimmed fractions, which does not sort as text.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *SQLiteNoticeRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting notice: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting notice: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("notice %q: %w", id, ErrNotFound)
	}
	return nil
}

// Clear deletes every notice and returns how many were removed.
func (r *SQLiteNoticeRepo) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notices`)
	if err != nil {
		return 0, fmt.Errorf("clearing notices: %w", err)
	}
	return res.RowsAffected()
}
