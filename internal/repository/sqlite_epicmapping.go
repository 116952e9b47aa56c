package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/workledger/internal/db"
	"github.com/alexanderramin/workledger/internal/domain"
)

// SQLiteEpicMappingRepo implements EpicMappingRepo.
type SQLiteEpicMappingRepo struct {
	db db.DBTX
}

func NewSQLiteEpicMappingRepo(dbtx db.DBTX) *SQLiteEpicMappingRepo {
	return &SQLiteEpicMappingRepo{db: dbtx}
}

// Upsert maps a customer to an epic, replacing any previous epic.
func (r *SQLiteEpicMappingRepo) Upsert(ctx context.Context, m *domain.EpicMapping) error {
	query := `INSERT INTO epic_mappings (customer, epic_key, created_at) VALUES (?, ?, ?)
		ON CONFLICT(customer) DO UPDATE SET epic_key = excluded.epic_key`
	if _, err := r.db.ExecContext(ctx, query, m.Customer, m.EpicKey, formatTime(m.CreatedAt)); err != nil {
		return fmt.Errorf("upserting epic mapping: %w", err)
	}
	return nil
}

func (r *SQLiteEpicMappingRepo) GetByCustomer(ctx context.Context, customer string) (*domain.EpicMapping, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT customer, epic_key, created_at FROM epic_mappings WHERE customer = ?`, customer)
	var m domain.EpicMapping
	var createdAt string
	if err := row.Scan(&m.Customer, &m.EpicKey, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("epic mapping %q: %w", customer, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning epic mapping: %w", err)
	}
	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *SQLiteEpicMappingRepo) List(ctx context.Context) ([]*domain.EpicMapping, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT customer, epic_key, created_at FROM epic_mappings ORDER BY customer`)
	if err != nil {
		return nil, fmt.Errorf("listing epic mappings: %w", err)
	}
	defer rows.Close()

	var out []*domain.EpicMapping
	for rows.Next() {
		var m domain.EpicMapping
		var createdAt string
		if err := rows.Scan(&m.Customer, &m.EpicKey, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning epic mapping row: %w", err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating epic mappings: %w", err)
	}
	return out, nil
}

func (r *SQLiteEpicMappingRepo) Delete(ctx context.Context, customer string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM epic_mappings WHERE customer = ?`, customer)
	if err != nil {
		return fmt.Errorf("deleting epic mapping: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting epic mapping: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("epic mapping %q: %w", customer, ErrNotFound)
	}
	return nil
}
