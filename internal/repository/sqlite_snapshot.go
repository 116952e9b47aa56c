package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/workledger/internal/db"
	"github.com/alexanderramin/workledger/internal/domain"
)

// SQLiteSnapshotRepo implements SnapshotRepo. Frozen rows are immutable:
// Save against one fails with ErrSnapshotFrozen.
type SQLiteSnapshotRepo struct {
	db db.DBTX
}

func NewSQLiteSnapshotRepo(dbtx db.DBTX) *SQLiteSnapshotRepo {
	return &SQLiteSnapshotRepo{db: dbtx}
}

const snapshotColumns = `epic_key, month_key, frozen, computed_at, total_seconds, seconds_by_person, percents`

func (r *SQLiteSnapshotRepo) Get(ctx context.Context, epicKey, monthKey string) (*domain.PositionSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM position_snapshots WHERE epic_key = ? AND month_key = ?`,
		epicKey, monthKey)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position snapshot %s/%s: %w", epicKey, monthKey, ErrNotFound)
	}
	return s, err
}

func (r *SQLiteSnapshotRepo) Save(ctx context.Context, s *domain.PositionSnapshot) error {
	byPerson, err := encodeIntMap(s.SecondsByPerson)
	if err != nil {
		return fmt.Errorf("encoding seconds by person: %w", err)
	}
	percents, err := encodeIntMap(s.Percents)
	if err != nil {
		return fmt.Errorf("encoding percents: %w", err)
	}

	query := `INSERT INTO position_snapshots (` + snapshotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(epic_key, month_key) DO UPDATE SET
			frozen = excluded.frozen,
			computed_at = excluded.computed_at,
			total_seconds = excluded.total_seconds,
			seconds_by_person = excluded.seconds_by_person,
			percents = excluded.percents
		WHERE position_snapshots.frozen = 0`
	res, err := r.db.ExecContext(ctx, query,
		s.EpicKey, s.MonthKey, boolToInt(s.Frozen), formatTime(s.ComputedAt),
		s.TotalSeconds, byPerson, percents,
	)
	if err != nil {
		return fmt.Errorf("saving position snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving position snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", s.EpicKey, s.MonthKey, ErrSnapshotFrozen)
	}
	return nil
}

func (r *SQLiteSnapshotRepo) ListByEpic(ctx context.Context, epicKey string) ([]*domain.PositionSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM position_snapshots WHERE epic_key = ? ORDER BY month_key`,
		epicKey)
	if err != nil {
		return nil, fmt.Errorf("listing position snapshots: %w", err)
	}
	defer rows.Close()

	var out []*domain.PositionSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating position snapshots: %w", err)
	}
	return out, nil
}

// DeleteByEpic removes every snapshot of an unmapped epic, frozen or not.
func (r *SQLiteSnapshotRepo) DeleteByEpic(ctx context.Context, epicKey string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM position_snapshots WHERE epic_key = ?`, epicKey)
	if err != nil {
		return 0, fmt.Errorf("deleting position snapshots: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*domain.PositionSnapshot, error) {
	var s domain.PositionSnapshot
	var frozen int
	var computedAt, byPerson, percents string

	if err := row.Scan(&s.EpicKey, &s.MonthKey, &frozen, &computedAt, &s.TotalSeconds, &byPerson, &percents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning position snapshot: %w", err)
	}

	var err error
	s.Frozen = intToBool(frozen)
	if s.ComputedAt, err = parseTime(computedAt); err != nil {
		return nil, err
	}
	if s.SecondsByPerson, err = decodeIntMap(byPerson); err != nil {
		return nil, fmt.Errorf("decoding seconds by person: %w", err)
	}
	if s.Percents, err = decodeIntMap(percents); err != nil {
		return nil, fmt.Errorf("decoding percents: %w", err)
	}
	return &s, nil
}
