package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/gifthawk/internal/domain/entry"
)

const entryColumns = `id, listing_code, game_name, points_spent, kind, outcome, error_reason, submitted_at`

type EntryRepository struct {
	db *sqlx.DB
}

func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Insert(ctx context.Context, e entry.Entry) error {
	row := entryModelFromDomain(e)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO entries (id, listing_code, game_name, points_spent, kind, outcome, error_reason, submitted_at)
		VALUES (:id, :listing_code, :game_name, :points_spent, :kind, :outcome, :error_reason, :submitted_at)
		ON CONFLICT (id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			error_reason = EXCLUDED.error_reason`, row)
	if err != nil {
		return fmt.Errorf("insert entry id=%s: %w", e.ID, err)
	}
	return nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (entry.Entry, bool, error) {
	var row entryTableModel
	err := r.db.GetContext(ctx, &row,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)
	if err != nil {
		if isNotFound(err) {
			return entry.Entry{}, false, nil
		}
		return entry.Entry{}, false, fmt.Errorf("get entry by id: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete entry id=%s: %w", id, err)
	}
	return nil
}

func (r *EntryRepository) ListRecent(ctx context.Context, limit int) ([]entry.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries ORDER BY submitted_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var rows []entryTableModel
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}

	out := make([]entry.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
