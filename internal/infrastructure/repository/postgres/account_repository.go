package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
)

// accountRowID pins the mirrored account snapshot to a single row.
const accountRowID = 1

type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Read(ctx context.Context) (account.State, error) {
	var row accountTableModel
	err := r.db.GetContext(ctx, &row, `
		SELECT id, current_points, username, session_valid, synced_at
		FROM account_state WHERE id = $1`, accountRowID)
	if err != nil {
		if isNotFound(err) {
			return account.State{}, nil
		}
		return account.State{}, fmt.Errorf("read account state: %w", err)
	}
	return row.toDomain(), nil
}

func (r *AccountRepository) Write(ctx context.Context, s account.State) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_state (id, current_points, username, session_valid, synced_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			current_points = EXCLUDED.current_points,
			username = EXCLUDED.username,
			session_valid = EXCLUDED.session_valid,
			synced_at = EXCLUDED.synced_at`,
		accountRowID, s.CurrentPoints, s.Username, s.SessionValid, s.SyncedAt)
	if err != nil {
		return fmt.Errorf("write account state: %w", err)
	}
	return nil
}
