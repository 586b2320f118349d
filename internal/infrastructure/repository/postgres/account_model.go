package postgres

import (
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
)

type accountTableModel struct {
	ID            int        `db:"id"`
	CurrentPoints int        `db:"current_points"`
	Username      string     `db:"username"`
	SessionValid  bool       `db:"session_valid"`
	SyncedAt      *time.Time `db:"synced_at"`
}

func (m accountTableModel) toDomain() account.State {
	return account.State{
		CurrentPoints: m.CurrentPoints,
		Username:      m.Username,
		SessionValid:  m.SessionValid,
		SyncedAt:      m.SyncedAt,
	}
}
