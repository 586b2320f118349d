package postgres

import (
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/entry"
)

type entryTableModel struct {
	ID          string    `db:"id"`
	ListingCode string    `db:"listing_code"`
	GameName    string    `db:"game_name"`
	PointsSpent int       `db:"points_spent"`
	Kind        string    `db:"kind"`
	Outcome     string    `db:"outcome"`
	ErrorReason string    `db:"error_reason"`
	SubmittedAt time.Time `db:"submitted_at"`
}

func (m entryTableModel) toDomain() entry.Entry {
	return entry.Entry{
		ID:          m.ID,
		ListingCode: m.ListingCode,
		GameName:    m.GameName,
		PointsSpent: m.PointsSpent,
		Kind:        entry.Kind(m.Kind),
		Outcome:     entry.Outcome(m.Outcome),
		ErrorReason: m.ErrorReason,
		SubmittedAt: m.SubmittedAt,
	}
}

func entryModelFromDomain(e entry.Entry) entryTableModel {
	return entryTableModel{
		ID:          e.ID,
		ListingCode: e.ListingCode,
		GameName:    e.GameName,
		PointsSpent: e.PointsSpent,
		Kind:        string(e.Kind),
		Outcome:     string(e.Outcome),
		ErrorReason: e.ErrorReason,
		SubmittedAt: e.SubmittedAt,
	}
}
