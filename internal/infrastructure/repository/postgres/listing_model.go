package postgres

import (
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
)

type listingTableModel struct {
	Code          string     `db:"code"`
	URL           string     `db:"url"`
	GameID        string     `db:"game_id"`
	GameName      string     `db:"game_name"`
	PointCost     int        `db:"point_cost"`
	Copies        int        `db:"copies"`
	EntryCount    int        `db:"entry_count"`
	EndAt         *time.Time `db:"end_at"`
	IsDLC         bool       `db:"is_dlc"`
	IsWishlisted  bool       `db:"is_wishlisted"`
	IsHidden      bool       `db:"is_hidden"`
	IsEntered     bool       `db:"is_entered"`
	IsWon         bool       `db:"is_won"`
	WonAt         *time.Time `db:"won_at"`
	ReviewScore   *int       `db:"review_score"`
	ReviewCount   *int       `db:"review_count"`
	ReleasedAt    *time.Time `db:"released_at"`
	SafetyVerdict string     `db:"safety_verdict"`
	SafetyScore   *int       `db:"safety_score"`
	DiscoveredAt  time.Time  `db:"discovered_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (m listingTableModel) toDomain() listing.Listing {
	return listing.Listing{
		Code:          m.Code,
		URL:           m.URL,
		GameID:        m.GameID,
		GameName:      m.GameName,
		PointCost:     m.PointCost,
		Copies:        m.Copies,
		EntryCount:    m.EntryCount,
		EndAt:         m.EndAt,
		IsDLC:         m.IsDLC,
		IsWishlisted:  m.IsWishlisted,
		IsHidden:      m.IsHidden,
		IsEntered:     m.IsEntered,
		IsWon:         m.IsWon,
		WonAt:         m.WonAt,
		ReviewScore:   m.ReviewScore,
		ReviewCount:   m.ReviewCount,
		ReleasedAt:    m.ReleasedAt,
		SafetyVerdict: listing.Verdict(m.SafetyVerdict),
		SafetyScore:   m.SafetyScore,
		DiscoveredAt:  m.DiscoveredAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func listingModelFromDomain(l listing.Listing) listingTableModel {
	verdict := string(l.SafetyVerdict)
	if verdict == "" {
		verdict = string(listing.VerdictUnknown)
	}
	return listingTableModel{
		Code:          l.Code,
		URL:           l.URL,
		GameID:        l.GameID,
		GameName:      l.GameName,
		PointCost:     l.PointCost,
		Copies:        l.Copies,
		EntryCount:    l.EntryCount,
		EndAt:         l.EndAt,
		IsDLC:         l.IsDLC,
		IsWishlisted:  l.IsWishlisted,
		IsHidden:      l.IsHidden,
		IsEntered:     l.IsEntered,
		IsWon:         l.IsWon,
		WonAt:         l.WonAt,
		ReviewScore:   l.ReviewScore,
		ReviewCount:   l.ReviewCount,
		ReleasedAt:    l.ReleasedAt,
		SafetyVerdict: verdict,
		SafetyScore:   l.SafetyScore,
		DiscoveredAt:  l.DiscoveredAt,
		UpdatedAt:     l.UpdatedAt,
	}
}
