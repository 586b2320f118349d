package listing

import "time"

// Verdict is the safety classification of a listing.
type Verdict string

const (
	VerdictUnknown Verdict = "unknown"
	VerdictSafe    Verdict = "safe"
	VerdictUnsafe  Verdict = "unsafe"
)

// Listing is one giveaway observed on the remote site, keyed by its site code.
type Listing struct {
	Code         string     `json:"code"`
	URL          string     `json:"url"`
	GameID       string     `json:"gameId,omitempty"`
	GameName     string     `json:"gameName"`
	PointCost    int        `json:"pointCost"`
	Copies       int        `json:"copies"`
	EntryCount   int        `json:"entryCount"`
	EndAt        *time.Time `json:"endAt,omitempty"`
	IsDLC        bool       `json:"isDlc"`
	IsWishlisted bool       `json:"isWishlisted"`
	IsHidden     bool       `json:"isHidden"`
	IsEntered    bool       `json:"isEntered"`
	IsWon        bool       `json:"isWon"`
	WonAt        *time.Time `json:"wonAt,omitempty"`
	ReviewScore  *int       `json:"reviewScore,omitempty"`
	ReviewCount  *int       `json:"reviewCount,omitempty"`
	ReleasedAt   *time.Time `json:"releasedAt,omitempty"`

	SafetyVerdict Verdict `json:"safetyVerdict"`
	SafetyScore   *int    `json:"safetyScore,omitempty"`

	DiscoveredAt time.Time `json:"discoveredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsExpired reports whether the giveaway's end time has passed.
// Listings without a known end time are never considered expired.
func (l Listing) IsExpired(now time.Time) bool {
	return l.EndAt != nil && !l.EndAt.After(now)
}

// IsTerminal reports whether the listing has left the active pool for good:
// expired without a win. Terminal listings are never re-evaluated.
func (l Listing) IsTerminal(now time.Time) bool {
	return l.IsExpired(now) && !l.IsWon
}
