package entry

import "time"

// Kind records how the entry was initiated.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindWishlist Kind = "wishlist"
	KindManual   Kind = "manual"
)

// Outcome records how the submission ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Entry is one submission attempt against a listing, successful or not.
type Entry struct {
	ID          string    `json:"id"`
	ListingCode string    `json:"listingCode"`
	GameName    string    `json:"gameName"`
	PointsSpent int       `json:"pointsSpent"`
	Kind        Kind      `json:"kind"`
	Outcome     Outcome   `json:"outcome"`
	ErrorReason string    `json:"errorReason,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}
