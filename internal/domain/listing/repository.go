package listing

import (
	"context"
	"time"
)

// UpsertResult tells the scan pipeline what an upsert did to the store.
type UpsertResult struct {
	Created bool
	Changed bool
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Entered *bool
	Safety  Verdict
	Query   string
	Limit   int
}

type Repository interface {
	// Upsert inserts the listing or merges it into the stored row.
	// Fields owned by other flows (safety verdict, won markers, discovery time)
	// are preserved on update.
	Upsert(ctx context.Context, l Listing) (UpsertResult, error)
	GetByCode(ctx context.Context, code string) (Listing, bool, error)
	List(ctx context.Context, f Filter) ([]Listing, error)
	// ListCandidates returns active, not-entered, not-hidden listings
	// still open at now, ordered by point cost ascending.
	ListCandidates(ctx context.Context, now time.Time, limit int) ([]Listing, error)
	// ListUnchecked returns active listings whose safety verdict is still unknown.
	ListUnchecked(ctx context.Context, now time.Time, limit int) ([]Listing, error)
	SetEntered(ctx context.Context, code string, entered bool) error
	SetWon(ctx context.Context, code string, wonAt time.Time) error
	SetHidden(ctx context.Context, code string, hidden bool) error
	SetSafety(ctx context.Context, code string, verdict Verdict, score int) error
}
