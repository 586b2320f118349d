package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
)

type ListingRepository struct {
	mu     sync.RWMutex
	items  map[string]listing.Listing
	orders []string
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items:  make(map[string]listing.Listing),
		orders: make([]string, 0, 64),
	}
}

// Upsert merges a scanned row into the store. Fields owned by other flows
// (safety verdict, won markers, discovery time, hidden flag) survive updates;
// Changed only reports diffs in the scan-owned mutable fields.
func (r *ListingRepository) Upsert(_ context.Context, l listing.Listing) (listing.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[l.Code]
	if !ok {
		r.items[l.Code] = l
		r.orders = append(r.orders, l.Code)
		return listing.UpsertResult{Created: true, Changed: true}, nil
	}

	merged := current
	merged.URL = l.URL
	merged.GameName = l.GameName
	merged.PointCost = l.PointCost
	merged.Copies = l.Copies
	merged.EntryCount = l.EntryCount
	merged.EndAt = l.EndAt
	merged.IsWishlisted = merged.IsWishlisted || l.IsWishlisted
	merged.IsDLC = merged.IsDLC || l.IsDLC
	merged.IsEntered = merged.IsEntered || l.IsEntered
	if merged.GameID == "" {
		merged.GameID = l.GameID
	}

	changed := merged.PointCost != current.PointCost ||
		merged.Copies != current.Copies ||
		merged.EntryCount != current.EntryCount ||
		!equalTimePtr(merged.EndAt, current.EndAt) ||
		merged.IsEntered != current.IsEntered ||
		merged.GameName != current.GameName
	if changed {
		merged.UpdatedAt = l.UpdatedAt
	}

	r.items[l.Code] = merged
	return listing.UpsertResult{Changed: changed}, nil
}

func (r *ListingRepository) GetByCode(_ context.Context, code string) (listing.Listing, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[code]
	if !ok {
		return listing.Listing{}, false, nil
	}
	return item, true, nil
}

func (r *ListingRepository) List(_ context.Context, f listing.Filter) ([]listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]listing.Listing, 0, len(r.orders))
	for _, code := range r.orders {
		item := r.items[code]
		if f.Entered != nil && item.IsEntered != *f.Entered {
			continue
		}
		if f.Safety != "" && item.SafetyVerdict != f.Safety {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(item.GameName), query) {
			continue
		}
		out = append(out, item)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (r *ListingRepository) ListCandidates(_ context.Context, now time.Time, limit int) ([]listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]listing.Listing, 0, 32)
	for _, code := range r.orders {
		item := r.items[code]
		if item.IsEntered || item.IsHidden || item.IsExpired(now) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PointCost < out[j].PointCost })
	return out, nil
}

func (r *ListingRepository) ListUnchecked(_ context.Context, now time.Time, limit int) ([]listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]listing.Listing, 0, 8)
	for _, code := range r.orders {
		item := r.items[code]
		if item.SafetyVerdict != listing.VerdictUnknown {
			continue
		}
		if item.IsHidden || item.IsExpired(now) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *ListingRepository) SetEntered(_ context.Context, code string, entered bool) error {
	return r.mutate(code, func(item *listing.Listing) {
		item.IsEntered = entered
	})
}

func (r *ListingRepository) SetWon(_ context.Context, code string, wonAt time.Time) error {
	return r.mutate(code, func(item *listing.Listing) {
		item.IsWon = true
		item.IsEntered = true
		item.WonAt = &wonAt
	})
}

func (r *ListingRepository) SetHidden(_ context.Context, code string, hidden bool) error {
	return r.mutate(code, func(item *listing.Listing) {
		item.IsHidden = hidden
	})
}

func (r *ListingRepository) SetSafety(_ context.Context, code string, verdict listing.Verdict, score int) error {
	return r.mutate(code, func(item *listing.Listing) {
		item.SafetyVerdict = verdict
		item.SafetyScore = &score
	})
}

func (r *ListingRepository) mutate(code string, apply func(*listing.Listing)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[code]
	if !ok {
		return nil
	}
	apply(&item)
	item.UpdatedAt = time.Now().UTC()
	r.items[code] = item
	return nil
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
