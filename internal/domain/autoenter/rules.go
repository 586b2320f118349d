// Package autoenter decides whether a listing is worth entering under the
// configured points economy. Pure: no I/O, no clock reads.
package autoenter

import (
	"sort"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/domain/settings"
)

// Rejection reasons, first failing rule wins.
const (
	ReasonExpired             = "expired"
	ReasonAlreadyEntered      = "already entered"
	ReasonHidden              = "hidden"
	ReasonBelowStartThreshold = "points below start threshold"
	ReasonWouldBreachFloor    = "would breach point floor"
	ReasonBelowMinPrice       = "below minimum price"
	ReasonDLCDisabled         = "dlc entry disabled"
	ReasonLowReviewScore      = "review score below threshold"
	ReasonLowReviewCount      = "review count below threshold"
	ReasonTooOld              = "game older than configured maximum"
	ReasonUnsafe              = "flagged unsafe"
	ReasonSafetyPending       = "safety verdict pending"
)

// Decision is the rule engine's verdict for one listing. Deferred means the
// listing is not rejected but needs a safety evaluation before it can pass.
type Decision struct {
	Eligible bool
	Deferred bool
	Reason   string
}

func reject(reason string) Decision { return Decision{Reason: reason} }

// Evaluate runs the rules in order, short-circuiting on the first failure.
// Missing game metadata (review score/count, release date) passes through.
func Evaluate(l listing.Listing, currentPoints int, cfg settings.Settings, now time.Time) Decision {
	if l.IsExpired(now) {
		return reject(ReasonExpired)
	}
	if l.IsEntered {
		return reject(ReasonAlreadyEntered)
	}
	if l.IsHidden {
		return reject(ReasonHidden)
	}

	if currentPoints < cfg.StartAtPoints {
		return reject(ReasonBelowStartThreshold)
	}
	if !FitsPointFloor(l.PointCost, currentPoints, cfg.StopAtPoints) {
		return reject(ReasonWouldBreachFloor)
	}

	if l.PointCost < cfg.MinPointPrice {
		return reject(ReasonBelowMinPrice)
	}

	if l.IsDLC && !cfg.EnterDLC {
		return reject(ReasonDLCDisabled)
	}

	if l.ReviewScore != nil && *l.ReviewScore < cfg.MinReviewScore {
		return reject(ReasonLowReviewScore)
	}
	if l.ReviewCount != nil && *l.ReviewCount < cfg.MinReviewCount {
		return reject(ReasonLowReviewCount)
	}
	if cfg.MaxGameAgeYears != nil && l.ReleasedAt != nil {
		cutoff := now.AddDate(-*cfg.MaxGameAgeYears, 0, 0)
		if l.ReleasedAt.Before(cutoff) {
			return reject(ReasonTooOld)
		}
	}

	if cfg.SafetyCheckEnabled {
		switch l.SafetyVerdict {
		case listing.VerdictUnsafe:
			return reject(ReasonUnsafe)
		case listing.VerdictUnknown:
			return Decision{Deferred: true, Reason: ReasonSafetyPending}
		}
	}

	return Decision{Eligible: true}
}

// FitsPointFloor reports whether spending cost keeps the balance at or above
// the configured reserve. Re-checked before every submission because earlier
// entries in the same batch have already spent points.
func FitsPointFloor(cost, currentPoints, stopAt int) bool {
	return currentPoints-cost >= stopAt
}

// OrderCandidates sorts cheapest first, then soonest-expiring; listings
// without a deadline sort last within a price tier.
func OrderCandidates(items []listing.Listing) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].PointCost != items[j].PointCost {
			return items[i].PointCost < items[j].PointCost
		}
		a, b := items[i].EndAt, items[j].EndAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
