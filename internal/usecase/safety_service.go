package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/domain/safety"
	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
)

const (
	defaultRescoreWorkers = 4
	maxRescoreWorkers     = 16
	rescorePoolLimit      = 1000
)

type SafetyService struct {
	listings     listing.Repository
	descriptions DescriptionFetcher
	hider        ListingHider
	bus          *events.Bus
	logger       *logging.Logger
	now          func() time.Time
}

func NewSafetyService(
	listings listing.Repository,
	descriptions DescriptionFetcher,
	hider ListingHider,
	bus *events.Bus,
	logger *logging.Logger,
) *SafetyService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SafetyService{
		listings:     listings,
		descriptions: descriptions,
		hider:        hider,
		bus:          bus,
		logger:       logger,
		now:          time.Now,
	}
}

// CheckNext evaluates at most one unchecked, still-open listing. A fetch
// failure marks the listing borderline so it leaves the unchecked queue
// instead of being retried forever.
func (s *SafetyService) CheckNext(ctx context.Context, cfg settings.Settings) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SafetyService.CheckNext")
	defer span.End()

	if !cfg.SafetyCheckEnabled {
		return nil
	}

	pool, err := s.listings.ListUnchecked(ctx, s.now().UTC(), 1)
	if err != nil {
		return fmt.Errorf("list unchecked listings: %w", err)
	}
	if len(pool) == 0 {
		return nil
	}

	return s.evaluateOne(ctx, pool[0], cfg.AutoHideUnsafe)
}

// RescoreResult is one row of a bulk rescore.
type RescoreResult struct {
	Code    string          `json:"code"`
	Verdict listing.Verdict `json:"verdict,omitempty"`
	Score   int             `json:"score"`
	Error   string          `json:"error,omitempty"`
}

// RescoreAll re-evaluates every known listing over a bounded worker pool.
func (s *SafetyService) RescoreAll(ctx context.Context, maxWorkers int) ([]RescoreResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SafetyService.RescoreAll")
	defer span.End()

	if maxWorkers <= 0 {
		maxWorkers = defaultRescoreWorkers
	}
	if maxWorkers > maxRescoreWorkers {
		maxWorkers = maxRescoreWorkers
	}

	items, err := s.listings.List(ctx, listing.Filter{Limit: rescorePoolLimit})
	if err != nil {
		return nil, fmt.Errorf("list listings for rescore: %w", err)
	}
	if len(items) == 0 {
		return []RescoreResult{}, nil
	}

	pool, err := ants.NewPool(maxWorkers)
	if err != nil {
		return nil, fmt.Errorf("create rescore pool: %w", err)
	}
	defer pool.Release()

	results := make(chan RescoreResult, len(items))
	var flagged atomic.Int32
	var wg sync.WaitGroup

	for _, item := range items {
		item := item
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			row := RescoreResult{Code: item.Code}
			desc, fetchErr := s.descriptions.FetchListingDescription(ctx, item.Code)
			if fetchErr != nil {
				row.Verdict = listing.VerdictSafe
				row.Score = safety.BorderlineScore
				row.Error = fetchErr.Error()
			} else {
				eval := safety.Evaluate(desc)
				row.Verdict = eval.Verdict
				row.Score = eval.Score
			}

			if setErr := s.listings.SetSafety(ctx, item.Code, row.Verdict, row.Score); setErr != nil {
				row.Error = setErr.Error()
			}
			if row.Verdict == listing.VerdictUnsafe {
				flagged.Add(1)
			}
			results <- row
		})
		if submitErr != nil {
			wg.Done()
			results <- RescoreResult{Code: item.Code, Error: submitErr.Error()}
		}
	}

	wg.Wait()
	close(results)

	out := make([]RescoreResult, 0, len(items))
	for row := range results {
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })

	s.logger.InfoContext(ctx, "bulk rescore complete",
		"listings", len(out),
		"flagged", flagged.Load(),
	)
	return out, nil
}

func (s *SafetyService) evaluateOne(ctx context.Context, item listing.Listing, autoHide bool) error {
	desc, err := s.descriptions.FetchListingDescription(ctx, item.Code)
	if err != nil {
		s.logger.WarnContext(ctx, "description fetch failed, marking borderline",
			"code", item.Code,
			"error", err,
		)
		if setErr := s.listings.SetSafety(ctx, item.Code, listing.VerdictSafe, safety.BorderlineScore); setErr != nil {
			return fmt.Errorf("store borderline verdict code=%s: %w", item.Code, setErr)
		}
		return nil
	}

	eval := safety.Evaluate(desc)
	if err := s.listings.SetSafety(ctx, item.Code, eval.Verdict, eval.Score); err != nil {
		return fmt.Errorf("store safety verdict code=%s: %w", item.Code, err)
	}
	if eval.Verdict != listing.VerdictUnsafe {
		return nil
	}

	if s.bus != nil {
		s.bus.Publish(events.TypeSafetyFlagged, map[string]any{
			"listingCode": item.Code,
			"score":       eval.Score,
			"signals":     eval.MatchedSignals,
		})
	}
	s.logger.WarnContext(ctx, "listing flagged unsafe",
		"code", item.Code,
		"score", eval.Score,
		"signals", eval.MatchedSignals,
	)

	if !autoHide || s.hider == nil || item.GameID == "" {
		return nil
	}
	if err := s.hider.HideListing(ctx, item.GameID); err != nil {
		s.logger.WarnContext(ctx, "auto-hide failed", "code", item.Code, "error", err)
		return nil
	}
	if err := s.listings.SetHidden(ctx, item.Code, true); err != nil {
		return fmt.Errorf("store hidden flag code=%s: %w", item.Code, err)
	}
	return nil
}
