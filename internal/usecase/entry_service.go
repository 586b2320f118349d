package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
	"github.com/riskibarqy/gifthawk/internal/domain/autoenter"
	"github.com/riskibarqy/gifthawk/internal/domain/cycle"
	"github.com/riskibarqy/gifthawk/internal/domain/entry"
	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/id"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
	"github.com/riskibarqy/gifthawk/internal/platform/pacing"
)

const (
	candidatePoolLimit        = 200
	defaultMaxEntriesPerCycle = 10
)

type EntryService struct {
	listings  listing.Repository
	entries   entry.Repository
	accounts  account.Repository
	submitter EntrySubmitter
	bus       *events.Bus
	logger    *logging.Logger
	ids       id.Generator
	now       func() time.Time
	newPacer  func(min, max time.Duration, maxActions int) *pacing.Pacer
}

func NewEntryService(
	listings listing.Repository,
	entries entry.Repository,
	accounts account.Repository,
	submitter EntrySubmitter,
	bus *events.Bus,
	logger *logging.Logger,
	ids id.Generator,
) *EntryService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	return &EntryService{
		listings:  listings,
		entries:   entries,
		accounts:  accounts,
		submitter: submitter,
		bus:       bus,
		logger:    logger,
		ids:       ids,
		now:       time.Now,
		newPacer:  pacing.New,
	}
}

// ProcessCandidates runs one entry batch: filter, order, then submit strictly
// one at a time through the pacer. The account balance is decremented in
// memory after every success and the point floor re-checked before every
// submission, so a batch can never spend below the configured reserve.
func (s *EntryService) ProcessCandidates(ctx context.Context, cfg settings.Settings) (cycle.EntryStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EntryService.ProcessCandidates")
	defer span.End()

	stats := cycle.EntryStats{}
	now := s.now().UTC()

	state, err := s.accounts.Read(ctx)
	if err != nil {
		return stats, fmt.Errorf("read account state: %w", err)
	}

	pool, err := s.listings.ListCandidates(ctx, now, candidatePoolLimit)
	if err != nil {
		return stats, fmt.Errorf("list candidates: %w", err)
	}

	eligible := make([]listing.Listing, 0, len(pool))
	for _, item := range pool {
		decision := autoenter.Evaluate(item, state.CurrentPoints, cfg, now)
		switch {
		case decision.Eligible:
			eligible = append(eligible, item)
		case decision.Deferred:
			// Left for the safety worker; next cycle sees a settled verdict.
			s.logger.DebugContext(ctx, "candidate deferred", "code", item.Code, "reason", decision.Reason)
		default:
			s.logger.DebugContext(ctx, "candidate rejected", "code", item.Code, "reason", decision.Reason)
		}
	}
	stats.Eligible = len(eligible)
	if len(eligible) == 0 {
		return stats, nil
	}

	autoenter.OrderCandidates(eligible)

	maxEntries := defaultMaxEntriesPerCycle
	if cfg.MaxEntriesPerCycle != nil {
		maxEntries = *cfg.MaxEntriesPerCycle
	}
	delayMin, delayMax := cfg.EntryDelayBounds()
	pacer := s.newPacer(delayMin, delayMax, maxEntries)

	points := state.CurrentPoints
	for _, item := range eligible {
		// Earlier iterations have already spent points; the floor must hold
		// after every submission, not just at batch end.
		if !autoenter.FitsPointFloor(item.PointCost, points, cfg.StopAtPoints) {
			s.logger.DebugContext(ctx, "candidate skipped", "code", item.Code, "reason", autoenter.ReasonWouldBreachFloor)
			continue
		}

		if err := pacer.Next(ctx); err != nil {
			if errors.Is(err, pacing.ErrBudgetExhausted) {
				break
			}
			return stats, err
		}

		kind := entry.KindAuto
		if item.IsWishlisted {
			kind = entry.KindWishlist
		}

		submitted, err := s.submitOne(ctx, item, kind, points)
		if err != nil {
			stats.Failed++
			s.logger.WarnContext(ctx, "entry submission errored", "code", item.Code, "error", err)
			continue
		}
		if submitted.Outcome != entry.OutcomeSuccess {
			stats.Failed++
			continue
		}

		points -= item.PointCost
		stats.Entered++
		stats.PointsSpent += item.PointCost

		state.CurrentPoints = points
		if err := s.accounts.Write(ctx, state); err != nil {
			return stats, fmt.Errorf("store account state: %w", err)
		}
	}

	return stats, nil
}

// EnterSingle enters one listing by code on operator request, bypassing the
// threshold rules but never the point floor.
func (s *EntryService) EnterSingle(ctx context.Context, cfg settings.Settings, code string) (entry.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EntryService.EnterSingle")
	defer span.End()

	if code == "" {
		return entry.Entry{}, fmt.Errorf("%w: listing code is required", ErrInvalidInput)
	}

	item, found, err := s.listings.GetByCode(ctx, code)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("get listing code=%s: %w", code, err)
	}
	if !found {
		return entry.Entry{}, fmt.Errorf("%w: listing code=%s", ErrNotFound, code)
	}
	if item.IsEntered {
		return entry.Entry{}, fmt.Errorf("%w: listing already entered", ErrInvalidInput)
	}
	if item.IsExpired(s.now().UTC()) {
		return entry.Entry{}, fmt.Errorf("%w: listing expired", ErrInvalidInput)
	}

	state, err := s.accounts.Read(ctx)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("read account state: %w", err)
	}
	if state.CurrentPoints < item.PointCost {
		return entry.Entry{}, fmt.Errorf("%w: insufficient points", ErrInvalidInput)
	}
	if !autoenter.FitsPointFloor(item.PointCost, state.CurrentPoints, cfg.StopAtPoints) {
		return entry.Entry{}, fmt.Errorf("%w: entry would spend below the point floor of %d", ErrInvalidInput, cfg.StopAtPoints)
	}

	submitted, err := s.submitOne(ctx, item, entry.KindManual, state.CurrentPoints)
	if err != nil {
		return entry.Entry{}, err
	}

	if submitted.Outcome == entry.OutcomeSuccess {
		state.CurrentPoints -= item.PointCost
		if err := s.accounts.Write(ctx, state); err != nil {
			return submitted, fmt.Errorf("store account state: %w", err)
		}
	}
	return submitted, nil
}

// ReverseEntry deletes the entry record, restores its points locally, and
// clears the listing's entered flag. The remote entry is left alone; the next
// scan re-marks the listing if the site still shows it entered.
func (s *EntryService) ReverseEntry(ctx context.Context, entryID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.EntryService.ReverseEntry")
	defer span.End()

	if entryID == "" {
		return fmt.Errorf("%w: entry id is required", ErrInvalidInput)
	}

	item, found, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get entry id=%s: %w", entryID, err)
	}
	if !found {
		return fmt.Errorf("%w: entry id=%s", ErrNotFound, entryID)
	}

	if err := s.entries.Delete(ctx, entryID); err != nil {
		return fmt.Errorf("delete entry id=%s: %w", entryID, err)
	}

	if item.Outcome == entry.OutcomeSuccess {
		state, err := s.accounts.Read(ctx)
		if err != nil {
			return fmt.Errorf("read account state: %w", err)
		}
		state.CurrentPoints += item.PointsSpent
		if err := s.accounts.Write(ctx, state); err != nil {
			return fmt.Errorf("store account state: %w", err)
		}
		if err := s.listings.SetEntered(ctx, item.ListingCode, false); err != nil {
			return fmt.Errorf("clear entered flag code=%s: %w", item.ListingCode, err)
		}
	}
	return nil
}

func (s *EntryService) ListRecent(ctx context.Context, limit int) ([]entry.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EntryService.ListRecent")
	defer span.End()

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.entries.ListRecent(ctx, limit)
}

func (s *EntryService) submitOne(ctx context.Context, item listing.Listing, kind entry.Kind, pointsBefore int) (entry.Entry, error) {
	outcome, err := s.submitter.SubmitEntry(ctx, item.Code)
	if err != nil {
		// Record the transport failure too, so the operator sees the attempt.
		s.recordEntry(ctx, item, kind, entry.OutcomeFailed, 0, err.Error())
		s.publish(events.TypeEntryFailure, map[string]any{
			"listingCode": item.Code,
			"reason":      err.Error(),
		})
		return entry.Entry{}, fmt.Errorf("submit entry code=%s: %w", item.Code, err)
	}

	if !outcome.Success {
		rec := s.recordEntry(ctx, item, kind, entry.OutcomeFailed, 0, outcome.Reason)
		s.publish(events.TypeEntryFailure, map[string]any{
			"listingCode": item.Code,
			"reason":      outcome.Reason,
		})
		return rec, nil
	}

	rec := s.recordEntry(ctx, item, kind, entry.OutcomeSuccess, item.PointCost, "")
	if err := s.listings.SetEntered(ctx, item.Code, true); err != nil {
		return rec, fmt.Errorf("mark listing entered code=%s: %w", item.Code, err)
	}
	s.publish(events.TypeEntrySuccess, map[string]any{
		"listingCode": item.Code,
		"pointsSpent": item.PointCost,
	})
	s.logger.InfoContext(ctx, "entry submitted",
		"code", item.Code,
		"game", item.GameName,
		"cost", item.PointCost,
		"points_before", pointsBefore,
	)
	return rec, nil
}

func (s *EntryService) recordEntry(ctx context.Context, item listing.Listing, kind entry.Kind, outcome entry.Outcome, spent int, reason string) entry.Entry {
	entryID, err := s.ids.NewID()
	if err != nil {
		s.logger.WarnContext(ctx, "generate entry id failed", "error", err)
		entryID = fmt.Sprintf("entry-%d", s.now().UnixNano())
	}

	rec := entry.Entry{
		ID:          entryID,
		ListingCode: item.Code,
		GameName:    item.GameName,
		PointsSpent: spent,
		Kind:        kind,
		Outcome:     outcome,
		ErrorReason: reason,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.entries.Insert(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "store entry record failed", "code", item.Code, "error", err)
	}
	return rec
}

func (s *EntryService) publish(t events.Type, data map[string]any) {
	if s.bus != nil {
		s.bus.Publish(t, data)
	}
}
