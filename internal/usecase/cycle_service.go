package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/cycle"
	"github.com/riskibarqy/gifthawk/internal/domain/entry"
	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/id"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
)

// CycleService orchestrates one full automation cycle: scans, remote syncs,
// then entry processing, sequentially, under a settings snapshot taken at
// cycle start. At most one cycle runs at a time; a concurrent trigger gets a
// skipped run back instead of blocking.
type CycleService struct {
	settingsSvc *SettingsService
	accountSvc  *AccountService
	scanSvc     *ScanService
	entrySvc    *EntryService
	listings    listing.Repository
	wins        WinsFetcher
	entered     EnteredFetcher
	bus         *events.Bus
	logger      *logging.Logger
	ids         id.Generator
	now         func() time.Time

	runMu sync.Mutex

	lastMu  sync.RWMutex
	lastRun *cycle.Run
}

func NewCycleService(
	settingsSvc *SettingsService,
	accountSvc *AccountService,
	scanSvc *ScanService,
	entrySvc *EntryService,
	listings listing.Repository,
	wins WinsFetcher,
	entered EnteredFetcher,
	bus *events.Bus,
	logger *logging.Logger,
	ids id.Generator,
) *CycleService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	return &CycleService{
		settingsSvc: settingsSvc,
		accountSvc:  accountSvc,
		scanSvc:     scanSvc,
		entrySvc:    entrySvc,
		listings:    listings,
		wins:        wins,
		entered:     entered,
		bus:         bus,
		logger:      logger,
		ids:         ids,
		now:         time.Now,
	}
}

// TriggerFullCycle runs one cycle, or returns a skipped run immediately when
// one is already in flight.
func (s *CycleService) TriggerFullCycle(ctx context.Context) (cycle.Run, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CycleService.TriggerFullCycle")
	defer span.End()

	if !s.runMu.TryLock() {
		return cycle.Run{
			StartedAt: s.now().UTC(),
			Skipped:   true,
			Reason:    cycle.SkipReasonAlreadyRunning,
		}, nil
	}
	defer s.runMu.Unlock()

	run := s.execute(ctx)
	s.storeLastRun(run)
	s.publishCompleted(run)
	return run, nil
}

// TriggerScan runs only the scan phase, coalescing with an in-flight cycle.
func (s *CycleService) TriggerScan(ctx context.Context, pages int) (cycle.PhaseResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CycleService.TriggerScan")
	defer span.End()

	if !s.runMu.TryLock() {
		return cycle.PhaseResult{Phase: cycle.PhaseScan, Skipped: true, Reason: cycle.SkipReasonAlreadyRunning}, nil
	}
	defer s.runMu.Unlock()

	cfg, err := s.settingsSvc.Snapshot(ctx)
	if err != nil {
		return cycle.PhaseResult{}, fmt.Errorf("read settings: %w", err)
	}
	if !cfg.Authenticated() {
		return cycle.PhaseResult{Phase: cycle.PhaseScan, Skipped: true, Reason: cycle.SkipReasonNotAuthenticated}, nil
	}

	stats, err := s.scanSvc.Scan(ctx, cfg, ScanFilters{}, pages)
	result := cycle.PhaseResult{Phase: cycle.PhaseScan, Scan: &stats}
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}

// TriggerEntryProcessing runs only the entry phase, coalescing with an
// in-flight cycle.
func (s *CycleService) TriggerEntryProcessing(ctx context.Context) (cycle.PhaseResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CycleService.TriggerEntryProcessing")
	defer span.End()

	if !s.runMu.TryLock() {
		return cycle.PhaseResult{Phase: cycle.PhaseEntry, Skipped: true, Reason: cycle.SkipReasonAlreadyRunning}, nil
	}
	defer s.runMu.Unlock()

	cfg, err := s.settingsSvc.Snapshot(ctx)
	if err != nil {
		return cycle.PhaseResult{}, fmt.Errorf("read settings: %w", err)
	}
	if !cfg.Authenticated() {
		return cycle.PhaseResult{Phase: cycle.PhaseEntry, Skipped: true, Reason: cycle.SkipReasonNotAuthenticated}, nil
	}
	if !cfg.AutomationEnabled {
		return cycle.PhaseResult{Phase: cycle.PhaseEntry, Skipped: true, Reason: cycle.SkipReasonAutomationDisabled}, nil
	}

	stats, err := s.entrySvc.ProcessCandidates(ctx, cfg)
	result := cycle.PhaseResult{Phase: cycle.PhaseEntry, Entry: &stats}
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}

// TriggerManualEntry enters one listing on operator request under the run
// lock, so it cannot race the balance accounting of an in-flight cycle. A
// concurrent cycle rejects the entry instead of queueing it.
func (s *CycleService) TriggerManualEntry(ctx context.Context, code string) (entry.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CycleService.TriggerManualEntry")
	defer span.End()

	if !s.runMu.TryLock() {
		return entry.Entry{}, fmt.Errorf("%w: a cycle is processing entries", ErrCycleInFlight)
	}
	defer s.runMu.Unlock()

	cfg, err := s.settingsSvc.Snapshot(ctx)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("read settings: %w", err)
	}

	return s.entrySvc.EnterSingle(ctx, cfg, code)
}

// LastRun returns the most recent completed run, if any.
func (s *CycleService) LastRun() (cycle.Run, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.lastRun == nil {
		return cycle.Run{}, false
	}
	return *s.lastRun, true
}

func (s *CycleService) execute(ctx context.Context) cycle.Run {
	runID, err := s.ids.NewID()
	if err != nil {
		runID = fmt.Sprintf("run-%d", s.now().UnixNano())
	}
	run := cycle.Run{ID: runID, StartedAt: s.now().UTC()}

	finish := func(r cycle.Run) cycle.Run {
		endedAt := s.now().UTC()
		r.EndedAt = &endedAt
		return r
	}

	cfg, err := s.settingsSvc.Snapshot(ctx)
	if err != nil {
		run.Skipped = true
		run.Reason = fmt.Sprintf("read settings: %v", err)
		return finish(run)
	}

	if !cfg.Authenticated() {
		run.Skipped = true
		run.Reason = cycle.SkipReasonNotAuthenticated
		s.publish(events.TypeSessionInvalid, map[string]any{"reason": cycle.SkipReasonNotAuthenticated})
		return finish(run)
	}

	// The refresh corrects the predicted balance and tells us whether remote
	// phases are worth attempting at all.
	state, err := s.accountSvc.Refresh(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "account refresh failed, continuing with stored state", "error", err)
		state, err = s.accountSvc.Get(ctx)
		if err != nil {
			run.Skipped = true
			run.Reason = fmt.Sprintf("read account state: %v", err)
			return finish(run)
		}
	}
	if !state.SessionValid {
		run.Skipped = true
		run.Reason = cycle.SkipReasonSessionInvalid
		s.publish(events.TypeSessionInvalid, map[string]any{"reason": cycle.SkipReasonSessionInvalid})
		return finish(run)
	}

	run.Phases = append(run.Phases, s.scanPhase(ctx, cfg, cycle.PhaseScan, ScanFilters{}, cfg.MaxScanPages))
	run.Phases = append(run.Phases, s.scanPhase(ctx, cfg, cycle.PhaseWishlist, ScanFilters{Wishlist: true}, 1))

	if cfg.EnterDLC {
		run.Phases = append(run.Phases, s.scanPhase(ctx, cfg, cycle.PhaseDLC, ScanFilters{DLC: true}, 1))
	} else {
		run.Phases = append(run.Phases, cycle.PhaseResult{
			Phase:   cycle.PhaseDLC,
			Skipped: true,
			Reason:  cycle.SkipReasonDLCDisabled,
		})
	}

	run.Phases = append(run.Phases, s.winSyncPhase(ctx))
	run.Phases = append(run.Phases, s.enteredSyncPhase(ctx))

	if cfg.AutomationEnabled {
		run.Phases = append(run.Phases, s.entryPhase(ctx, cfg))
	} else {
		run.Phases = append(run.Phases, cycle.PhaseResult{
			Phase:   cycle.PhaseEntry,
			Skipped: true,
			Reason:  cycle.SkipReasonAutomationDisabled,
		})
	}

	s.logger.InfoContext(ctx, "cycle finished", "run_id", run.ID, "phases", len(run.Phases))
	return finish(run)
}

func (s *CycleService) scanPhase(ctx context.Context, cfg settings.Settings, phase string, filters ScanFilters, pages int) cycle.PhaseResult {
	stats, err := s.scanSvc.Scan(ctx, cfg, filters, pages)
	result := cycle.PhaseResult{Phase: phase, Scan: &stats}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func (s *CycleService) winSyncPhase(ctx context.Context) cycle.PhaseResult {
	result := cycle.PhaseResult{Phase: cycle.PhaseWinSync}

	codes, err := s.wins.FetchWonListings(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	stats := cycle.SyncStats{Checked: len(codes)}
	wonAt := s.now().UTC()
	for _, code := range codes {
		item, found, err := s.listings.GetByCode(ctx, code)
		if err != nil {
			result.Error = err.Error()
			break
		}
		if !found || item.IsWon {
			continue
		}
		if err := s.listings.SetWon(ctx, code, wonAt); err != nil {
			result.Error = err.Error()
			break
		}
		stats.Marked++
	}
	result.Sync = &stats
	return result
}

func (s *CycleService) enteredSyncPhase(ctx context.Context) cycle.PhaseResult {
	result := cycle.PhaseResult{Phase: cycle.PhaseEnteredSync}

	codes, err := s.entered.FetchEnteredListings(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	stats := cycle.SyncStats{Checked: len(codes)}
	for _, code := range codes {
		item, found, err := s.listings.GetByCode(ctx, code)
		if err != nil {
			result.Error = err.Error()
			break
		}
		if !found || item.IsEntered {
			continue
		}
		if err := s.listings.SetEntered(ctx, code, true); err != nil {
			result.Error = err.Error()
			break
		}
		stats.Marked++
	}
	result.Sync = &stats
	return result
}

func (s *CycleService) entryPhase(ctx context.Context, cfg settings.Settings) cycle.PhaseResult {
	stats, err := s.entrySvc.ProcessCandidates(ctx, cfg)
	result := cycle.PhaseResult{Phase: cycle.PhaseEntry, Entry: &stats}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func (s *CycleService) storeLastRun(run cycle.Run) {
	s.lastMu.Lock()
	s.lastRun = &run
	s.lastMu.Unlock()
}

func (s *CycleService) publishCompleted(run cycle.Run) {
	data := map[string]any{
		"runId":   run.ID,
		"skipped": run.Skipped,
	}
	if run.Reason != "" {
		data["reason"] = run.Reason
	}
	if len(run.Phases) > 0 {
		data["phases"] = len(run.Phases)
	}
	s.publish(events.TypeCycleCompleted, data)
}

func (s *CycleService) publish(t events.Type, data map[string]any) {
	if s.bus != nil {
		s.bus.Publish(t, data)
	}
}
