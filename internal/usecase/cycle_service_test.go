package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
	"github.com/riskibarqy/gifthawk/internal/domain/cycle"
	"github.com/riskibarqy/gifthawk/internal/domain/entry"
	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
)

type fakeAccountFetcher struct {
	state account.State
	err   error
}

func (f *fakeAccountFetcher) FetchAccountState(_ context.Context) (account.State, error) {
	if f.err != nil {
		return account.State{}, f.err
	}
	return f.state, nil
}

type fakeCodesFetcher struct {
	codes []string
	block chan struct{}
}

func (f *fakeCodesFetcher) FetchWonListings(_ context.Context) ([]string, error) {
	if f.block != nil {
		<-f.block
	}
	return f.codes, nil
}

func (f *fakeCodesFetcher) FetchEnteredListings(_ context.Context) ([]string, error) {
	return f.codes, nil
}

type cycleFixture struct {
	svc       *CycleService
	listings  *memory.ListingRepository
	accounts  *memory.AccountRepository
	settings  *memory.SettingsRepository
	source    *fakeListingSource
	submitter *fakeSubmitter
	wins      *fakeCodesFetcher
}

func newCycleFixture(t *testing.T, cfg settings.Settings, remotePoints int) cycleFixture {
	t.Helper()

	listings := memory.NewListingRepository()
	entries := memory.NewEntryRepository()
	accounts := memory.NewAccountRepository()
	settingsRepo := memory.NewSettingsRepository()
	if err := settingsRepo.Write(t.Context(), cfg); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	source := &fakeListingSource{pages: map[int][]listing.Listing{}}
	submitter := &fakeSubmitter{outcomes: map[string]EntryOutcome{}}
	fetcher := &fakeAccountFetcher{state: account.State{CurrentPoints: remotePoints, SessionValid: true}}
	wins := &fakeCodesFetcher{}

	logger := logging.NewNop()
	settingsSvc := NewSettingsService(settingsRepo, nil)
	accountSvc := NewAccountService(accounts, fetcher, nil, logger)
	scanSvc := NewScanService(listings, source, nil, logger)
	scanSvc.newPacer = immediatePacer
	entrySvc := NewEntryService(listings, entries, accounts, submitter, nil, logger, nil)
	entrySvc.newPacer = immediatePacer

	svc := NewCycleService(settingsSvc, accountSvc, scanSvc, entrySvc, listings, wins, wins, nil, logger, nil)
	return cycleFixture{
		svc:       svc,
		listings:  listings,
		accounts:  accounts,
		settings:  settingsRepo,
		source:    source,
		submitter: submitter,
		wins:      wins,
	}
}

func authedSettings() settings.Settings {
	cfg := settings.Defaults()
	cfg.SessionID = "abc123session"
	cfg.AutomationEnabled = true
	cfg.StartAtPoints = 150
	cfg.StopAtPoints = 100
	cfg.MaxScanPages = 1
	return cfg
}

func TestCycleSkipsWhenNotAuthenticated(t *testing.T) {
	cfg := settings.Defaults()
	cfg.SessionID = ""
	f := newCycleFixture(t, cfg, 200)

	run, err := f.svc.TriggerFullCycle(t.Context())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !run.Skipped || run.Reason != cycle.SkipReasonNotAuthenticated {
		t.Fatalf("run = %+v, want skip %q", run, cycle.SkipReasonNotAuthenticated)
	}
	if len(f.source.called) != 0 {
		t.Fatal("scan ran despite missing session")
	}
}

func TestCycleSkipsRemotePhasesOnInvalidSession(t *testing.T) {
	f := newCycleFixture(t, authedSettings(), 200)
	fetcher := &fakeAccountFetcher{state: account.State{SessionValid: false}}
	f.svc.accountSvc = NewAccountService(f.accounts, fetcher, nil, logging.NewNop())

	run, err := f.svc.TriggerFullCycle(t.Context())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !run.Skipped || run.Reason != cycle.SkipReasonSessionInvalid {
		t.Fatalf("run = %+v, want session-invalid skip", run)
	}
}

func TestCycleRunsAllPhases(t *testing.T) {
	f := newCycleFixture(t, authedSettings(), 500)
	f.source.pages[1] = []listing.Listing{pageListing("abc", 30)}

	run, err := f.svc.TriggerFullCycle(t.Context())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if run.Skipped {
		t.Fatalf("run skipped: %s", run.Reason)
	}

	wantPhases := []string{
		cycle.PhaseScan,
		cycle.PhaseWishlist,
		cycle.PhaseDLC,
		cycle.PhaseWinSync,
		cycle.PhaseEnteredSync,
		cycle.PhaseEntry,
	}
	if len(run.Phases) != len(wantPhases) {
		t.Fatalf("phases = %d, want %d (%+v)", len(run.Phases), len(wantPhases), run.Phases)
	}
	for i, phase := range wantPhases {
		if run.Phases[i].Phase != phase {
			t.Fatalf("phase %d = %q, want %q", i, run.Phases[i].Phase, phase)
		}
	}

	// DLC scanning is off by default: its phase is skipped, not run.
	if !run.Phases[2].Skipped || run.Phases[2].Reason != cycle.SkipReasonDLCDisabled {
		t.Fatalf("dlc phase = %+v, want skipped", run.Phases[2])
	}

	if last, ok := f.svc.LastRun(); !ok || last.ID != run.ID {
		t.Fatalf("LastRun = %+v, want the completed run", last)
	}
}

func TestCycleEntryPhaseSkippedWhenAutomationDisabled(t *testing.T) {
	cfg := authedSettings()
	cfg.AutomationEnabled = false
	f := newCycleFixture(t, cfg, 500)

	run, err := f.svc.TriggerFullCycle(t.Context())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	entryPhase := run.Phases[len(run.Phases)-1]
	if entryPhase.Phase != cycle.PhaseEntry || !entryPhase.Skipped {
		t.Fatalf("entry phase = %+v, want skipped", entryPhase)
	}
	if entryPhase.Reason != cycle.SkipReasonAutomationDisabled {
		t.Fatalf("reason = %q, want %q", entryPhase.Reason, cycle.SkipReasonAutomationDisabled)
	}
	if len(f.submitter.codes) != 0 {
		t.Fatal("entries submitted despite automation disabled")
	}
}

func TestCycleWinSyncMarksWins(t *testing.T) {
	f := newCycleFixture(t, authedSettings(), 500)
	f.source.pages[1] = []listing.Listing{pageListing("winner", 30)}
	f.wins.codes = []string{"winner", "unseen"}

	run, err := f.svc.TriggerFullCycle(t.Context())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	var winPhase *cycle.PhaseResult
	for i := range run.Phases {
		if run.Phases[i].Phase == cycle.PhaseWinSync {
			winPhase = &run.Phases[i]
		}
	}
	if winPhase == nil || winPhase.Sync == nil {
		t.Fatalf("win sync phase missing: %+v", run.Phases)
	}
	if winPhase.Sync.Checked != 2 || winPhase.Sync.Marked != 1 {
		t.Fatalf("win sync = %+v, want checked 2 marked 1", winPhase.Sync)
	}

	item, _, _ := f.listings.GetByCode(t.Context(), "winner")
	if !item.IsWon || !item.IsEntered {
		t.Fatalf("winner listing = %+v, want won and entered", item)
	}
}

func TestTriggerManualEntryRejectedWhileCycleInFlight(t *testing.T) {
	f := newCycleFixture(t, authedSettings(), 500)

	item := pageListing("manual", 80)
	if _, err := f.listings.Upsert(t.Context(), item); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	if err := f.accounts.Write(t.Context(), account.State{CurrentPoints: 300, SessionValid: true}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	f.svc.runMu.Lock()
	_, err := f.svc.TriggerManualEntry(t.Context(), "manual")
	f.svc.runMu.Unlock()
	if !errors.Is(err, ErrCycleInFlight) {
		t.Fatalf("err = %v, want ErrCycleInFlight", err)
	}
	if len(f.submitter.codes) != 0 {
		t.Fatalf("submitted %v during the conflict, want nothing", f.submitter.codes)
	}

	rec, err := f.svc.TriggerManualEntry(t.Context(), "manual")
	if err != nil {
		t.Fatalf("manual entry after the cycle released the lock: %v", err)
	}
	if rec.Outcome != entry.OutcomeSuccess {
		t.Fatalf("record = %+v, want success", rec)
	}
}

func TestConcurrentTriggerIsCoalesced(t *testing.T) {
	f := newCycleFixture(t, authedSettings(), 500)
	f.wins.block = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.svc.TriggerFullCycle(context.WithoutCancel(t.Context()))
	}()

	// Wait for the first cycle to reach the blocking win sync.
	deadline := time.After(5 * time.Second)
	for {
		if !f.svc.runMu.TryLock() {
			break
		}
		f.svc.runMu.Unlock()
		select {
		case <-deadline:
			t.Fatal("first cycle never started")
		case <-time.After(time.Millisecond):
		}
	}

	run, err := f.svc.TriggerFullCycle(t.Context())
	if err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	if !run.Skipped || run.Reason != cycle.SkipReasonAlreadyRunning {
		t.Fatalf("second run = %+v, want coalesced skip", run)
	}

	close(f.wins.block)
	wg.Wait()
}
