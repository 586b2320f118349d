package usecase

import (
	"testing"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/cycle"
	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
)

func newSchedulerFixture(t *testing.T, cfg settings.Settings) (*SchedulerService, cycleFixture) {
	t.Helper()

	f := newCycleFixture(t, cfg, 500)
	settingsSvc := NewSettingsService(f.settings, nil)
	safetySvc := NewSafetyService(
		f.listings,
		&fakeDescriptionFetcher{descriptions: map[string]string{}},
		nil,
		nil,
		logging.NewNop(),
	)

	sched := NewSchedulerService(f.svc, safetySvc, settingsSvc, nil, logging.NewNop())
	sched.tickEvery = 2 * time.Millisecond
	t.Cleanup(func() { sched.Stop() })
	return sched, f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestSchedulerStartFiresFirstCycleImmediately(t *testing.T) {
	sched, f := newSchedulerFixture(t, authedSettings())

	status := sched.Start(t.Context())
	if status.State != SchedulerRunning {
		t.Fatalf("state = %q, want running", status.State)
	}
	if status.NextCycleAt == nil {
		t.Fatal("running scheduler has no next cycle time")
	}

	waitFor(t, "first cycle", func() bool {
		_, ok := f.svc.LastRun()
		return ok
	})

	// After the fire the timer must point into the future.
	waitFor(t, "re-armed timer", func() bool {
		s := sched.Status()
		return s.NextCycleAt != nil && s.NextCycleAt.After(time.Now().UTC())
	})
}

func TestSchedulerStartIsIdempotentWhileRunning(t *testing.T) {
	sched, _ := newSchedulerFixture(t, authedSettings())

	if first := sched.Start(t.Context()); first.State != SchedulerRunning {
		t.Fatalf("state after start = %q, want running", first.State)
	}
	if second := sched.Start(t.Context()); second.State != SchedulerRunning {
		t.Fatalf("state after double start = %q, want running", second.State)
	}
}

func TestSchedulerPauseKeepsTimersAndResumeRearms(t *testing.T) {
	sched, _ := newSchedulerFixture(t, authedSettings())

	sched.Start(t.Context())
	paused := sched.Pause()
	if paused.State != SchedulerPaused {
		t.Fatalf("state = %q, want paused", paused.State)
	}
	if paused.NextCycleAt == nil {
		t.Fatal("pause cleared the cycle timer")
	}

	resumed := sched.Resume(t.Context())
	if resumed.State != SchedulerRunning {
		t.Fatalf("state = %q, want running after resume", resumed.State)
	}
	if resumed.NextCycleAt == nil || !resumed.NextCycleAt.After(time.Now().UTC()) {
		t.Fatalf("nextCycleAt = %v, want recomputed into the future", resumed.NextCycleAt)
	}
}

func TestSchedulerStopWaitsForLoopAndClearsTimers(t *testing.T) {
	sched, _ := newSchedulerFixture(t, authedSettings())

	sched.Start(t.Context())
	stopped := sched.Stop()
	if stopped.State != SchedulerStopped {
		t.Fatalf("state = %q, want stopped", stopped.State)
	}
	if stopped.NextCycleAt != nil || stopped.NextSafetyCheckAt != nil {
		t.Fatalf("status = %+v, want cleared timers", stopped)
	}

	// Stopping again is safe.
	if again := sched.Stop(); again.State != SchedulerStopped {
		t.Fatalf("second stop state = %q, want stopped", again.State)
	}
}

func TestSchedulerPausedLoopDoesNotFire(t *testing.T) {
	sched, f := newSchedulerFixture(t, authedSettings())

	sched.Start(t.Context())
	waitFor(t, "first cycle", func() bool {
		_, ok := f.svc.LastRun()
		return ok
	})
	firstRun, _ := f.svc.LastRun()

	sched.Pause()

	// Force the cycle timer due while paused; the loop must not fire it.
	sched.mu.Lock()
	sched.nextCycleAt = time.Now().UTC().Add(-time.Minute)
	sched.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	current, _ := f.svc.LastRun()
	if current.ID != firstRun.ID {
		t.Fatalf("cycle fired while paused: %s -> %s", firstRun.ID, current.ID)
	}
}

func TestSchedulerPauseCancelsInFlightCycle(t *testing.T) {
	sched, f := newSchedulerFixture(t, authedSettings())

	// An eligible candidate the entry phase would submit if left running.
	item := pageListing("paced", 30)
	item.SafetyVerdict = listing.VerdictSafe
	if _, err := f.listings.Upsert(t.Context(), item); err != nil {
		t.Fatalf("seed listing: %v", err)
	}

	// Park the cycle in the win sync, before the entry phase.
	f.wins.block = make(chan struct{})

	sched.Start(t.Context())
	waitFor(t, "in-flight cycle", func() bool {
		if f.svc.runMu.TryLock() {
			f.svc.runMu.Unlock()
			return false
		}
		return true
	})

	sched.Pause()
	close(f.wins.block)

	waitFor(t, "cycle completion", func() bool {
		_, ok := f.svc.LastRun()
		return ok
	})

	if len(f.submitter.codes) != 0 {
		t.Fatalf("submitted %v after pause, want nothing", f.submitter.codes)
	}

	run, _ := f.svc.LastRun()
	entryPhase := run.Phases[len(run.Phases)-1]
	if entryPhase.Phase != cycle.PhaseEntry || entryPhase.Error == "" {
		t.Fatalf("entry phase = %+v, want aborted with an error", entryPhase)
	}
	if entryPhase.Entry == nil || entryPhase.Entry.Entered != 0 {
		t.Fatalf("entry stats = %+v, want zero entered", entryPhase.Entry)
	}
}

func TestSchedulerRunsSafetyChecksOnItsOwnTimer(t *testing.T) {
	cfg := authedSettings()
	cfg.ScanIntervalMinutes = 60
	sched, f := newSchedulerFixture(t, cfg)

	seedUnchecked(t, f.listings, "pending", "")

	sched.Start(t.Context())
	waitFor(t, "first cycle", func() bool {
		_, ok := f.svc.LastRun()
		return ok
	})

	// Make the safety timer due; the next tick should drain the queue.
	sched.mu.Lock()
	sched.nextSafetyAt = time.Now().UTC().Add(-time.Second)
	sched.mu.Unlock()

	waitFor(t, "safety check", func() bool {
		pool, err := f.listings.ListUnchecked(t.Context(), time.Now().UTC(), 10)
		return err == nil && len(pool) == 0
	})
}
