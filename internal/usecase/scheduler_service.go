package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
)

// SchedulerState is the lifecycle flag owned exclusively by the scheduler.
type SchedulerState string

const (
	SchedulerStopped SchedulerState = "stopped"
	SchedulerRunning SchedulerState = "running"
	SchedulerPaused  SchedulerState = "paused"
)

const schedulerTickInterval = time.Second

// SchedulerStatus is the queryable scheduler snapshot.
type SchedulerStatus struct {
	State             SchedulerState `json:"state"`
	NextCycleAt       *time.Time     `json:"nextCycleAt,omitempty"`
	NextSafetyCheckAt *time.Time     `json:"nextSafetyCheckAt,omitempty"`
}

// SchedulerService owns the timer loop that fires cycles and safety checks.
// Pause disarms firing without clearing the timers and cancels the in-flight
// cycle's context; resume recomputes the next fire times; stop cancels the
// loop. Neither interrupts the current action: cancellation is cooperative,
// observed between paced actions.
type SchedulerService struct {
	cycles    *CycleService
	safety    *SafetyService
	settings  *SettingsService
	bus       *events.Bus
	logger    *logging.Logger
	now       func() time.Time
	tickEvery time.Duration

	mu           sync.Mutex
	state        SchedulerState
	cancel       context.CancelFunc
	cycleCancel  context.CancelFunc
	loopDone     chan struct{}
	nextCycleAt  time.Time
	nextSafetyAt time.Time
}

func NewSchedulerService(
	cycles *CycleService,
	safety *SafetyService,
	settings *SettingsService,
	bus *events.Bus,
	logger *logging.Logger,
) *SchedulerService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SchedulerService{
		cycles:    cycles,
		safety:    safety,
		settings:  settings,
		bus:       bus,
		logger:    logger,
		now:       time.Now,
		tickEvery: schedulerTickInterval,
		state:     SchedulerStopped,
	}
}

// Start launches the timer loop. The first cycle fires immediately. Starting
// a paused scheduler resumes it; starting a running one is a no-op.
func (s *SchedulerService) Start(ctx context.Context) SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case SchedulerRunning:
		return s.statusLocked()
	case SchedulerPaused:
		s.state = SchedulerRunning
		s.rearmLocked(context.WithoutCancel(ctx))
		s.publish(events.TypeSchedulerResumed, nil)
		return s.statusLocked()
	}

	// The loop outlives the request that started it.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.state = SchedulerRunning
	now := s.now().UTC()
	s.nextCycleAt = now
	s.nextSafetyAt = now

	go s.loop(loopCtx, s.loopDone)

	s.publish(events.TypeSchedulerStarted, nil)
	s.logger.Info("scheduler started")
	return s.statusLocked()
}

// Stop cancels the loop. An in-flight cycle finishes its current action and
// then aborts at the next pacing checkpoint.
func (s *SchedulerService) Stop() SchedulerStatus {
	s.mu.Lock()
	if s.state == SchedulerStopped {
		defer s.mu.Unlock()
		return s.statusLocked()
	}

	cancel := s.cancel
	done := s.loopDone
	s.state = SchedulerStopped
	s.cancel = nil
	s.loopDone = nil
	s.nextCycleAt = time.Time{}
	s.nextSafetyAt = time.Time{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.publish(events.TypeSchedulerStopped, nil)
	s.logger.Info("scheduler stopped")

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Pause disarms firing. Timers keep their due times; a fire that comes due
// while paused happens on resume recomputation, not retroactively. A cycle
// already running aborts at its next pacing checkpoint.
func (s *SchedulerService) Pause() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SchedulerRunning {
		return s.statusLocked()
	}
	s.state = SchedulerPaused
	if s.cycleCancel != nil {
		s.cycleCancel()
	}
	s.publish(events.TypeSchedulerPaused, nil)
	s.logger.Info("scheduler paused")
	return s.statusLocked()
}

// Resume recomputes the next fire times from now and re-arms the loop.
func (s *SchedulerService) Resume(ctx context.Context) SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SchedulerPaused {
		return s.statusLocked()
	}
	s.state = SchedulerRunning
	s.rearmLocked(context.WithoutCancel(ctx))
	s.publish(events.TypeSchedulerResumed, nil)
	s.logger.Info("scheduler resumed")
	return s.statusLocked()
}

func (s *SchedulerService) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *SchedulerService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.state != SchedulerRunning {
			s.mu.Unlock()
			continue
		}
		now := s.now().UTC()
		fireCycle := !s.nextCycleAt.IsZero() && !now.Before(s.nextCycleAt)
		fireSafety := !fireCycle && !s.nextSafetyAt.IsZero() && !now.Before(s.nextSafetyAt)
		s.mu.Unlock()

		if fireCycle {
			// Each cycle gets its own cancellable context so Pause can abort
			// it between paced actions without tearing down the loop.
			cycleCtx, cancelCycle := context.WithCancel(ctx)
			s.mu.Lock()
			s.cycleCancel = cancelCycle
			s.mu.Unlock()

			s.fireCycle(cycleCtx)

			s.mu.Lock()
			s.cycleCancel = nil
			s.mu.Unlock()
			cancelCycle()
		}
		if fireSafety {
			s.fireSafetyCheck(ctx)
		}
	}
}

func (s *SchedulerService) fireCycle(ctx context.Context) {
	run, err := s.cycles.TriggerFullCycle(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "scheduled cycle failed", "error", err)
	} else if run.Skipped {
		s.logger.InfoContext(ctx, "scheduled cycle skipped", "reason", run.Reason)
	}

	cfg, cfgErr := s.settings.Snapshot(ctx)
	interval := 30 * time.Minute
	if cfgErr == nil && cfg.ScanIntervalMinutes > 0 {
		interval = time.Duration(cfg.ScanIntervalMinutes) * time.Minute
	}

	s.mu.Lock()
	if s.state != SchedulerStopped {
		s.nextCycleAt = s.now().UTC().Add(interval)
	}
	s.mu.Unlock()
}

func (s *SchedulerService) fireSafetyCheck(ctx context.Context) {
	cfg, err := s.settings.Snapshot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "read settings for safety check failed", "error", err)
		return
	}

	if cfg.SafetyCheckEnabled && cfg.Authenticated() {
		if err := s.safety.CheckNext(ctx, cfg); err != nil {
			s.logger.WarnContext(ctx, "scheduled safety check failed", "error", err)
		}
	}

	interval := time.Minute
	if cfg.SafetyCheckIntervalSeconds > 0 {
		interval = time.Duration(cfg.SafetyCheckIntervalSeconds) * time.Second
	}

	s.mu.Lock()
	if s.state != SchedulerStopped {
		s.nextSafetyAt = s.now().UTC().Add(interval)
	}
	s.mu.Unlock()
}

func (s *SchedulerService) rearmLocked(ctx context.Context) {
	now := s.now().UTC()
	interval := 30 * time.Minute
	safetyInterval := time.Minute
	if cfg, err := s.settings.Snapshot(ctx); err == nil {
		if cfg.ScanIntervalMinutes > 0 {
			interval = time.Duration(cfg.ScanIntervalMinutes) * time.Minute
		}
		if cfg.SafetyCheckIntervalSeconds > 0 {
			safetyInterval = time.Duration(cfg.SafetyCheckIntervalSeconds) * time.Second
		}
	}
	s.nextCycleAt = now.Add(interval)
	s.nextSafetyAt = now.Add(safetyInterval)
}

func (s *SchedulerService) statusLocked() SchedulerStatus {
	status := SchedulerStatus{State: s.state}
	if !s.nextCycleAt.IsZero() {
		next := s.nextCycleAt
		status.NextCycleAt = &next
	}
	if !s.nextSafetyAt.IsZero() {
		next := s.nextSafetyAt
		status.NextSafetyCheckAt = &next
	}
	return status
}

func (s *SchedulerService) publish(t events.Type, data map[string]any) {
	if s.bus != nil {
		s.bus.Publish(t, data)
	}
}
