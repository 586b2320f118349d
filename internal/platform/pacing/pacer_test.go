package pacing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestPacer(maxActions int) (*Pacer, *[]time.Duration) {
	p := New(8*time.Second, 12*time.Second, maxActions)
	var slept []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return p, &slept
}

func TestNextNoLeadingDelay(t *testing.T) {
	p, slept := newTestPacer(0)

	if err := p.Next(t.Context()); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if len(*slept) != 0 {
		t.Fatalf("first action slept %v, want none", *slept)
	}

	if err := p.Next(t.Context()); err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if len(*slept) != 1 {
		t.Fatalf("second action slept %d times, want 1", len(*slept))
	}
}

func TestDelayWithinBounds(t *testing.T) {
	p := New(8*time.Second, 12*time.Second, 0)
	for i := 0; i < 100; i++ {
		d := p.randDelay()
		if d < 8*time.Second || d > 12*time.Second {
			t.Fatalf("delay %v outside [8s, 12s]", d)
		}
	}
}

func TestBudgetExhausted(t *testing.T) {
	p, _ := newTestPacer(2)

	for i := 0; i < 2; i++ {
		if err := p.Next(t.Context()); err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
	}
	if err := p.Next(t.Context()); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}
	if got := p.Taken(); got != 2 {
		t.Fatalf("Taken() = %d, want 2", got)
	}
}

func TestNextAbortsOnCancelledContext(t *testing.T) {
	p, _ := newTestPacer(0)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := p.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := p.Taken(); got != 0 {
		t.Fatalf("cancelled Next consumed a slot: Taken() = %d", got)
	}
}

func TestNextAbortsDuringDelay(t *testing.T) {
	p := New(time.Minute, time.Minute, 0)

	ctx, cancel := context.WithCancel(t.Context())
	if err := p.Next(ctx); err != nil {
		t.Fatalf("first Next: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := p.Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancel took %v, delay was not interrupted", elapsed)
	}
}
