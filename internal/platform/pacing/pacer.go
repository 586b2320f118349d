// Package pacing serializes external-effecting actions with randomized delays.
package pacing

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// ErrBudgetExhausted is returned by Next once the action cap is spent.
var ErrBudgetExhausted = errors.New("action budget exhausted")

// Pacer gates a sequence of actions: a uniform random delay from
// [delayMin, delayMax] before each action except the first, and an optional
// hard cap on total actions. Not safe for concurrent use; callers are
// strictly sequential by design of the pipelines that own one.
type Pacer struct {
	delayMin   time.Duration
	delayMax   time.Duration
	maxActions int
	taken      int

	randDelay func() time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// New builds a Pacer. maxActions <= 0 means no cap.
func New(delayMin, delayMax time.Duration, maxActions int) *Pacer {
	if delayMax < delayMin {
		delayMax = delayMin
	}
	p := &Pacer{
		delayMin:   delayMin,
		delayMax:   delayMax,
		maxActions: maxActions,
		sleep:      sleepContext,
	}
	p.randDelay = func() time.Duration {
		span := p.delayMax - p.delayMin
		if span <= 0 {
			return p.delayMin
		}
		return p.delayMin + time.Duration(rand.Int64N(int64(span)+1))
	}
	return p
}

// Next blocks for the pacing delay and reserves one action slot. It returns
// ctx.Err() if the context is done before or during the delay, and
// ErrBudgetExhausted once the cap is spent. No delay precedes the first action.
func (p *Pacer) Next(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.maxActions > 0 && p.taken >= p.maxActions {
		return ErrBudgetExhausted
	}
	if p.taken > 0 {
		if err := p.sleep(ctx, p.randDelay()); err != nil {
			return err
		}
	}
	p.taken++
	return nil
}

// Taken returns how many action slots have been consumed.
func (p *Pacer) Taken() int {
	return p.taken
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
