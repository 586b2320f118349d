// Package events is an in-process fan-out bus with bounded, lossy delivery.
package events

import (
	"sync"
	"time"
)

// Type identifies an event on the bus.
type Type string

const (
	TypeScanProgress     Type = "scan_progress"
	TypeScanComplete     Type = "scan_complete"
	TypeScanError        Type = "scan_error"
	TypeEntrySuccess     Type = "entry_success"
	TypeEntryFailure     Type = "entry_failure"
	TypeSafetyFlagged    Type = "safety_flagged"
	TypeSessionInvalid   Type = "session_invalid"
	TypeCycleCompleted   Type = "cycle_completed"
	TypeSchedulerStarted Type = "scheduler_started"
	TypeSchedulerStopped Type = "scheduler_stopped"
	TypeSchedulerPaused  Type = "scheduler_paused"
	TypeSchedulerResumed Type = "scheduler_resumed"
)

// Event is one notification. Observers treat it as a hint to re-query
// snapshot state, not as a reliable delta.
type Event struct {
	Type Type           `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	At   time.Time      `json:"timestamp"`
}

type subscriber struct {
	ch      chan Event
	dropped int
}

// Bus fans events out to subscribers over bounded channels. Publishing never
// blocks: a subscriber whose buffer is full loses the event.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	buffer int
	closed bool

	now func() time.Time
}

// NewBus builds a bus with the given per-subscriber buffer (<=0 uses 64).
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[int]*subscriber),
		buffer: buffer,
		now:    time.Now,
	}
}

// Subscribe registers an observer. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, b.buffer)}
	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Publish delivers the event to every subscriber that has buffer room.
func (b *Bus) Publish(t Type, data map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	ev := Event{Type: t, Data: data, At: b.now()}
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped++
		}
	}
}

// Close unregisters all subscribers and closes their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
