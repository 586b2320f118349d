package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/gifthawk/internal/domain/entry"
)

type EntryRepository struct {
	mu     sync.RWMutex
	items  map[string]entry.Entry
	orders []string
}

func NewEntryRepository() *EntryRepository {
	return &EntryRepository{
		items:  make(map[string]entry.Entry),
		orders: make([]string, 0, 64),
	}
}

func (r *EntryRepository) Insert(_ context.Context, e entry.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[e.ID]; !ok {
		r.orders = append(r.orders, e.ID)
	}
	r.items[e.ID] = e
	return nil
}

func (r *EntryRepository) GetByID(_ context.Context, id string) (entry.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[id]
	if !ok {
		return entry.Entry{}, false, nil
	}
	return e, true, nil
}

func (r *EntryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return nil
	}
	delete(r.items, id)
	for i, existing := range r.orders {
		if existing == id {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			break
		}
	}
	return nil
}

func (r *EntryRepository) ListRecent(_ context.Context, limit int) ([]entry.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entry.Entry, 0, len(r.orders))
	for i := len(r.orders) - 1; i >= 0; i-- {
		out = append(out, r.items[r.orders[i]])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
