package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
)

type AccountRepository struct {
	mu      sync.RWMutex
	current account.State
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{}
}

func (r *AccountRepository) Read(_ context.Context) (account.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, nil
}

func (r *AccountRepository) Write(_ context.Context, s account.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = s
	return nil
}
