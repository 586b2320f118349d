package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/gifthawk/internal/domain/settings"
)

type SettingsRepository struct {
	mu      sync.RWMutex
	current settings.Settings
	written bool
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{}
}

func (r *SettingsRepository) Read(_ context.Context) (settings.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.written {
		return settings.Defaults(), nil
	}
	return r.current, nil
}

func (r *SettingsRepository) Write(_ context.Context, s settings.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = s
	r.written = true
	return nil
}
