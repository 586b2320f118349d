package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/platform/cache"
)

const settingsCacheKey = "settings:current"

type SettingsService struct {
	repo  settings.Repository
	cache *cache.Store
	now   func() time.Time
}

func NewSettingsService(repo settings.Repository, store *cache.Store) *SettingsService {
	return &SettingsService{
		repo:  repo,
		cache: store,
		now:   time.Now,
	}
}

func (s *SettingsService) Get(ctx context.Context) (settings.Settings, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettingsService.Get")
	defer span.End()

	return s.Snapshot(ctx)
}

// Snapshot returns the current document. Cycles call this once at start and
// never re-read, so a mid-cycle settings write cannot be observed.
func (s *SettingsService) Snapshot(ctx context.Context) (settings.Settings, error) {
	if s.cache == nil {
		return s.repo.Read(ctx)
	}

	out, err := s.cache.GetOrLoad(ctx, settingsCacheKey, func(ctx context.Context) (any, error) {
		return s.repo.Read(ctx)
	})
	if err != nil {
		return settings.Settings{}, err
	}

	doc, ok := out.(settings.Settings)
	if !ok {
		return settings.Settings{}, fmt.Errorf("unexpected cached settings type %T", out)
	}
	return doc, nil
}

func (s *SettingsService) Update(ctx context.Context, doc settings.Settings) (settings.Settings, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettingsService.Update")
	defer span.End()

	if err := doc.Validate(); err != nil {
		return settings.Settings{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now().UTC()
	doc.LastSyncedAt = &now

	if err := s.repo.Write(ctx, doc); err != nil {
		return settings.Settings{}, fmt.Errorf("write settings: %w", err)
	}
	if s.cache != nil {
		s.cache.Delete(ctx, settingsCacheKey)
	}
	return doc, nil
}
