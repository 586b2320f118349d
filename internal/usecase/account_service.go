package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
)

type AccountService struct {
	repo    account.Repository
	fetcher AccountFetcher
	bus     *events.Bus
	logger  *logging.Logger
}

func NewAccountService(repo account.Repository, fetcher AccountFetcher, bus *events.Bus, logger *logging.Logger) *AccountService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AccountService{
		repo:    repo,
		fetcher: fetcher,
		bus:     bus,
		logger:  logger,
	}
}

func (s *AccountService) Get(ctx context.Context) (account.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccountService.Get")
	defer span.End()

	return s.repo.Read(ctx)
}

// Refresh replaces the local snapshot with the remote one. The local point
// balance is a prediction between refreshes; this is where it gets corrected.
func (s *AccountService) Refresh(ctx context.Context) (account.State, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccountService.Refresh")
	defer span.End()

	state, err := s.fetcher.FetchAccountState(ctx)
	if err != nil {
		return account.State{}, fmt.Errorf("%w: refresh account state: %v", ErrDependencyUnavailable, err)
	}

	if err := s.repo.Write(ctx, state); err != nil {
		return account.State{}, fmt.Errorf("store account state: %w", err)
	}

	if !state.SessionValid && s.bus != nil {
		s.bus.Publish(events.TypeSessionInvalid, map[string]any{
			"reason": "account page rendered logged out",
		})
	}
	s.logger.InfoContext(ctx, "account state refreshed",
		"points", state.CurrentPoints,
		"session_valid", state.SessionValid,
	)
	return state, nil
}
