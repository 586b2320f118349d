package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
	"github.com/riskibarqy/gifthawk/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
)

type mockAccountFetcher struct {
	mock.Mock
}

func (m *mockAccountFetcher) FetchAccountState(ctx context.Context) (account.State, error) {
	args := m.Called(ctx)
	return args.Get(0).(account.State), args.Error(1)
}

func TestAccountService_Refresh_StoresRemoteSnapshot(t *testing.T) {
	t.Parallel()

	repo := memory.NewAccountRepository()
	fetcher := &mockAccountFetcher{}
	syncedAt := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	remote := account.State{
		CurrentPoints: 312,
		Username:      "hawkeye",
		SessionValid:  true,
		SyncedAt:      &syncedAt,
	}

	fetcher.
		On("FetchAccountState", mock.Anything).
		Return(remote, nil).
		Once()

	svc := NewAccountService(repo, fetcher, nil, logging.NewNop())

	got, err := svc.Refresh(t.Context())
	if err != nil {
		t.Fatalf("refresh account: %v", err)
	}
	if got.CurrentPoints != remote.CurrentPoints {
		t.Fatalf("unexpected points: got=%d want=%d", got.CurrentPoints, remote.CurrentPoints)
	}

	stored, err := repo.Read(t.Context())
	if err != nil {
		t.Fatalf("read stored state: %v", err)
	}
	if stored.Username != "hawkeye" || !stored.SessionValid {
		t.Fatalf("stored state not replaced: %+v", stored)
	}

	fetcher.AssertExpectations(t)
}

func TestAccountService_Refresh_PublishesOnInvalidSession(t *testing.T) {
	t.Parallel()

	repo := memory.NewAccountRepository()
	fetcher := &mockAccountFetcher{}
	fetcher.
		On("FetchAccountState", mock.Anything).
		Return(account.State{CurrentPoints: 0, SessionValid: false}, nil).
		Once()

	bus := events.NewBus(4)
	defer bus.Close()
	ch, cancel := bus.Subscribe()
	defer cancel()

	svc := NewAccountService(repo, fetcher, bus, logging.NewNop())

	if _, err := svc.Refresh(t.Context()); err != nil {
		t.Fatalf("refresh account: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Type != events.TypeSessionInvalid {
			t.Fatalf("unexpected event type: %s", ev.Type)
		}
	default:
		t.Fatal("expected a session_invalid event")
	}

	fetcher.AssertExpectations(t)
}

func TestAccountService_Refresh_FetcherFailure(t *testing.T) {
	t.Parallel()

	repo := memory.NewAccountRepository()
	fetcher := &mockAccountFetcher{}
	fetcher.
		On("FetchAccountState", mock.Anything).
		Return(account.State{}, errors.New("connection reset")).
		Once()

	svc := NewAccountService(repo, fetcher, nil, logging.NewNop())

	if _, err := svc.Refresh(t.Context()); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}

	stored, err := repo.Read(t.Context())
	if err != nil {
		t.Fatalf("read stored state: %v", err)
	}
	if stored.SyncedAt != nil {
		t.Fatalf("failed refresh must not touch the snapshot: %+v", stored)
	}

	fetcher.AssertExpectations(t)
}
