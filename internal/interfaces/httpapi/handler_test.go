package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/gifthawk/internal/platform/cache"
	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
	"github.com/riskibarqy/gifthawk/internal/usecase"
)

const testJobToken = "job-token"

// stubRemote satisfies every scraping-client capability with inert answers,
// which keeps the router tests focused on HTTP behavior.
type stubRemote struct{}

func (stubRemote) FetchListingsPage(context.Context, int, usecase.ScanFilters) ([]listing.Listing, error) {
	return nil, nil
}

func (stubRemote) SubmitEntry(context.Context, string) (usecase.EntryOutcome, error) {
	return usecase.EntryOutcome{Success: true}, nil
}

func (stubRemote) FetchAccountState(context.Context) (account.State, error) {
	return account.State{CurrentPoints: 100, SessionValid: true}, nil
}

func (stubRemote) HideListing(context.Context, string) error { return nil }

func (stubRemote) FetchWonListings(context.Context) ([]string, error) { return nil, nil }

func (stubRemote) FetchEnteredListings(context.Context) ([]string, error) { return nil, nil }

func (stubRemote) FetchListingDescription(context.Context, string) (string, error) {
	return "", nil
}

type routerFixture struct {
	router   http.Handler
	listings *memory.ListingRepository
	accounts *memory.AccountRepository
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()

	listings := memory.NewListingRepository()
	entries := memory.NewEntryRepository()
	accounts := memory.NewAccountRepository()
	settingsRepo := memory.NewSettingsRepository()

	bus := events.NewBus(16)
	t.Cleanup(bus.Close)
	logger := logging.NewNop()
	remote := stubRemote{}

	settingsSvc := usecase.NewSettingsService(settingsRepo, cache.NewStore(time.Minute))
	listingSvc := usecase.NewListingService(listings)
	accountSvc := usecase.NewAccountService(accounts, remote, bus, logger)
	scanSvc := usecase.NewScanService(listings, remote, bus, logger)
	entrySvc := usecase.NewEntryService(listings, entries, accounts, remote, bus, logger, nil)
	cycleSvc := usecase.NewCycleService(settingsSvc, accountSvc, scanSvc, entrySvc, listings, remote, remote, bus, logger, nil)
	safetySvc := usecase.NewSafetyService(listings, remote, remote, bus, logger)
	schedulerSvc := usecase.NewSchedulerService(cycleSvc, safetySvc, settingsSvc, bus, logger)
	t.Cleanup(func() { schedulerSvc.Stop() })

	handler := NewHandler(listingSvc, entrySvc, settingsSvc, accountSvc, cycleSvc, schedulerSvc, safetySvc, bus, logger)
	return routerFixture{
		router:   NewRouter(handler, logger, []string{"*"}, testJobToken),
		listings: listings,
		accounts: accounts,
	}
}

func (f routerFixture) seedListing(t *testing.T, code string, cost int) {
	t.Helper()
	end := time.Now().UTC().Add(24 * time.Hour)
	if _, err := f.listings.Upsert(t.Context(), listing.Listing{
		Code:      code,
		URL:       "https://www.steamgifts.com/giveaway/" + code + "/some-game",
		GameName:  "Some Game",
		PointCost: cost,
		Copies:    1,
		EndAt:     &end,
	}); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestRouter_Healthz(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRouter_ListListings(t *testing.T) {
	f := newRouterFixture(t)
	f.seedListing(t, "AbCd1", 20)

	req := httptest.NewRequest(http.MethodGet, "/v1/listings", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %T", body["data"])
	}
	if len(data) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(data))
	}
	row, _ := data[0].(map[string]any)
	if got, _ := row["code"].(string); got != "AbCd1" {
		t.Fatalf("expected code AbCd1, got %v", row["code"])
	}
}

func TestRouter_GetListingNotFound(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/listings/Nope0", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRouter_CreateEntry(t *testing.T) {
	f := newRouterFixture(t)
	f.seedListing(t, "AbCd1", 20)
	// Default settings keep a 200-point reserve; the balance must clear it.
	if err := f.accounts.Write(t.Context(), account.State{CurrentPoints: 300, SessionValid: true}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/entries", strings.NewReader(`{"listingCode":"AbCd1"}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/v1/entries", nil)
	listRec := httptest.NewRecorder()
	f.router.ServeHTTP(listRec, listReq)

	body := decodeEnvelope(t, listRec)
	data, _ := body["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(data))
	}
}

func TestRouter_UpdateSettingsRejectsInvertedPoints(t *testing.T) {
	f := newRouterFixture(t)

	payload := `{
		"startAtPoints": 50,
		"stopAtPoints": 100,
		"minReviewScore": 7,
		"safetyCheckIntervalSeconds": 60,
		"scanIntervalMinutes": 30,
		"maxScanPages": 3,
		"entryDelayMinSeconds": 8,
		"entryDelayMaxSeconds": 12
	}`
	req := httptest.NewRequest(http.MethodPut, "/v1/settings", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRouter_SettingsResponseMasksSession(t *testing.T) {
	f := newRouterFixture(t)

	payload := `{
		"sessionId": "super-secret-cookie",
		"startAtPoints": 350,
		"stopAtPoints": 200,
		"minReviewScore": 7,
		"safetyCheckIntervalSeconds": 60,
		"scanIntervalMinutes": 30,
		"maxScanPages": 3,
		"entryDelayMinSeconds": 8,
		"entryDelayMaxSeconds": 12
	}`
	req := httptest.NewRequest(http.MethodPut, "/v1/settings", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "super-secret-cookie") {
		t.Fatalf("session cookie leaked into response: %s", rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if configured, _ := data["sessionConfigured"].(bool); !configured {
		t.Fatalf("expected sessionConfigured=true after storing a session")
	}
}

func TestRouter_JobRouteRequiresToken(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/cycle", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	authed := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/cycle", nil)
	authed.Header.Set("X-Internal-Job-Token", testJobToken)
	authedRec := httptest.NewRecorder()
	f.router.ServeHTTP(authedRec, authed)

	if authedRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", authedRec.Code, authedRec.Body.String())
	}
}
