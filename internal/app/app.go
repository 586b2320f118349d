package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/riskibarqy/gifthawk/external/steamgifts"
	"github.com/riskibarqy/gifthawk/internal/config"
	"github.com/riskibarqy/gifthawk/internal/domain/account"
	"github.com/riskibarqy/gifthawk/internal/domain/entry"
	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/gifthawk/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/gifthawk/internal/interfaces/httpapi"
	"github.com/riskibarqy/gifthawk/internal/platform/cache"
	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
	"github.com/riskibarqy/gifthawk/internal/platform/resilience"
	"github.com/riskibarqy/gifthawk/internal/usecase"
)

// App bundles the wired service: the HTTP server, the scheduler that drives
// automation, and a Close that releases the bus and the database handle.
type App struct {
	Server    *http.Server
	Scheduler *usecase.SchedulerService
	Bus       *events.Bus
	Close     func(context.Context) error
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	bus := events.NewBus(cfg.EventBufferSize)

	var (
		listingRepo  listing.Repository
		entryRepo    entry.Repository
		accountRepo  account.Repository
		settingsRepo settings.Repository
		closeDB      = func() error { return nil }
	)
	if cfg.DBURL == "" {
		logger.Info("storage configured", "backend", "memory")
		listingRepo = memory.NewListingRepository()
		entryRepo = memory.NewEntryRepository()
		accountRepo = memory.NewAccountRepository()
		settingsRepo = memory.NewSettingsRepository()
	} else {
		db, err := openDB(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("storage configured", "backend", "postgres", "db_name", dbNameFromURL(cfg.DBURL))
		listingRepo = postgres.NewListingRepository(db)
		entryRepo = postgres.NewEntryRepository(db)
		accountRepo = postgres.NewAccountRepository(db)
		settingsRepo = postgres.NewSettingsRepository(db)
		closeDB = db.Close
	}

	var store *cache.Store
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
	}

	settingsSvc := usecase.NewSettingsService(settingsRepo, store)

	client := steamgifts.NewClient(steamgifts.ClientConfig{
		BaseURL:    cfg.SteamGiftsBaseURL,
		Timeout:    cfg.SteamGiftsTimeout,
		MaxRetries: cfg.SteamGiftsMaxRetries,
		Sessions:   &settingsSessionProvider{settings: settingsSvc},
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SteamGiftsCircuitEnabled,
			FailureThreshold: cfg.SteamGiftsCircuitFailureCount,
			OpenTimeout:      cfg.SteamGiftsCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SteamGiftsCircuitHalfOpenMaxReq,
		},
	})

	listingSvc := usecase.NewListingService(listingRepo)
	accountSvc := usecase.NewAccountService(accountRepo, client, bus, logger)
	scanSvc := usecase.NewScanService(listingRepo, client, bus, logger)
	entrySvc := usecase.NewEntryService(listingRepo, entryRepo, accountRepo, client, bus, logger, nil)
	cycleSvc := usecase.NewCycleService(settingsSvc, accountSvc, scanSvc, entrySvc, listingRepo, client, client, bus, logger, nil)
	safetySvc := usecase.NewSafetyService(listingRepo, client, client, bus, logger)
	schedulerSvc := usecase.NewSchedulerService(cycleSvc, safetySvc, settingsSvc, bus, logger)

	handler := httpapi.NewHandler(listingSvc, entrySvc, settingsSvc, accountSvc, cycleSvc, schedulerSvc, safetySvc, bus, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Server:    server,
		Scheduler: schedulerSvc,
		Bus:       bus,
		Close: func(context.Context) error {
			bus.Close()
			return closeDB()
		},
	}, nil
}

// settingsSessionProvider feeds the stored session cookie to the scraping
// client, so a settings update takes effect on the next request.
type settingsSessionProvider struct {
	settings *usecase.SettingsService
}

func (p *settingsSessionProvider) CurrentSession(ctx context.Context) (steamgifts.Session, error) {
	doc, err := p.settings.Snapshot(ctx)
	if err != nil {
		return steamgifts.Session{}, err
	}
	return steamgifts.Session{
		SessionID: doc.SessionID,
		UserAgent: doc.UserAgent,
	}, nil
}
