package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
	"github.com/riskibarqy/gifthawk/internal/usecase"
)

type Handler struct {
	listingService   *usecase.ListingService
	entryService     *usecase.EntryService
	settingsService  *usecase.SettingsService
	accountService   *usecase.AccountService
	cycleService     *usecase.CycleService
	schedulerService *usecase.SchedulerService
	safetyService    *usecase.SafetyService
	bus              *events.Bus
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(
	listingService *usecase.ListingService,
	entryService *usecase.EntryService,
	settingsService *usecase.SettingsService,
	accountService *usecase.AccountService,
	cycleService *usecase.CycleService,
	schedulerService *usecase.SchedulerService,
	safetyService *usecase.SafetyService,
	bus *events.Bus,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		listingService:   listingService,
		entryService:     entryService,
		settingsService:  settingsService,
		accountService:   accountService,
		cycleService:     cycleService,
		schedulerService: schedulerService,
		safetyService:    safetyService,
		bus:              bus,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func formatOptionalTime(v *time.Time) string {
	if v == nil || v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
