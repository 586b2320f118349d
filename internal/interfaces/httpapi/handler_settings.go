package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/usecase"
)

// updateSettingsRequest mirrors the settings document. The session cookie is
// write-only: an empty sessionId in the payload keeps the stored one, so the
// operator can round-trip a GET response without wiping the credential.
type updateSettingsRequest struct {
	SessionID string `json:"sessionId" validate:"omitempty,max=200"`
	UserAgent string `json:"userAgent" validate:"omitempty,max=400"`

	AutomationEnabled bool `json:"automationEnabled"`
	StartAtPoints     int  `json:"startAtPoints" validate:"gte=0"`
	StopAtPoints      int  `json:"stopAtPoints" validate:"gte=0"`
	MinPointPrice     int  `json:"minPointPrice" validate:"gte=0"`
	MinReviewScore    int  `json:"minReviewScore" validate:"gte=0,lte=10"`
	MinReviewCount    int  `json:"minReviewCount" validate:"gte=0"`
	MaxGameAgeYears   *int `json:"maxGameAgeYears" validate:"omitempty,gt=0"`
	EnterDLC          bool `json:"enterDlc"`

	SafetyCheckEnabled         bool `json:"safetyCheckEnabled"`
	AutoHideUnsafe             bool `json:"autoHideUnsafe"`
	SafetyCheckIntervalSeconds int  `json:"safetyCheckIntervalSeconds" validate:"gt=0"`

	ScanIntervalMinutes int  `json:"scanIntervalMinutes" validate:"gt=0"`
	MaxEntriesPerCycle  *int `json:"maxEntriesPerCycle" validate:"omitempty,gt=0"`

	MaxScanPages         int `json:"maxScanPages" validate:"gt=0,lte=25"`
	EntryDelayMinSeconds int `json:"entryDelayMinSeconds" validate:"gte=0"`
	EntryDelayMaxSeconds int `json:"entryDelayMaxSeconds" validate:"gte=0"`
}

type settingsDTO struct {
	SessionConfigured bool   `json:"sessionConfigured"`
	UserAgent         string `json:"userAgent,omitempty"`

	AutomationEnabled bool `json:"automationEnabled"`
	StartAtPoints     int  `json:"startAtPoints"`
	StopAtPoints      int  `json:"stopAtPoints"`
	MinPointPrice     int  `json:"minPointPrice"`
	MinReviewScore    int  `json:"minReviewScore"`
	MinReviewCount    int  `json:"minReviewCount"`
	MaxGameAgeYears   *int `json:"maxGameAgeYears,omitempty"`
	EnterDLC          bool `json:"enterDlc"`

	SafetyCheckEnabled         bool `json:"safetyCheckEnabled"`
	AutoHideUnsafe             bool `json:"autoHideUnsafe"`
	SafetyCheckIntervalSeconds int  `json:"safetyCheckIntervalSeconds"`

	ScanIntervalMinutes int  `json:"scanIntervalMinutes"`
	MaxEntriesPerCycle  *int `json:"maxEntriesPerCycle,omitempty"`

	MaxScanPages         int    `json:"maxScanPages"`
	EntryDelayMinSeconds int    `json:"entryDelayMinSeconds"`
	EntryDelayMaxSeconds int    `json:"entryDelayMaxSeconds"`
	LastSyncedAt         string `json:"lastSyncedAt,omitempty"`
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSettings")
	defer span.End()

	doc, err := h.settingsService.Get(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get settings failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, settingsToDTO(ctx, doc))
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateSettings")
	defer span.End()

	var req updateSettingsRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	current, err := h.settingsService.Get(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "read settings before update failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	doc := settings.Settings{
		SessionID:                  strings.TrimSpace(req.SessionID),
		UserAgent:                  strings.TrimSpace(req.UserAgent),
		XSRFToken:                  current.XSRFToken,
		AutomationEnabled:          req.AutomationEnabled,
		StartAtPoints:              req.StartAtPoints,
		StopAtPoints:               req.StopAtPoints,
		MinPointPrice:              req.MinPointPrice,
		MinReviewScore:             req.MinReviewScore,
		MinReviewCount:             req.MinReviewCount,
		MaxGameAgeYears:            req.MaxGameAgeYears,
		EnterDLC:                   req.EnterDLC,
		SafetyCheckEnabled:         req.SafetyCheckEnabled,
		AutoHideUnsafe:             req.AutoHideUnsafe,
		SafetyCheckIntervalSeconds: req.SafetyCheckIntervalSeconds,
		ScanIntervalMinutes:        req.ScanIntervalMinutes,
		MaxEntriesPerCycle:         req.MaxEntriesPerCycle,
		MaxScanPages:               req.MaxScanPages,
		EntryDelayMinSeconds:       req.EntryDelayMinSeconds,
		EntryDelayMaxSeconds:       req.EntryDelayMaxSeconds,
	}
	if doc.SessionID == "" {
		doc.SessionID = current.SessionID
	}

	saved, err := h.settingsService.Update(ctx, doc)
	if err != nil {
		h.logger.WarnContext(ctx, "update settings failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, settingsToDTO(ctx, saved))
}

func settingsToDTO(ctx context.Context, v settings.Settings) settingsDTO {
	ctx, span := startSpan(ctx, "httpapi.settingsToDTO")
	defer span.End()

	return settingsDTO{
		SessionConfigured:          v.Authenticated(),
		UserAgent:                  v.UserAgent,
		AutomationEnabled:          v.AutomationEnabled,
		StartAtPoints:              v.StartAtPoints,
		StopAtPoints:               v.StopAtPoints,
		MinPointPrice:              v.MinPointPrice,
		MinReviewScore:             v.MinReviewScore,
		MinReviewCount:             v.MinReviewCount,
		MaxGameAgeYears:            v.MaxGameAgeYears,
		EnterDLC:                   v.EnterDLC,
		SafetyCheckEnabled:         v.SafetyCheckEnabled,
		AutoHideUnsafe:             v.AutoHideUnsafe,
		SafetyCheckIntervalSeconds: v.SafetyCheckIntervalSeconds,
		ScanIntervalMinutes:        v.ScanIntervalMinutes,
		MaxEntriesPerCycle:         v.MaxEntriesPerCycle,
		MaxScanPages:               v.MaxScanPages,
		EntryDelayMinSeconds:       v.EntryDelayMinSeconds,
		EntryDelayMaxSeconds:       v.EntryDelayMaxSeconds,
		LastSyncedAt:               formatOptionalTime(v.LastSyncedAt),
	}
}
