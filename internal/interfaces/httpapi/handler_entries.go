package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/riskibarqy/gifthawk/internal/domain/entry"
	"github.com/riskibarqy/gifthawk/internal/usecase"
)

type createEntryRequest struct {
	ListingCode string `json:"listingCode" validate:"required,max=40"`
}

type entryDTO struct {
	ID          string `json:"id"`
	ListingCode string `json:"listingCode"`
	GameName    string `json:"gameName"`
	PointsSpent int    `json:"pointsSpent"`
	Kind        string `json:"kind"`
	Outcome     string `json:"outcome"`
	ErrorReason string `json:"errorReason,omitempty"`
	SubmittedAt string `json:"submittedAt"`
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListEntries")
	defer span.End()

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	items, err := h.entryService.ListRecent(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list entries failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]entryDTO, 0, len(items))
	for _, item := range items {
		out = append(out, entryToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateEntry")
	defer span.End()

	var req createEntryRequest
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

	rec, err := h.cycleService.TriggerManualEntry(ctx, strings.TrimSpace(req.ListingCode))
	if err != nil {
		h.logger.WarnContext(ctx, "manual entry failed", "code", req.ListingCode, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, entryToDTO(ctx, rec))
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteEntry")
	defer span.End()

	entryID := strings.TrimSpace(r.PathValue("entryID"))
	if err := h.entryService.ReverseEntry(ctx, entryID); err != nil {
		h.logger.WarnContext(ctx, "reverse entry failed", "entry_id", entryID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "reversed"})
}

func entryToDTO(ctx context.Context, v entry.Entry) entryDTO {
	ctx, span := startSpan(ctx, "httpapi.entryToDTO")
	defer span.End()

	return entryDTO{
		ID:          v.ID,
		ListingCode: v.ListingCode,
		GameName:    v.GameName,
		PointsSpent: v.PointsSpent,
		Kind:        string(v.Kind),
		Outcome:     string(v.Outcome),
		ErrorReason: v.ErrorReason,
		SubmittedAt: v.SubmittedAt.UTC().Format(time.RFC3339),
	}
}
