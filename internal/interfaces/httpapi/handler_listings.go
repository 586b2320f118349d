package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
)

type listingDTO struct {
	Code          string `json:"code"`
	URL           string `json:"url,omitempty"`
	GameID        string `json:"gameId,omitempty"`
	GameName      string `json:"gameName"`
	PointCost     int    `json:"pointCost"`
	Copies        int    `json:"copies"`
	EntryCount    int    `json:"entryCount"`
	EndAt         string `json:"endAt,omitempty"`
	IsDLC         bool   `json:"isDlc"`
	IsWishlisted  bool   `json:"isWishlisted"`
	IsHidden      bool   `json:"isHidden"`
	IsEntered     bool   `json:"isEntered"`
	IsWon         bool   `json:"isWon"`
	WonAt         string `json:"wonAt,omitempty"`
	ReviewScore   *int   `json:"reviewScore,omitempty"`
	ReviewCount   *int   `json:"reviewCount,omitempty"`
	ReleasedAt    string `json:"releasedAt,omitempty"`
	SafetyVerdict string `json:"safetyVerdict"`
	SafetyScore   *int   `json:"safetyScore,omitempty"`
	DiscoveredAt  string `json:"discoveredAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListListings")
	defer span.End()

	filter := listing.Filter{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("entered")); raw != "" {
		entered := raw == "true" || raw == "1"
		filter.Entered = &entered
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("safety")); raw != "" {
		filter.Safety = listing.Verdict(raw)
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}

	items, err := h.listingService.List(ctx, filter)
	if err != nil {
		h.logger.WarnContext(ctx, "list listings failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]listingDTO, 0, len(items))
	for _, item := range items {
		out = append(out, listingToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetListing")
	defer span.End()

	code := strings.TrimSpace(r.PathValue("code"))
	item, err := h.listingService.GetByCode(ctx, code)
	if err != nil {
		h.logger.WarnContext(ctx, "get listing failed", "code", code, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, listingToDTO(ctx, item))
}

func listingToDTO(ctx context.Context, v listing.Listing) listingDTO {
	ctx, span := startSpan(ctx, "httpapi.listingToDTO")
	defer span.End()

	return listingDTO{
		Code:          v.Code,
		URL:           v.URL,
		GameID:        v.GameID,
		GameName:      v.GameName,
		PointCost:     v.PointCost,
		Copies:        v.Copies,
		EntryCount:    v.EntryCount,
		EndAt:         formatOptionalTime(v.EndAt),
		IsDLC:         v.IsDLC,
		IsWishlisted:  v.IsWishlisted,
		IsHidden:      v.IsHidden,
		IsEntered:     v.IsEntered,
		IsWon:         v.IsWon,
		WonAt:         formatOptionalTime(v.WonAt),
		ReviewScore:   v.ReviewScore,
		ReviewCount:   v.ReviewCount,
		ReleasedAt:    formatOptionalTime(v.ReleasedAt),
		SafetyVerdict: string(v.SafetyVerdict),
		SafetyScore:   v.SafetyScore,
		DiscoveredAt:  v.DiscoveredAt.UTC().Format(time.RFC3339),
		UpdatedAt:     v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
