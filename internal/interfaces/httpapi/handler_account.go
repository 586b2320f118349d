package httpapi

import (
	"context"
	"net/http"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
)

type accountDTO struct {
	CurrentPoints int    `json:"currentPoints"`
	Username      string `json:"username,omitempty"`
	SessionValid  bool   `json:"sessionValid"`
	SyncedAt      string `json:"syncedAt,omitempty"`
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetAccount")
	defer span.End()

	state, err := h.accountService.Get(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get account failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, accountToDTO(ctx, state))
}

func (h *Handler) RefreshAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshAccount")
	defer span.End()

	state, err := h.accountService.Refresh(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh account failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, accountToDTO(ctx, state))
}

func accountToDTO(ctx context.Context, v account.State) accountDTO {
	ctx, span := startSpan(ctx, "httpapi.accountToDTO")
	defer span.End()

	return accountDTO{
		CurrentPoints: v.CurrentPoints,
		Username:      v.Username,
		SessionValid:  v.SessionValid,
		SyncedAt:      formatOptionalTime(v.SyncedAt),
	}
}
