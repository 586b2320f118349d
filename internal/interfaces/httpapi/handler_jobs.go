package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/riskibarqy/gifthawk/internal/usecase"
)

type runScanJobRequest struct {
	Pages int `json:"pages" validate:"gte=0,lte=25"`
}

type runRescoreJobRequest struct {
	Workers int `json:"workers" validate:"gte=0,lte=16"`
}

func (h *Handler) RunScanJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunScanJob")
	defer span.End()

	var req runScanJobRequest
	if err := decodeOptionalJobRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	pages := req.Pages
	if pages <= 0 {
		cfg, err := h.settingsService.Get(ctx)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		pages = cfg.MaxScanPages
	}

	result, err := h.cycleService.TriggerScan(ctx, pages)
	if err != nil {
		h.logger.WarnContext(ctx, "scan job failed", "pages", pages, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunEntryProcessingJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunEntryProcessingJob")
	defer span.End()

	result, err := h.cycleService.TriggerEntryProcessing(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "entry processing job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunFullCycleJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunFullCycleJob")
	defer span.End()

	run, err := h.cycleService.TriggerFullCycle(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "full cycle job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, cycleRunToDTO(ctx, run))
}

func (h *Handler) RunSafetyRescoreJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSafetyRescoreJob")
	defer span.End()

	var req runRescoreJobRequest
	if err := decodeOptionalJobRequest(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	results, err := h.safetyService.RescoreAll(ctx, req.Workers)
	if err != nil {
		h.logger.WarnContext(ctx, "safety rescore job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, results)
}

// decodeOptionalJobRequest accepts an empty body, since job routes are mostly
// triggered without arguments.
func decodeOptionalJobRequest(r *http.Request, out any) error {
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}
