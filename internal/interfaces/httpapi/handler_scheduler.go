package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/cycle"
	"github.com/riskibarqy/gifthawk/internal/usecase"
)

type schedulerStatusDTO struct {
	State             string       `json:"state"`
	NextCycleAt       string       `json:"nextCycleAt,omitempty"`
	NextSafetyCheckAt string       `json:"nextSafetyCheckAt,omitempty"`
	LastRun           *cycleRunDTO `json:"lastRun,omitempty"`
}

type cycleRunDTO struct {
	ID        string              `json:"id"`
	StartedAt string              `json:"startedAt"`
	EndedAt   string              `json:"endedAt,omitempty"`
	Skipped   bool                `json:"skipped"`
	Reason    string              `json:"reason,omitempty"`
	Phases    []cycle.PhaseResult `json:"phases,omitempty"`
}

func (h *Handler) GetSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSchedulerStatus")
	defer span.End()

	status := h.schedulerService.Status()
	writeSuccess(ctx, w, http.StatusOK, h.schedulerStatusToDTO(ctx, status))
}

func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartScheduler")
	defer span.End()

	status := h.schedulerService.Start(ctx)
	writeSuccess(ctx, w, http.StatusOK, h.schedulerStatusToDTO(ctx, status))
}

func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StopScheduler")
	defer span.End()

	status := h.schedulerService.Stop()
	writeSuccess(ctx, w, http.StatusOK, h.schedulerStatusToDTO(ctx, status))
}

func (h *Handler) PauseScheduler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PauseScheduler")
	defer span.End()

	status := h.schedulerService.Pause()
	writeSuccess(ctx, w, http.StatusOK, h.schedulerStatusToDTO(ctx, status))
}

func (h *Handler) ResumeScheduler(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResumeScheduler")
	defer span.End()

	status := h.schedulerService.Resume(ctx)
	writeSuccess(ctx, w, http.StatusOK, h.schedulerStatusToDTO(ctx, status))
}

func (h *Handler) schedulerStatusToDTO(ctx context.Context, status usecase.SchedulerStatus) schedulerStatusDTO {
	ctx, span := startSpan(ctx, "httpapi.schedulerStatusToDTO")
	defer span.End()

	dto := schedulerStatusDTO{
		State:             string(status.State),
		NextCycleAt:       formatOptionalTime(status.NextCycleAt),
		NextSafetyCheckAt: formatOptionalTime(status.NextSafetyCheckAt),
	}
	if run, ok := h.cycleService.LastRun(); ok {
		dto.LastRun = cycleRunToDTO(ctx, run)
	}
	return dto
}

func cycleRunToDTO(ctx context.Context, run cycle.Run) *cycleRunDTO {
	ctx, span := startSpan(ctx, "httpapi.cycleRunToDTO")
	defer span.End()

	return &cycleRunDTO{
		ID:        run.ID,
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
		EndedAt:   formatOptionalTime(run.EndedAt),
		Skipped:   run.Skipped,
		Reason:    run.Reason,
		Phases:    run.Phases,
	}
}
