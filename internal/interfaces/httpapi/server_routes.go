package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/listings", handler.ListListings)
	mux.HandleFunc("GET /v1/listings/{code}", handler.GetListing)

	mux.HandleFunc("GET /v1/entries", handler.ListEntries)
	mux.HandleFunc("POST /v1/entries", handler.CreateEntry)
	mux.HandleFunc("DELETE /v1/entries/{entryID}", handler.DeleteEntry)

	mux.HandleFunc("GET /v1/settings", handler.GetSettings)
	mux.HandleFunc("PUT /v1/settings", handler.UpdateSettings)

	mux.HandleFunc("GET /v1/account", handler.GetAccount)
	mux.HandleFunc("POST /v1/account/refresh", handler.RefreshAccount)

	mux.HandleFunc("GET /v1/scheduler/status", handler.GetSchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", handler.StartScheduler)
	mux.HandleFunc("POST /v1/scheduler/stop", handler.StopScheduler)
	mux.HandleFunc("POST /v1/scheduler/pause", handler.PauseScheduler)
	mux.HandleFunc("POST /v1/scheduler/resume", handler.ResumeScheduler)

	mux.HandleFunc("GET /v1/events", handler.StreamEvents)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/scan", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunScanJob)))
	mux.Handle("POST /v1/internal/jobs/process-entries", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunEntryProcessingJob)))
	mux.Handle("POST /v1/internal/jobs/cycle", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunFullCycleJob)))
	mux.Handle("POST /v1/internal/jobs/safety-rescore", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSafetyRescoreJob)))
}
