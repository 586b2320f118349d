package httpapi

import (
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/gifthawk/internal/platform/events"
)

const sseHeartbeatInterval = 25 * time.Second

// StreamEvents is the server-sent-events feed of the engine: entries, scans,
// safety flags and scheduler transitions as they happen. The subscription is
// lossy under a slow consumer; clients treat the feed as notifications, not as
// a durable log.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamEvents")
	defer span.End()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, cancel := h.bus.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return
			}
			if err := writeSSEEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, ev events.Event) error {
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("event: ")
	_, _ = buf.WriteString(string(ev.Type))
	_, _ = buf.WriteString("\ndata: ")
	_, _ = buf.Write(payload)
	_, _ = buf.WriteString("\n\n")

	_, err = w.Write(buf.Bytes())
	return err
}
