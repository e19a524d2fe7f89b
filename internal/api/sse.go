package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sentinel/internal/adapters/config"
	"sentinel/internal/events"
	"sentinel/internal/metrics"
	"sentinel/pkg/logger"
)

// StreamHandler serves the SSE endpoint. Each subscriber gets its own
// cursor starting at the current tail of the event log, so connecting
// never replays history.
type StreamHandler struct {
	store      events.Store
	readModels *ReadModels
	pollDelay  time.Duration
	batchSize  int
	log        *logger.Logger
}

// NewStreamHandler creates the SSE stream handler.
func NewStreamHandler(
	store events.Store,
	readModels *ReadModels,
	cfg config.APIConfig,
	log *logger.Logger,
) *StreamHandler {
	pollDelay := cfg.SSEPollDelay
	if pollDelay <= 0 {
		pollDelay = 10 * time.Second
	}
	batchSize := cfg.SSEBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	return &StreamHandler{
		store:      store,
		readModels: readModels,
		pollDelay:  pollDelay,
		batchSize:  batchSize,
		log:        log.With("component", "sse"),
	}
}

// ServeHTTP streams stored events to the subscriber until the client
// disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	cursor, err := h.store.MaxID(ctx)
	if err != nil {
		h.log.Error("Failed to read event cursor", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to open stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.SSEConnections.Inc()
	defer metrics.SSEConnections.Dec()

	log := h.log.With("remote", r.RemoteAddr)
	log.Info("SSE subscriber connected", "cursor", cursor)
	defer log.Info("SSE subscriber disconnected")

	if err := writeHandshake(w); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.pollDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		batch, err := h.store.EventsSince(ctx, cursor, h.batchSize)
		if err != nil {
			log.Warn("Failed to poll events", "error", err)
			continue
		}
		if len(batch) == 0 {
			// Comment line keeps intermediaries from closing an idle
			// stream.
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
			continue
		}

		ids := make([]int64, 0, len(batch))
		sawNewsUpdate := false
		for _, ev := range batch {
			if err := writeEvent(w, &ev); err != nil {
				return
			}
			ids = append(ids, ev.ID)
			if ev.ID > cursor {
				cursor = ev.ID
			}
			if ev.EnvelopeType == events.EnvelopeNewsUpdate {
				sawNewsUpdate = true
			}
		}
		flusher.Flush()

		if err := h.store.MarkProcessed(ctx, ids); err != nil {
			log.Warn("Failed to mark events processed", "error", err)
		}

		// A news update invalidates the derived dashboard projections.
		if sawNewsUpdate {
			h.readModels.RefreshDashboard(ctx)
		}
	}
}

// writeEvent writes one SSE frame. The stored payload is already a
// serialized envelope, single line by construction.
func writeEvent(w io.Writer, ev *events.Event) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.OriginalType, ev.Payload)
	return err
}

// writeHandshake sends the connection event straight to this subscriber
// without touching the shared event log.
func writeHandshake(w io.Writer) error {
	data, err := json.Marshal(map[string]string{"status": "connected"})
	if err != nil {
		return err
	}
	envelope := events.Envelope{
		OriginalEventType: events.TypeConnection,
		EventData:         data,
		Timestamp:         time.Now().UTC(),
		Priority:          events.PriorityFor(events.TypeConnection),
		EnvelopeType:      events.MapEnvelope(events.TypeConnection),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", events.TypeConnection, payload)
	return err
}
