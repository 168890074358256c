package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/TimurManjosov/flagfile/internal/snapshot"
	"github.com/TimurManjosov/flagfile/internal/telemetry"
)

const keepAliveInterval = 25 * time.Second

// handleEvents streams flag_update and server_shutdown notifications as
// server-sent events. Clients reload the Flagfile on flag_update; on
// server_shutdown they refresh once and reconnect.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalError(w, r, "streaming unsupported")
		return
	}

	events, unsub := snapshot.Subscribe()
	defer unsub()

	telemetry.SSEClients.Inc()
	defer telemetry.SSEClients.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Tell the client it is connected before the first event arrives.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: {\"etag\":%q}\n\n", uuid.NewString(), ev.Name, ev.ETag)
			flusher.Flush()
			if ev.Name == snapshot.EventServerShutdown {
				return
			}
		}
	}
}
