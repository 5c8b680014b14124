package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// handleEvents streams document snapshots as Server-Sent Events. The first
// event is the current snapshot.
func handleEvents(logger *slog.Logger, docs Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := docKey(r)

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		ch, unsub, err := docs.Subscribe(r.Context(), key)
		if err != nil {
			logger.Error("subscribing", "key", key.String(), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		defer unsub()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
