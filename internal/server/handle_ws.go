package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// handleDocumentWS pushes document snapshots over a WebSocket, starting
// with the current one. Messages from the client are ignored.
func handleDocumentWS(logger *slog.Logger, docs Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := docKey(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(r.Context())

		ch, unsub, err := docs.Subscribe(ctx, key)
		if err != nil {
			logger.Error("subscribing", "key", key.String(), "error", err)
			conn.Close(websocket.StatusInternalError, "subscribe failed")
			return
		}
		defer unsub()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-ch:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "")
					return
				}
				if err := wsjson.Write(ctx, conn, json.RawMessage(data)); err != nil {
					logger.Debug("websocket write failed", "key", key.String(), "error", err)
					return
				}
			case <-ping.C:
				if err := conn.Ping(ctx); err != nil {
					logger.Debug("websocket ping failed", "key", key.String(), "error", err)
					return
				}
			}
		}
	}
}
