package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// HandleWebSocket upgrades the request and serves a chat session on it until
// the client goes away. Failed upgrades are answered by the upgrader itself.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		logger.Debug().Msg("WebSocket connection established")

		deps.Manager.Serve(r.Context(), conn)
	}
}
