/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file defines the main Router, applying middleware for request ids, logging,
CORS and panic recovery before delegating to the page, health and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/resp"
	"lobbychat/internal/web"
)

// Router builds the application's chi.Router.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{}, len(deps.Config.AllowedOrigins))
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			customErr := errs.NewError(errs.ErrInvalidParams)
			if status == http.StatusForbidden {
				customErr = errs.NewError(errs.ErrOriginNotAllowed)
			}
			customErr.Status = status
			resp.RespondError(w, r, customErr)
		},
	}

	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			if deps.Config.IsDevelopment() {
				return true
			}
			_, ok := allowedOrigins[origin]
			return ok
		},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger("/health"))
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))
	r.Get("/ws", HandleWebSocket(deps, wsUpgrader))
	r.Handle("/*", web.Handler())

	return r
}

// HandleHealth reports liveness together with connection counts.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"connections": deps.Manager.Connections(),
			"online":      len(deps.Manager.Online()),
		})
	}
}
