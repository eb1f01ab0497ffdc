package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bytetube/bytetube-chat/internal/handlers"
)

func NewRouter(h *handlers.RoomHandler, chat *handlers.ChatHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/api/v1/healthz", h.Health)

	r.Route("/api/v1/room", func(r chi.Router) {
		r.Post("/create", h.Create)
		r.Get("/{roomId}", h.Get)
		r.Post("/{roomId}/touch", h.Touch)
	})

	// one chat channel per room
	r.Get("/ws/{roomId}", chat.HandleWebSocket)

	return r
}
