package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eretz-ir/backend/internal/ws"
)

func SetupRoutes(a *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/lobbies", a.CreateLobby)
	r.Post("/lobbies/join", a.JoinByCode)
	r.Post("/lobbies/{lobbyID}/hint", a.Hint)
	r.Get("/profile/{playerID}", a.GetProfile)
	r.Put("/profile/{playerID}", a.PutProfile)
	r.Get("/stats/{playerID}", a.GetStats)
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(a.Hub, a.Log))
	return r
}
