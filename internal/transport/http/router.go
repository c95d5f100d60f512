package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quiz-room-service/internal/domain"
)

// NewRouter mounts the health check, the websocket endpoint and the room
// inspection endpoint.
func NewRouter(g *Gateway) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(g.cfg.AllowedOrigins)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", g.ServeWS)
	r.Get("/rooms/{pin}", g.serveRoomInfo)
	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
}

func (g *Gateway) serveRoomInfo(w http.ResponseWriter, r *http.Request) {
	info, err := g.engine.Inspect(r.Context(), chi.URLParam(r, "pin"))
	if errors.Is(err, domain.ErrRoomNotFound) {
		writeJSON(w, http.StatusNotFound, domain.AsRoomError(err))
		return
	}
	if err != nil {
		g.log.Error().Err(err).Msg("inspect room")
		writeJSON(w, http.StatusInternalServerError, domain.AsRoomError(err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
