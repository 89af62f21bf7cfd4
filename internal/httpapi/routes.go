package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aliasflow/alias-game-backend/internal/auth"
	"github.com/aliasflow/alias-game-backend/internal/directory"
	"github.com/aliasflow/alias-game-backend/internal/stats"
	"github.com/aliasflow/alias-game-backend/internal/ws"
)

func SetupRoutes(dir *directory.Directory, verifier *auth.Verifier, store *stats.Store, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(dir, verifier, log))
	r.Get("/rooms", ListRooms(dir))
	r.Get("/leaderboard", Leaderboard(store))
	r.Get("/statistics/{userID}", PlayerStatistics(store))

	// Operational routes
	r.Post("/admin/delete-all-rooms", DeleteAllRooms(dir, log))
	return r
}
