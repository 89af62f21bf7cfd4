package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aliasflow/alias-game-backend/internal/directory"
	"github.com/aliasflow/alias-game-backend/internal/room"
	"github.com/aliasflow/alias-game-backend/internal/stats"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func ListRooms(dir *directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []room.Summary, 1)
		dir.Inbox() <- directory.ListRooms{Reply: reply}
		writeJSON(w, http.StatusOK, struct {
			Rooms []room.Summary `json:"rooms"`
		}{Rooms: <-reply})
	}
}

func Leaderboard(store *stats.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, err := store.Leaderboard(r.Context(), limit)
		if err != nil {
			http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []stats.PlayerStats{}
		}
		writeJSON(w, http.StatusOK, struct {
			Leaderboard []stats.PlayerStats `json:"leaderboard"`
		}{Leaderboard: rows})
	}
}

func PlayerStatistics(store *stats.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.Player(r.Context(), chi.URLParam(r, "userID"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "player not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load statistics", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func DeleteAllRooms(dir *directory.Directory, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan int, 1)
		dir.Inbox() <- directory.DeleteAllRooms{Reply: reply}
		n := <-reply
		log.Warn("deleted all rooms via admin endpoint", zap.Int("count", n))
		writeJSON(w, http.StatusOK, struct {
			Deleted int `json:"deleted"`
		}{Deleted: n})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
