// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jason-s-yu/tilehearts/internal/game"
)

// ListRoomsHandler returns a summary of every live room.
func (s *Server) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Summaries())
}

// GetRoomHandler returns the full state of one room.
func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.RoomSnapshot(mux.Vars(r)["code"])
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, game.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "room not found", http.StatusNotFound)
	}
}

// CreateRoomHandler reserves nothing; it hands back an unused code. The room itself is created
// by the first join.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.issuer.Verify(r); err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"code": s.coord.NewRoomCode()})
}

// HealthHandler reports liveness and the number of live rooms.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rooms":  s.coord.Rooms.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}
