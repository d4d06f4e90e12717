// internal/handlers/server.go
package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/jason-s-yu/tilehearts/internal/auth"
	"github.com/jason-s-yu/tilehearts/internal/coordinator"
	"github.com/jason-s-yu/tilehearts/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "tilehearts"

// Server is the event gateway: it authenticates connections, hands intents to the coordinator
// and delivers the resulting events.
type Server struct {
	coord  *coordinator.Coordinator
	issuer *auth.Issuer
	hub    *Hub
	log    *logrus.Logger

	// grace is how long a disconnected player keeps their seat
	grace time.Duration

	mu       sync.Mutex
	removals map[string]map[string]*time.Timer // user id -> room code -> timer
}

func NewServer(coord *coordinator.Coordinator, issuer *auth.Issuer, grace time.Duration, logger *logrus.Logger) *Server {
	return &Server{
		coord:    coord,
		issuer:   issuer,
		hub:      NewHub(logger),
		log:      logger,
		grace:    grace,
		removals: make(map[string]map[string]*time.Timer),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RecoverMiddleware(s.log))
	r.Use(middleware.LogMiddleware(s.log))

	r.HandleFunc("/ws/{code}", s.RoomWSHandler)
	r.HandleFunc("/auth/guest", s.GuestHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms", s.ListRoomsHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.CreateRoomHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}", s.GetRoomHandler).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
	return r
}

// Close cancels pending grace removals.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for user, rooms := range s.removals {
		for _, t := range rooms {
			t.Stop()
		}
		delete(s.removals, user)
	}
}

// scheduleRemoval drops userID from code once the grace period passes, unless they reconnect.
// An already scheduled removal is left alone.
func (s *Server) scheduleRemoval(code, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms, ok := s.removals[userID]
	if !ok {
		rooms = make(map[string]*time.Timer)
		s.removals[userID] = rooms
	}
	if _, pending := rooms[code]; pending {
		return
	}
	rooms[code] = time.AfterFunc(s.grace, func() {
		s.mu.Lock()
		if r, ok := s.removals[userID]; ok {
			delete(r, code)
			if len(r) == 0 {
				delete(s.removals, userID)
			}
		}
		s.mu.Unlock()

		events, removed := s.coord.RemoveAfterGrace(context.Background(), code, userID)
		if !removed {
			return
		}
		for _, ev := range events {
			s.hub.Deliver(nil, ev)
		}
	})
	s.log.WithFields(logrus.Fields{"room": code, "user": userID, "grace": s.grace}).Debug("scheduled grace removal")
}

// cancelRemovals stops every pending removal for userID.
func (s *Server) cancelRemovals(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.removals[userID] {
		t.Stop()
	}
	delete(s.removals, userID)
}

func (s *Server) pendingRemovals(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.removals[userID])
}
