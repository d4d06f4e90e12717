// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jason-s-yu/tilehearts/internal/auth"
	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
)

type guestRequest struct {
	Name string `json:"name"`
}

type guestResponse struct {
	User  models.Identity `json:"user"`
	Token string          `json:"token"`
}

// GuestHandler issues a token for an anonymous identity.
//
// Request payload:
//
//	{ "name": "Alice" }
//
// Response payload:
//
//	{ "user": {...}, "token": "{jwt}" }
//
// The token is also sent via the auth_token cookie.
func (s *Server) GuestHandler(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = "Guest"
	}
	name, err := game.SanitizeName(req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	identity, token, err := s.issuer.IssueGuest(name)
	if err != nil {
		s.log.WithError(err).Error("failed to issue guest token")
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, guestResponse{User: identity, Token: token})
}
