// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jason-s-yu/tilehearts/internal/coordinator"
	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/middleware"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

var errRoomMismatch = game.NewValidationError("Room code does not match this connection")

// RoomWSHandler upgrades /ws/{code} to a websocket bound to the caller's verified identity,
// then reads intents until the connection closes.
func (s *Server) RoomWSHandler(w http.ResponseWriter, r *http.Request) {
	code, err := game.NormalizeRoomCode(mux.Vars(r)["code"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Authenticate before upgrading so a bad token is a plain 401.
	identity, err := s.issuer.Verify(r)
	if err != nil {
		s.log.WithError(err).WithField("remote", r.RemoteAddr).Debug("websocket authentication failed")
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must speak the "+Subprotocol+" subprotocol")
		return
	}

	client := newClient(uuid.NewString(), identity.ID)
	actor := coordinator.Actor{Identity: identity, SocketID: client.SocketID}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if _, err := s.coord.Connect(ctx, actor); err != nil {
		s.log.WithError(err).WithField("user", identity.ID).Error("failed to bind session")
		c.Close(InvalidAuthTokenError, "could not start session")
		return
	}
	s.cancelRemovals(identity.ID)
	middleware.LogWebSocketConnect(s.log, r.RemoteAddr, r.URL.Path, identity.ID)

	go s.writePump(ctx, c, client)

	readErr := s.readPump(ctx, c, client, actor, code)

	// ---- Cleanup after readPump exits ----
	s.hub.Remove(client)
	if room := s.coord.Disconnect(actor); room != "" {
		s.scheduleRemoval(room, identity.ID)
	}
	middleware.LogWebSocketDisconnect(s.log, r.RemoteAddr, r.URL.Path, identity.ID, readErr)
}

// readPump reads intents for the connection's room and hands them to the coordinator. It
// returns the error that ended the connection, or nil on a normal close.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, client *Client, actor coordinator.Actor, code string) error {
	entry := s.log.WithFields(logrus.Fields{"room": code, "user": client.UserID, "socket": client.SocketID})
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			entry.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var in models.Intent
		if err := json.Unmarshal(msg, &in); err != nil {
			entry.WithError(err).Debug("invalid json from client")
			s.hub.Deliver(client, coordinator.ErrorEvent(code, game.NewValidationError("Invalid JSON format")))
			continue
		}
		s.handleIntent(ctx, client, actor, code, in)
	}
}

// handleIntent dispatches one intent and delivers its events. Subscriptions follow membership:
// a successful join subscribes the connection to the room and a leave unsubscribes it.
func (s *Server) handleIntent(ctx context.Context, client *Client, actor coordinator.Actor, code string, in models.Intent) {
	if in.RoomCode == "" {
		in.RoomCode = code
	} else if normalized, err := game.NormalizeRoomCode(in.RoomCode); err != nil || normalized != code {
		s.hub.Deliver(client, coordinator.ErrorEvent(code, errRoomMismatch))
		return
	}

	var previousUserID string
	if in.Type == models.IntentJoinRoom && in.PreviousToken != "" {
		prev, err := s.issuer.VerifyToken(in.PreviousToken)
		if err != nil {
			s.hub.Deliver(client, coordinator.ErrorEvent(code, game.NewIdentityError("Authentication failed")))
			return
		}
		previousUserID = prev.ID
	}

	events, err := s.coord.Dispatch(ctx, actor, in, previousUserID)
	if err != nil {
		s.hub.Deliver(client, coordinator.ErrorEvent(code, err))
		return
	}

	switch in.Type {
	case models.IntentJoinRoom:
		s.hub.Join(code, client)
		for _, absent := range s.coord.AbsentPlayers(code) {
			s.scheduleRemoval(code, absent)
		}
	}
	for _, ev := range events {
		s.hub.Deliver(client, ev)
	}
	if in.Type == models.IntentLeaveRoom {
		s.hub.Leave(code, client)
	}
}

// writePump drains the client's queue onto the socket and keeps the connection alive with pings.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-client.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.WithError(err).WithField("socket", client.SocketID).Warn("failed to write to websocket")
				c.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.log.WithError(err).WithField("socket", client.SocketID).Warn("ping failed, assuming disconnect")
				c.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}
