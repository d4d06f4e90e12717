// internal/handlers/server_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/tilehearts/internal/auth"
	"github.com/jason-s-yu/tilehearts/internal/coordinator"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoom = "ABC123"

type testEnv struct {
	ts     *httptest.Server
	srv    *Server
	issuer *auth.Issuer
}

func newTestEnv(t *testing.T, grace time.Duration) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(&strings.Builder{})

	issuer, err := auth.NewIssuer(time.Hour)
	require.NoError(t, err)
	coord := coordinator.New(coordinator.Config{}, nil, nil, logger)
	srv := NewServer(coord, issuer, grace, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		coord.Close()
	})
	return &testEnv{ts: ts, srv: srv, issuer: issuer}
}

func (e *testEnv) token(t *testing.T, name string) (models.Identity, string) {
	t.Helper()
	id, token, err := e.issuer.IssueGuest(name)
	require.NoError(t, err)
	return id, token
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws/" + testRoom
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   http.Header{"Authorization": {"Bearer " + token}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, in models.Intent) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, in))
}

// readUntil reads messages until one of type want arrives and returns it.
func readUntil(t *testing.T, c *websocket.Conn, want string) map[string]interface{} {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		var msg map[string]interface{}
		require.NoError(t, wsjson.Read(ctx, c, &msg), "waiting for %s", want)
		if msg["type"] == want {
			return msg
		}
	}
}

func TestGuestHandler(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	resp, err := http.Post(env.ts.URL+"/auth/guest", "application/json", strings.NewReader(`{"name":"Alice"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body guestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Alice", body.User.Name)
	assert.True(t, body.User.IsGuest)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, body.Token, cookie.Value)

	id, err := env.issuer.VerifyToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.User.ID, id.ID)

	bad, err := http.Post(env.ts.URL+"/auth/guest", "application/json", strings.NewReader(`{"name":"this name is far too long to use"}`))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestWebsocketRequiresAuth(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws/" + testRoom
	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoomFlowOverWebsocket(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	_, aliceToken := env.token(t, "Alice")
	_, bobToken := env.token(t, "Bob")
	alice := env.dial(t, aliceToken)
	bob := env.dial(t, bobToken)

	send(t, alice, models.Intent{Type: models.IntentJoinRoom})
	joined := readUntil(t, alice, coordinator.EventRoomJoined)
	assert.Equal(t, testRoom, joined["roomCode"])

	send(t, bob, models.Intent{Type: models.IntentJoinRoom, RoomCode: "abc123"})
	readUntil(t, bob, coordinator.EventRoomJoined)
	seen := readUntil(t, alice, coordinator.EventPlayerJoined)
	assert.Len(t, seen["players"], 2)

	send(t, bob, models.Intent{Type: models.IntentDrawHeart})
	rejected := readUntil(t, bob, coordinator.EventRoomError)
	assert.Equal(t, "Game has not started", rejected["message"])

	send(t, bob, models.Intent{Type: models.IntentJoinRoom, RoomCode: "XYZ789"})
	mismatch := readUntil(t, bob, coordinator.EventRoomError)
	assert.Equal(t, errRoomMismatch.Message, mismatch["message"])

	send(t, alice, models.Intent{Type: models.IntentPlayerReady})
	send(t, bob, models.Intent{Type: models.IntentPlayerReady})
	start := readUntil(t, alice, coordinator.EventGameStart)
	state := start["gameState"].(map[string]interface{})
	assert.Equal(t, true, state["gameStarted"])
	assert.Len(t, state["tiles"], 8)
	readUntil(t, bob, coordinator.EventGameStart)

	summaries, err := http.Get(env.ts.URL + "/rooms")
	require.NoError(t, err)
	defer summaries.Body.Close()
	var list []map[string]interface{}
	require.NoError(t, json.NewDecoder(summaries.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, true, list[0]["gameStarted"])
}

func TestJoinWithPreviousTokenMigrates(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	guest, guestToken := env.token(t, "Guest")
	account, err := env.issuer.CreateJWT(models.Identity{ID: "account-1", Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	g := env.dial(t, guestToken)
	send(t, g, models.Intent{Type: models.IntentJoinRoom})
	readUntil(t, g, coordinator.EventRoomJoined)

	a := env.dial(t, account)
	send(t, a, models.Intent{Type: models.IntentJoinRoom, PreviousToken: guestToken})
	joined := readUntil(t, a, coordinator.EventRoomJoined)
	assert.Equal(t, true, joined["migrated"])
	assert.Equal(t, guest.ID, joined["previousUserId"])

	players := joined["players"].([]interface{})
	require.Len(t, players, 1)
	assert.Equal(t, "account-1", players[0].(map[string]interface{})["userId"])

	send(t, a, models.Intent{Type: models.IntentJoinRoom, PreviousToken: "garbage"})
	rejected := readUntil(t, a, coordinator.EventRoomError)
	assert.Equal(t, "Authentication failed", rejected["message"])
}

func TestDisconnectGraceRemovesPlayer(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	_, aliceToken := env.token(t, "Alice")
	bobID, bobToken := env.token(t, "Bob")
	alice := env.dial(t, aliceToken)
	bob := env.dial(t, bobToken)

	send(t, alice, models.Intent{Type: models.IntentJoinRoom})
	readUntil(t, alice, coordinator.EventRoomJoined)
	send(t, bob, models.Intent{Type: models.IntentJoinRoom})
	readUntil(t, bob, coordinator.EventRoomJoined)

	require.NoError(t, bob.Close(websocket.StatusNormalClosure, "bye"))

	left := readUntil(t, alice, coordinator.EventPlayerLeft)
	assert.Equal(t, bobID.ID, left["userId"])
	assert.Equal(t, "disconnect", left["reason"])
	assert.Zero(t, env.srv.pendingRemovals(bobID.ID))
}

func TestGetRoomHandler(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	resp, err := http.Get(env.ts.URL + "/rooms/NOPE42")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(env.ts.URL + "/rooms/bad!")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, token := env.token(t, "Alice")
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/rooms", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	created, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer created.Body.Close()
	require.Equal(t, http.StatusCreated, created.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(created.Body).Decode(&body))
	assert.Len(t, body["code"], 6)
}

func TestHubDelivery(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&strings.Builder{})
	hub := NewHub(logger)
	a, b := newClient("s1", "alice"), newClient("s2", "bob")
	hub.Join(testRoom, a)
	hub.Join(testRoom, b)

	hub.Deliver(a, coordinator.Event{Type: coordinator.EventRoomError, RoomCode: testRoom, Audience: coordinator.ToOriginator})
	assert.Len(t, a.out, 1)
	assert.Len(t, b.out, 0)

	hub.Deliver(a, coordinator.Event{Type: coordinator.EventTurnChanged, RoomCode: testRoom, Audience: coordinator.ToRoom})
	assert.Len(t, a.out, 2)
	assert.Len(t, b.out, 1)

	hub.Remove(b)
	assert.Equal(t, 1, hub.Members(testRoom))
	hub.Leave(testRoom, a)
	assert.Zero(t, hub.Members(testRoom))
}
