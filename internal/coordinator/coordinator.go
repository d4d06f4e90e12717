// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/jason-s-yu/tilehearts/internal/session"
	"github.com/jason-s-yu/tilehearts/internal/storage"
	"github.com/jason-s-yu/tilehearts/internal/turnlock"
	"github.com/sirupsen/logrus"
)

// Publisher receives every accepted intent for the action log.
type Publisher interface {
	PublishRoomAction(ctx context.Context, record models.RoomAction) error
}

// Config tunes the coordinator. Zero values fall back to the defaults below.
type Config struct {
	Rules           game.Rules
	TurnLockTimeout time.Duration
	PersistTimeout  time.Duration
	QueueSize       int // pending background writes before new ones are dropped
}

const (
	defaultPersistTimeout = 5 * time.Second
	defaultQueueSize      = 1024
)

// Actor is the verified identity behind an intent and the socket it arrived on.
type Actor struct {
	Identity models.Identity
	SocketID string
}

func (a Actor) UserID() string { return a.Identity.ID }

// Coordinator owns the process-wide rooms, sessions and turn locks. Every inbound intent goes
// through one of its methods, which return the events to deliver.
type Coordinator struct {
	Rooms    *game.RoomStore
	Sessions *session.Manager
	Locks    *turnlock.Guard

	store     storage.Store
	publisher Publisher
	log       *logrus.Logger
	cfg       Config
	newRandom func() game.Random

	mu          sync.Mutex
	actionIndex map[string]int

	// store writes and publishes run in order on a single worker
	jobs      chan func(ctx context.Context)
	pending   sync.WaitGroup
	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// New wires a coordinator. A nil store keeps everything in memory; a nil publisher disables
// the action log.
func New(cfg Config, store storage.Store, publisher Publisher, logger *logrus.Logger) *Coordinator {
	if cfg.Rules == (game.Rules{}) {
		cfg.Rules = game.DefaultRules()
	}
	if cfg.TurnLockTimeout == 0 {
		cfg.TurnLockTimeout = turnlock.DefaultTimeout
	}
	if cfg.PersistTimeout == 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if store == nil {
		store = storage.NewMemory()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	locks := turnlock.NewGuard(cfg.TurnLockTimeout)
	c := &Coordinator{
		Rooms:       game.NewRoomStore(),
		Sessions:    session.NewManager(locks),
		Locks:       locks,
		store:       store,
		publisher:   publisher,
		log:         logger,
		cfg:         cfg,
		newRandom:   game.NewRandom,
		actionIndex: make(map[string]int),
		jobs:        make(chan func(ctx context.Context), cfg.QueueSize),
	}
	go c.runJobs()
	return c
}

// SetRandomFactory replaces the randomness used for new and restored rooms.
func (c *Coordinator) SetRandomFactory(f func() game.Random) {
	c.newRandom = f
}

// Wait blocks until background persistence and publishing have finished.
func (c *Coordinator) Wait() {
	c.pending.Wait()
}

// Close drains pending writes and stops the background worker. Writes queued after Close are
// dropped.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.closeMu.Lock()
		c.closed = true
		c.closeMu.Unlock()
		c.pending.Wait()
		close(c.jobs)
	})
}

// Connect registers a (re)connection: it restores or creates the identity's session and binds
// it to the actor's socket. A brand new session is persisted before returning.
func (c *Coordinator) Connect(ctx context.Context, actor Actor) (models.PlayerSession, error) {
	userID := actor.UserID()
	if userID == "" {
		return models.PlayerSession{}, game.NewIdentityError("Authentication required")
	}

	if _, ok := c.Sessions.Get(userID); !ok {
		stored, err := c.store.FindSession(ctx, userID)
		switch {
		case err == nil:
			c.Sessions.Restore(*stored)
		case errors.Is(err, storage.ErrNotFound):
		default:
			c.log.WithError(err).WithField("user", userID).Warn("failed to load session")
		}
	}

	_, created := c.Sessions.GetPlayerSession(actor.Identity)
	s, _ := c.Sessions.UpdatePlayerSocket(userID, actor.SocketID)
	if created {
		if err := c.store.UpsertSession(ctx, s); err != nil {
			return models.PlayerSession{}, fmt.Errorf("persist session %s: %w", userID, err)
		}
	} else {
		c.persistSession(s)
	}

	c.log.WithFields(logrus.Fields{"user": userID, "socket": actor.SocketID, "new": created}).Debug("session bound")
	return s, nil
}

// Disconnect releases every turn lock the socket holds and unbinds it from its session. It
// returns the code of the room the player was in, if the socket was still the live one, so
// the gateway can schedule grace removal.
func (c *Coordinator) Disconnect(actor Actor) string {
	if released := c.Locks.ReleaseSocket(actor.SocketID); len(released) > 0 {
		c.log.WithFields(logrus.Fields{"socket": actor.SocketID, "rooms": released}).Info("released turn locks on disconnect")
	}
	if !c.Sessions.MarkDisconnected(actor.UserID(), actor.SocketID) {
		return ""
	}
	s, ok := c.Sessions.Get(actor.UserID())
	if !ok {
		return ""
	}
	c.persistSession(s)
	return s.CurrentRoom
}

// RemoveAfterGrace removes userID from roomCode unless the identity has reconnected in the
// meantime. ok is false when nothing was removed.
func (c *Coordinator) RemoveAfterGrace(ctx context.Context, roomCode, userID string) (events []Event, ok bool) {
	if c.Sessions.IsConnected(userID) {
		return nil, false
	}
	events, err := c.removePlayer(ctx, roomCode, userID, "disconnect")
	if err != nil {
		if !IsRejection(err) {
			c.log.WithError(err).WithFields(logrus.Fields{"room": roomCode, "user": userID}).Warn("grace removal failed")
		}
		return nil, false
	}
	c.log.WithFields(logrus.Fields{"room": roomCode, "user": userID}).Info("removed player after disconnect grace")
	return events, true
}

// SweepSessions marks sessions idle for longer than threshold inactive and persists them.
func (c *Coordinator) SweepSessions(threshold time.Duration) []string {
	swept := c.Sessions.SweepInactive(threshold)
	for _, id := range swept {
		if s, ok := c.Sessions.Get(id); ok {
			c.persistSession(s)
		}
	}
	if len(swept) > 0 {
		c.log.WithField("count", len(swept)).Info("marked idle sessions inactive")
	}
	return swept
}

// Summaries lists every live room.
func (c *Coordinator) Summaries() []game.RoomSummary {
	rooms := c.Rooms.ListRooms()
	out := make([]game.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		r.Mu.Lock()
		out = append(out, r.Summary())
		r.Mu.Unlock()
	}
	return out
}

// RoomSnapshot returns the live state of a room.
func (c *Coordinator) RoomSnapshot(rawCode string) (game.RoomSnapshot, error) {
	code, err := game.NormalizeRoomCode(rawCode)
	if err != nil {
		return game.RoomSnapshot{}, err
	}
	room, ok := c.Rooms.GetRoom(code)
	if !ok {
		return game.RoomSnapshot{}, errRoomNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.Snapshot(), nil
}

// NewRoomCode returns a code not used by any live room.
func (c *Coordinator) NewRoomCode() string {
	rng := c.newRandom()
	for {
		code := game.GenerateRoomCode(rng)
		if _, taken := c.Rooms.GetRoom(code); !taken {
			return code
		}
	}
}

// persistRoom mirrors snap to the store in the background.
func (c *Coordinator) persistRoom(snap game.RoomSnapshot) {
	c.background(func(ctx context.Context) {
		if err := c.store.UpsertRoom(ctx, snap); err != nil {
			c.log.WithError(err).WithField("room", snap.Code).Warn("failed to persist room")
		}
	})
}

func (c *Coordinator) forgetRoom(code string) {
	c.mu.Lock()
	delete(c.actionIndex, code)
	c.mu.Unlock()

	c.background(func(ctx context.Context) {
		if err := c.store.DeleteRoom(ctx, code); err != nil && !errors.Is(err, storage.ErrNotFound) {
			c.log.WithError(err).WithField("room", code).Warn("failed to delete room")
		}
	})
}

func (c *Coordinator) persistSession(s models.PlayerSession) {
	c.background(func(ctx context.Context) {
		if err := c.store.UpsertSession(ctx, s); err != nil {
			c.log.WithError(err).WithField("user", s.UserID).Warn("failed to persist session")
		}
	})
}

// recordAction assigns the room's next action index and publishes the record. Must be called
// while the room lock is held so indexes follow mutation order.
func (c *Coordinator) recordAction(code, actorID, actionType string, payload map[string]interface{}) {
	if c.publisher == nil {
		return
	}
	c.mu.Lock()
	idx := c.actionIndex[code]
	c.actionIndex[code] = idx + 1
	c.mu.Unlock()

	rec := models.RoomAction{
		RoomCode:      code,
		ActionIndex:   idx,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	c.background(func(ctx context.Context) {
		if err := c.publisher.PublishRoomAction(ctx, rec); err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{"room": code, "action": actionType}).Warn("failed to publish room action")
		}
	})
}

// background queues fn behind earlier writes, so an upsert can never land after the delete
// that followed it. Callers hold a room lock, so a full queue drops fn rather than stalling
// every room behind a slow store.
func (c *Coordinator) background(fn func(ctx context.Context)) {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		c.log.Debug("coordinator closed, dropping background write")
		return
	}
	c.pending.Add(1)
	select {
	case c.jobs <- fn:
	default:
		c.pending.Done()
		c.log.WithField("queued", len(c.jobs)).Warn("background queue full, dropping write")
	}
}

func (c *Coordinator) runJobs() {
	for fn := range c.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		fn(ctx)
		cancel()
		c.pending.Done()
	}
}
