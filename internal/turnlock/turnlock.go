// internal/turnlock/turnlock.go
package turnlock

import (
	"sync"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/game"
)

// DefaultTimeout bounds how long a lock may be held before another socket can take it over.
const DefaultTimeout = 10 * time.Second

// ErrAlreadyProcessing is returned by WithLock when another turn-ending action holds the room.
var ErrAlreadyProcessing = game.NewConcurrencyError("Turn is already being processed, please wait")

// Entry is the holder of a room's turn lock.
type Entry struct {
	SocketID   string
	UserID     string
	AcquiredAt time.Time
}

// Guard allows at most one in-flight turn-ending action per room.
type Guard struct {
	mu      sync.Mutex
	locks   map[string]Entry
	timeout time.Duration
	now     func() time.Time
}

// NewGuard returns a guard whose entries expire after timeout. A zero timeout never expires.
func NewGuard(timeout time.Duration) *Guard {
	return &Guard{
		locks:   make(map[string]Entry),
		timeout: timeout,
		now:     time.Now,
	}
}

func (g *Guard) expired(e Entry) bool {
	return g.timeout > 0 && g.now().Sub(e.AcquiredAt) > g.timeout
}

// Acquire installs socketID as the holder of roomCode's lock. It returns false if the room is
// already held by a lock that has not timed out.
func (g *Guard) Acquire(roomCode, socketID, userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, held := g.locks[roomCode]; held && !g.expired(e) {
		return false
	}
	g.locks[roomCode] = Entry{SocketID: socketID, UserID: userID, AcquiredAt: g.now()}
	return true
}

// Release removes roomCode's lock only if socketID still holds it, so a late release cannot
// drop a newer holder's lock.
func (g *Guard) Release(roomCode, socketID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, held := g.locks[roomCode]
	if !held || e.SocketID != socketID {
		return false
	}
	delete(g.locks, roomCode)
	return true
}

// ReleaseSocket drops every lock held by socketID and returns the affected room codes.
// Called when a connection closes.
func (g *Guard) ReleaseSocket(socketID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var released []string
	for code, e := range g.locks {
		if e.SocketID == socketID {
			delete(g.locks, code)
			released = append(released, code)
		}
	}
	return released
}

// PurgeIdentity drops roomCode's lock if it was taken by userID. Used after an identity
// migration so the old identity cannot block the room.
func (g *Guard) PurgeIdentity(roomCode, userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, held := g.locks[roomCode]; held && e.UserID == userID {
		delete(g.locks, roomCode)
		return 1
	}
	return 0
}

// Holder returns the current holder of roomCode's lock, ignoring expired entries.
func (g *Guard) Holder(roomCode string) (Entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, held := g.locks[roomCode]
	if !held || g.expired(e) {
		return Entry{}, false
	}
	return e, true
}

// WithLock runs fn while holding roomCode's lock and always releases it afterwards.
func (g *Guard) WithLock(roomCode, socketID, userID string, fn func() error) error {
	if !g.Acquire(roomCode, socketID, userID) {
		return ErrAlreadyProcessing
	}
	defer g.Release(roomCode, socketID)
	return fn()
}
