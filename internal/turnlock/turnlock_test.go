// internal/turnlock/turnlock_test.go
package turnlock

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	g := NewGuard(DefaultTimeout)

	assert.True(t, g.Acquire("ABC123", "s1", "u1"))
	assert.False(t, g.Acquire("ABC123", "s2", "u2"))
	assert.True(t, g.Acquire("XYZ789", "s2", "u2"), "locks are per room")

	assert.False(t, g.Release("ABC123", "s2"), "only the holder may release")
	holder, held := g.Holder("ABC123")
	require.True(t, held)
	assert.Equal(t, "s1", holder.SocketID)

	assert.True(t, g.Release("ABC123", "s1"))
	assert.True(t, g.Acquire("ABC123", "s3", "u3"))
}

func TestLateReleaseKeepsNewHolder(t *testing.T) {
	g := NewGuard(time.Second)
	clock := time.Now()
	g.now = func() time.Time { return clock }

	require.True(t, g.Acquire("ABC123", "s1", "u1"))
	clock = clock.Add(2 * time.Second)

	_, held := g.Holder("ABC123")
	assert.False(t, held)
	require.True(t, g.Acquire("ABC123", "s2", "u2"), "expired lock can be taken over")

	assert.False(t, g.Release("ABC123", "s1"))
	holder, held := g.Holder("ABC123")
	require.True(t, held)
	assert.Equal(t, "s2", holder.SocketID)
}

func TestReleaseSocket(t *testing.T) {
	g := NewGuard(0)
	require.True(t, g.Acquire("AAAAAA", "s1", "u1"))
	require.True(t, g.Acquire("BBBBBB", "s1", "u1"))
	require.True(t, g.Acquire("CCCCCC", "s2", "u2"))

	released := g.ReleaseSocket("s1")
	assert.ElementsMatch(t, []string{"AAAAAA", "BBBBBB"}, released)
	assert.True(t, g.Acquire("AAAAAA", "s3", "u3"))
	assert.False(t, g.Acquire("CCCCCC", "s3", "u3"))
}

func TestPurgeIdentity(t *testing.T) {
	g := NewGuard(0)
	require.True(t, g.Acquire("ABC123", "s1", "oldId"))

	assert.Equal(t, 0, g.PurgeIdentity("ABC123", "someoneElse"))
	assert.Equal(t, 1, g.PurgeIdentity("ABC123", "oldId"))
	_, held := g.Holder("ABC123")
	assert.False(t, held)
}

func TestWithLock(t *testing.T) {
	g := NewGuard(0)

	boom := errors.New("boom")
	err := g.WithLock("ABC123", "s1", "u1", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	_, held := g.Holder("ABC123")
	assert.False(t, held, "lock is released when fn fails")

	require.True(t, g.Acquire("ABC123", "s1", "u1"))
	err = g.WithLock("ABC123", "s2", "u2", func() error { return nil })
	assert.True(t, errors.Is(err, game.ErrConcurrency))
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	g := NewGuard(0)
	var wins int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			if g.Acquire("ABC123", string(rune('a'+i)), "u") {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}
