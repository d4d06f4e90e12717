// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_BACKEND", "TOKEN_EXPIRE_TIME", "TURN_LOCK_TIMEOUT", "DISCONNECT_GRACE", "HISTORIAN_BATCH_SIZE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Zero(t, cfg.TokenExpire)
	assert.Equal(t, 10*time.Second, cfg.TurnLockTimeout)
	assert.Equal(t, 30*time.Second, cfg.DisconnectGrace)
	assert.Equal(t, 20, cfg.HistorianBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlush)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TOKEN_EXPIRE_TIME", "72h")
	t.Setenv("DISCONNECT_GRACE", "5s")
	t.Setenv("HISTORIAN_BATCH_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, BackendRedis, cfg.StorageBackend)
	assert.Equal(t, 72*time.Hour, cfg.TokenExpire)
	assert.Equal(t, 5*time.Second, cfg.DisconnectGrace)
	assert.Equal(t, 20, cfg.HistorianBatchSize, "bad integers fall back to the default")
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("TURN_LOCK_TIMEOUT", "ten seconds")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("TURN_LOCK_TIMEOUT", "")
	t.Setenv("STORAGE_BACKEND", "mongo")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("RULES_JSON", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, game.DefaultRules(), cfg.Rules)

	t.Setenv("RULES_JSON", `{"heartsPerTurn": 3, "shieldDuration": 3}`)
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Rules.HeartsPerTurn)
	assert.Equal(t, 3, cfg.Rules.ShieldDuration)
	assert.Equal(t, game.DefaultRules().MagicPerTurn, cfg.Rules.MagicPerTurn)

	t.Setenv("RULES_JSON", `{"heartsPerTurn": "many"}`)
	_, err = Load()
	assert.ErrorContains(t, err, "invalid RULES_JSON")

	t.Setenv("RULES_JSON", `not json`)
	_, err = Load()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, Config{LogLevel: "debug"}.NewLogger().GetLevel())
	assert.Equal(t, logrus.InfoLevel, Config{LogLevel: "loud"}.NewLogger().GetLevel())
}
