// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/auth"
	"github.com/jason-s-yu/tilehearts/internal/game"
	"github.com/sirupsen/logrus"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port           string
	LogLevel       string
	StorageBackend string

	RedisAddr   string
	RedisDB     int
	DatabaseURL string

	TokenExpire    time.Duration
	PrivateKeyPath string
	PublicKeyPath  string

	// Rules are DefaultRules with any RULES_JSON overrides applied.
	Rules game.Rules

	TurnLockTimeout      time.Duration
	DisconnectGrace      time.Duration
	SessionInactivity    time.Duration
	SessionSweepInterval time.Duration
	RoomTTL              time.Duration

	HistorianQueue     string
	HistorianBatchSize int
	HistorianFlush     time.Duration
}

// Load reads the configuration. Missing values take their defaults; malformed values are errors.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", BackendMemory)),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		PrivateKeyPath:     getEnv("JWT_PRIVATE_KEY_PATH", ""),
		PublicKeyPath:      getEnv("JWT_PUBLIC_KEY_PATH", ""),
		HistorianQueue:     getEnv("HISTORIAN_QUEUE_NAME", "tilehearts_actions"),
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}

	var err error
	if cfg.TokenExpire, err = auth.ParseTokenExpireTime(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return Config{}, err
	}
	if cfg.Rules, err = loadRules(os.Getenv("RULES_JSON")); err != nil {
		return Config{}, err
	}
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"TURN_LOCK_TIMEOUT", 10 * time.Second, &cfg.TurnLockTimeout},
		{"DISCONNECT_GRACE", 30 * time.Second, &cfg.DisconnectGrace},
		{"SESSION_INACTIVITY", 30 * time.Minute, &cfg.SessionInactivity},
		{"SESSION_SWEEP_INTERVAL", 5 * time.Minute, &cfg.SessionSweepInterval},
		{"ROOM_TTL", 24 * time.Hour, &cfg.RoomTTL},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvDuration(d.key, d.def); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected storage backend has what it needs.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORAGE_BACKEND=%s", BackendRedis)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// loadRules applies a JSON object of rule overrides, e.g. {"heartsPerTurn": 3}, on top of
// the defaults.
func loadRules(raw string) (game.Rules, error) {
	if strings.TrimSpace(raw) == "" {
		return game.DefaultRules(), nil
	}
	var overrides map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return game.Rules{}, fmt.Errorf("invalid RULES_JSON: %w", err)
	}
	rules, err := game.ParseRules(overrides, game.DefaultRules())
	if err != nil {
		return game.Rules{}, fmt.Errorf("invalid RULES_JSON: %w", err)
	}
	return rules, nil
}

// NewLogger builds the process logger at cfg.LogLevel, falling back to info.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.WithField("level", c.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

func getEnvDuration(key string, defVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
