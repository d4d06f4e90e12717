// cmd/tilehearts/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/auth"
	"github.com/jason-s-yu/tilehearts/internal/cache"
	"github.com/jason-s-yu/tilehearts/internal/config"
	"github.com/jason-s-yu/tilehearts/internal/coordinator"
	"github.com/jason-s-yu/tilehearts/internal/database"
	"github.com/jason-s-yu/tilehearts/internal/handlers"
	"github.com/jason-s-yu/tilehearts/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var port, backend string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("storage") {
				cfg.StorageBackend = backend
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8080", "Listen port (env: PORT)")
	cmd.Flags().StringVar(&backend, "storage", config.BackendMemory, "Storage backend: memory, redis, postgres (env: STORAGE_BACKEND)")
	return cmd
}

// backends holds the connections opened for one serve run.
type backends struct {
	store     storage.Store
	publisher coordinator.Publisher
	closers   []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends connects the configured store and, when Redis is reachable, the action queue.
func openBackends(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*backends, error) {
	b := &backends{}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		rdb = client
		b.closers = append(b.closers, func() { client.Close() })
		b.publisher = cache.NewActionPublisher(rdb, cfg.HistorianQueue)
		logger.WithField("queue", cfg.HistorianQueue).Info("publishing room actions")
	}

	switch cfg.StorageBackend {
	case config.BackendRedis:
		b.store = cache.NewStore(rdb, cfg.RoomTTL, cfg.SessionInactivity)
	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.store = database.NewStore(pool)
	default:
		b.store = storage.NewMemory()
	}
	logger.WithField("backend", cfg.StorageBackend).Info("storage ready")
	return b, nil
}

func newIssuer(cfg config.Config, logger *logrus.Logger) (*auth.Issuer, error) {
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		return auth.NewIssuerFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenExpire)
	}
	logger.Warn("JWT key paths not set, generated an ephemeral key pair; tokens will not survive a restart")
	return auth.NewIssuer(cfg.TokenExpire)
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer b.close()

	issuer, err := newIssuer(cfg, logger)
	if err != nil {
		return fmt.Errorf("load signing keys: %w", err)
	}

	coord := coordinator.New(coordinator.Config{Rules: cfg.Rules, TurnLockTimeout: cfg.TurnLockTimeout}, b.store, b.publisher, logger)
	defer coord.Close()

	server := handlers.NewServer(coord, issuer, cfg.DisconnectGrace, logger)
	defer server.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if swept := coord.SweepSessions(cfg.SessionInactivity); len(swept) > 0 {
					logger.WithField("count", len(swept)).Info("marked idle sessions inactive")
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
