// cmd/tilehearts/historian.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/tilehearts/internal/cache"
	"github.com/jason-s-yu/tilehearts/internal/config"
	"github.com/jason-s-yu/tilehearts/internal/database"
	"github.com/jason-s-yu/tilehearts/internal/historian"
	"github.com/spf13/cobra"
)

func newHistorianCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "historian",
		Short: "Drain the room action queue into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
				return fmt.Errorf("historian needs both REDIS_ADDR and DATABASE_URL")
			}
			logger := cfg.NewLogger()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
			if err != nil {
				return err
			}
			defer rdb.Close()

			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := historian.New(rdb, database.NewActionSink(pool), historian.Config{
				Queue:         cfg.HistorianQueue,
				BatchSize:     cfg.HistorianBatchSize,
				FlushInterval: cfg.HistorianFlush,
			}, logger)

			return svc.Run(ctx)
		},
	}
}
