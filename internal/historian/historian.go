// internal/historian/historian.go is an asynchronous consumer that pops room actions from a
// Redis queue and persists them in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink persists a batch of actions. database.ActionSink is the production implementation.
type Sink interface {
	WriteActions(ctx context.Context, batch []models.RoomAction) error
}

// Config controls batching.
type Config struct {
	Queue         string
	BatchSize     int
	FlushInterval time.Duration
	PollTimeout   time.Duration // BLPop timeout, bounds how long shutdown can take
}

// Service drains the action queue into a Sink.
type Service struct {
	rdb  *redis.Client
	sink Sink
	cfg  Config
	log  *logrus.Logger

	batchMu sync.Mutex
	batch   []models.RoomAction
}

// New constructs a Service, filling zero config values with defaults.
func New(rdb *redis.Client, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	if cfg.Queue == "" {
		cfg.Queue = "tilehearts_actions"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 3 * time.Second
	}
	return &Service{
		rdb:   rdb,
		sink:  sink,
		cfg:   cfg,
		log:   logger,
		batch: make([]models.RoomAction, 0, cfg.BatchSize),
	}
}

// Run reads from the queue until ctx is cancelled, flushing whenever the batch fills or the
// flush interval elapses. Whatever is buffered at shutdown is flushed before returning.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	s.log.WithField("queue", s.cfg.Queue).Info("historian started")
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.flush(flushCtx)
			cancel()
			s.log.Info("historian stopped")
			return nil

		case <-ticker.C:
			s.flush(ctx)

		default:
			res, err := s.rdb.BLPop(ctx, s.cfg.PollTimeout, s.cfg.Queue).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				s.log.WithError(err).Error("BLPop failed")
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record models.RoomAction
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				s.log.WithError(err).Warn("invalid action record")
				continue
			}
			s.appendToBatch(ctx, record)
		}
	}
}

func (s *Service) appendToBatch(ctx context.Context, record models.RoomAction) {
	s.batchMu.Lock()
	s.batch = append(s.batch, record)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.flush(ctx)
	}
}

// flush writes the buffered batch to the sink. A failed batch is logged and dropped.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batchCopy := make([]models.RoomAction, len(s.batch))
	copy(batchCopy, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.WriteActions(ctx, batchCopy); err != nil {
		s.log.WithError(err).WithField("count", len(batchCopy)).Error("failed to flush actions")
		return
	}
	s.log.WithField("count", len(batchCopy)).Debug("flushed actions")
}
