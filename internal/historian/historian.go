// internal/historian/historian.go drains judged rounds from a Redis list and
// persists them to PostgreSQL in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jason-s-yu/czar/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Queue yields raw payloads. ok is false when timeout passed with nothing.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (payload string, ok bool, err error)
}

// Store persists a batch of rounds atomically.
type Store interface {
	InsertRoundResults(ctx context.Context, results []models.RoundResult) error
}

// RedisQueue pops from a Redis list with BLPOP.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue reads the list called name.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	res, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	// res[0] is the list name, res[1] the payload.
	if len(res) < 2 {
		return "", false, nil
	}
	return res[1], true, nil
}

const (
	defaultBatchSize = 20
	defaultFlush     = 2 * time.Second
	retryDelay       = time.Second
)

// Options tunes batching.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Service moves rounds from a Queue to a Store. It is single goroutine:
// Run owns the batch.
type Service struct {
	queue     Queue
	store     Store
	batchSize int
	flush     time.Duration
	logger    logrus.FieldLogger

	batch     []models.RoundResult
	lastFlush time.Time
}

// New builds a Service. Non-positive options take their defaults.
func New(queue Queue, store Store, opts Options, logger logrus.FieldLogger) *Service {
	if opts.BatchSize < 1 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlush
	}
	return &Service{
		queue:     queue,
		store:     store,
		batchSize: opts.BatchSize,
		flush:     opts.FlushInterval,
		logger:    logger,
		batch:     make([]models.RoundResult, 0, opts.BatchSize),
	}
}

// Run pops rounds until ctx is done, flushing whenever the batch is full
// or the flush interval has passed. Whatever is pending at shutdown is
// flushed before Run returns.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("historian started")
	s.lastFlush = time.Now()

	for {
		payload, ok, err := s.queue.Pop(ctx, s.flush)
		if ok {
			s.add(payload)
		}
		if ctx.Err() != nil {
			s.shutdown()
			return nil
		}
		if err != nil {
			s.logger.WithError(err).Error("queue pop failed")
			select {
			case <-ctx.Done():
				s.shutdown()
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}
		if len(s.batch) >= s.batchSize || time.Since(s.lastFlush) >= s.flush {
			s.flushBatch(ctx)
		}
	}
}

func (s *Service) add(payload string) {
	var rec models.RoundResult
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.logger.WithError(err).Warn("invalid round record")
		return
	}
	s.batch = append(s.batch, rec)
}

// flushBatch writes the batch. On failure the batch is kept for the next
// attempt.
func (s *Service) flushBatch(ctx context.Context) {
	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}
	if err := s.store.InsertRoundResults(ctx, s.batch); err != nil {
		s.logger.WithError(err).WithField("pending", len(s.batch)).Error("flush failed")
		return
	}
	s.logger.WithField("rounds", len(s.batch)).Debug("flushed rounds")
	s.batch = s.batch[:0]
}

func (s *Service) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flushBatch(ctx)
	s.logger.WithField("unflushed", len(s.batch)).Info("historian shutting down")
}
