// Package service implements room, profile and grouping operations on top of
// the store, the partition engine and the background job workers.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/groupify/groupify/internal/adapters/mq/queue"
	workerpool "github.com/groupify/groupify/internal/adapters/mq/worker"
	"github.com/groupify/groupify/internal/adapters/repository"
	"github.com/groupify/groupify/internal/domain/dedupe"
	"github.com/groupify/groupify/internal/domain/grouping"
	"github.com/groupify/groupify/internal/domain/match"
	"github.com/groupify/groupify/pkg/logger"
	"github.com/groupify/groupify/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service implements the API dependencies for groupify.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	inflight   dedupe.Tracker
	jobQueue   *jobqueue.InMemoryQueue
	workerPool *workerpool.Pool
	jobs       *jobRegistry
	matcher    *match.Matcher

	// Configuration
	dbPath          string
	workerCount     int
	queueSize       int
	dedupeSize      int
	iterationFactor int
	randomSeed      uint64
	seedingMode     grouping.SeedingMode
	minEnergy       float64
	maxEnergy       float64
	maxGroupSize    int
	matchLimit      int

	now   func() time.Time
	newID func() string

	started  bool
	stopping bool
	logger   logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:          repository.MemoryPath,
		workerCount:     runtime.NumCPU(),
		queueSize:       1024,
		dedupeSize:      10_000,
		iterationFactor: grouping.DefaultIterationFactor,
		seedingMode:     grouping.SeedingLegacy,
		minEnergy:       0,
		maxEnergy:       6,
		maxGroupSize:    100,
		matchLimit:      match.DefaultLimit,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting groupify service...", logger.String("db", s.dbPath))

	store, err := repository.NewSQLiteStore(s.dbPath, repository.WithClock(s.now), repository.WithIDGenerator(s.newID))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.store = store
	s.inflight = dedupe.NewInMemoryTracker(dedupe.WithMaxSize(s.dedupeSize))
	s.jobs = newJobRegistry()
	s.matcher = match.NewMatcher(s.minEnergy, s.maxEnergy)
	s.jobQueue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))

	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, partitionRunner{s}, jobReporter{s},
		workerpool.WithLogger(s.logger.Named("worker")))
	// Workers outlive the start context; Stop drains them.
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "groupify service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("seedingMode", s.seedingMode.String()),
	)

	return nil
}

// Stop drains queued jobs and closes the store. Workers keep using the
// store while draining, so the lock is not held across the drain.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pool, store := s.workerPool, s.store
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping groupify service...")

	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}

	s.mu.Lock()
	s.started = false
	s.stopping = false
	s.mu.Unlock()

	if err := store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	s.logger.Info(ctx, "groupify service stopped")
}

// Started reports whether Start has completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) storeOrErr() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"maxGroupSize": s.maxGroupSize,
		"seedingMode":  s.seedingMode.String(),
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["inFlight"] = s.inflight.Size()
		stats["jobs"] = s.jobs.Len()

		if st, err := s.store.Stats(ctx); err == nil {
			stats["rooms"] = st.Rooms
			stats["members"] = st.Members
			stats["groups"] = st.Groups
		} else {
			s.logger.Warn(ctx, "store stats failed", logger.Error(err))
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdatePartitionsInFlight(s.inflight.Size())
	}

	return stats
}
