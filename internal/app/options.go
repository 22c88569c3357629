package service

import (
	"github.com/groupify/groupify/internal/domain/grouping"
	"github.com/groupify/groupify/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDBPath sets the SQLite database path.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithWorkerCount sets the number of partition workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending partition jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize caps the number of rooms partitioned at once.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithIterationFactor sets refinement trials per roster member.
func WithIterationFactor(factor int) Option {
	return func(s *Service) {
		if factor >= 0 {
			s.iterationFactor = factor
		}
	}
}

// WithRandomSeed makes every partition run start from the same random
// state. 0 keeps the shared time-seeded source.
func WithRandomSeed(seed uint64) Option {
	return func(s *Service) {
		s.randomSeed = seed
	}
}

// WithSeedingMode selects the seeding objective.
func WithSeedingMode(mode grouping.SeedingMode) Option {
	return func(s *Service) {
		s.seedingMode = mode
	}
}

// WithEnergyRange bounds accepted profile energies.
func WithEnergyRange(lo, hi float64) Option {
	return func(s *Service) {
		if lo >= 0 && hi > lo {
			s.minEnergy = lo
			s.maxEnergy = hi
		}
	}
}

// WithMaxGroupSize caps requested group sizes.
func WithMaxGroupSize(size int) Option {
	return func(s *Service) {
		if size >= grouping.MinGroupSize {
			s.maxGroupSize = size
		}
	}
}

// WithMatchLimit sets the default number of matches returned.
func WithMatchLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.matchLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
