package grouping

import "math/rand/v2"

// DefaultIterationFactor is the number of swap trials per roster member.
const DefaultIterationFactor = 10

// Option configures a Partition run.
type Option func(*options)

type options struct {
	iterations    int
	iterationsSet bool
	factor        int
	rng           Rand
	mode          SeedingMode
	existing      int
}

// WithIterations fixes the number of swap trials. Negative values are ignored.
func WithIterations(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.iterations = n
			o.iterationsSet = true
		}
	}
}

// WithIterationFactor sets the swap trials per member used when no explicit
// iteration count is given.
func WithIterationFactor(f int) Option {
	return func(o *options) {
		if f >= 0 {
			o.factor = f
		}
	}
}

// WithRand sets the random source for refinement.
func WithRand(r Rand) Option {
	return func(o *options) {
		if r != nil {
			o.rng = r
		}
	}
}

// WithSeedingMode selects the seeding objective.
func WithSeedingMode(m SeedingMode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithExistingGroups tells Run how many groups the roster's scope already
// has. Any positive count makes Run fail with ErrAlreadyPartitioned.
func WithExistingGroups(n int) Option {
	return func(o *options) {
		o.existing = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		factor: DefaultIterationFactor,
		rng:    defaultRand{},
		mode:   SeedingLegacy,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) trials(n int) int {
	if o.iterationsSet {
		return o.iterations
	}
	return o.factor * n
}

// defaultRand draws from the goroutine-safe top-level math/rand/v2 source.
type defaultRand struct{}

func (defaultRand) IntN(n int) int { return rand.IntN(n) }

// NewRand returns a deterministic random source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
