package service

import "errors"

// Sentinel kinds for service errors. Domain and repository sentinels are
// passed through wrapped, so callers match those with errors.Is as well.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrBackpressure  = errors.New("partition queue is full")
	ErrJobNotFound   = errors.New("job not found")
	ErrInvalidMember = errors.New("member id must not be empty")
)
