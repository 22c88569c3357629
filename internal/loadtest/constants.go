package loadtest

import "time"

// Defaults applied by Config.withDefaults.
const (
	DefaultMembers      = 200
	DefaultGroupSize    = 5
	DefaultPollInterval = 50 * time.Millisecond
	maxEnergy           = 6.0
)

// Job states reported by the service.
const (
	jobDone   = "done"
	jobFailed = "failed"
)
