package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/groupify/groupify/pkg/logger"
)

// ErrJobFailed is returned when the partition job ends in failure.
var ErrJobFailed = errors.New("partition job failed")

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Members <= 0 {
		c.Members = DefaultMembers
	}
	if c.GroupSize <= 0 {
		c.GroupSize = DefaultGroupSize
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Run executes the complete roster load test and returns its statistics.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	config := cfg.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(config.BaseURL, config.Timeout)

	logger.Get().Info(ctx, "starting roster load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("members", config.Members),
		logger.Int("groupSize", config.GroupSize),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
	)

	// Step 1: Check service health
	if err := client.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate the roster
	members := generateMembers(ctx, &config, stats)

	// Step 3: Create the room
	var room Room
	req := map[string]string{"name": "load test " + time.Now().UTC().Format(time.RFC3339), "owner_id": "roster-load"}
	if err := client.do(ctx, http.MethodPost, "/rooms", req, http.StatusCreated, &room); err != nil {
		return stats, fmt.Errorf("create room: %w", err)
	}

	// Step 4: Join members and submit profiles concurrently
	if err := enrollMembers(ctx, client, &config, room.ID, members, stats); err != nil {
		return stats, err
	}

	// Step 5: Request groups and wait for the job
	job, err := requestGroups(ctx, client, &config, room.ID, stats)
	if err != nil {
		return stats, err
	}

	// Step 6: Fetch and verify the stored groups
	var groups []Group
	if err := client.do(ctx, http.MethodGet, "/rooms/"+room.ID+"/groups", nil, http.StatusOK, &groups); err != nil {
		return stats, fmt.Errorf("fetch groups: %w", err)
	}
	if len(job.GroupIDs) != len(groups) {
		return stats, fmt.Errorf("%w: job reports %d groups, room has %d", ErrVerification, len(job.GroupIDs), len(groups))
	}
	if err := verifyGroups(ctx, members, groups, config.GroupSize, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "test completed successfully", logger.String("roomID", room.ID))
	return stats, nil
}

// requestGroups submits the partition and polls the job until it ends.
func requestGroups(ctx context.Context, client *HTTPClient, config *Config, roomID string, stats *Stats) (Job, error) {
	var job Job
	body := map[string]int{"group_size": config.GroupSize}
	if err := client.do(ctx, http.MethodPost, "/rooms/"+roomID+"/groups", body, http.StatusAccepted, &job); err != nil {
		return job, fmt.Errorf("request groups: %w", err)
	}
	logger.Get().Info(ctx, "partition requested", logger.String("jobID", job.ID))

	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()

	for job.Status != jobDone && job.Status != jobFailed {
		select {
		case <-ctx.Done():
			return job, fmt.Errorf("waiting for job %s: %w", job.ID, ctx.Err())
		case <-ticker.C:
		}
		if err := client.do(ctx, http.MethodGet, "/jobs/"+job.ID, nil, http.StatusOK, &job); err != nil {
			return job, fmt.Errorf("poll job: %w", err)
		}
		stats.JobPolls++
		if config.Verbose {
			logger.Get().Debug(ctx, "job polled", logger.String("status", job.Status))
		}
	}

	if job.Status == jobFailed {
		return job, fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
	}
	return job, nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var membersPerSecond float64
	if stats.Duration > 0 {
		membersPerSecond = float64(stats.MembersJoined) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("membersGenerated", stats.MembersGenerated),
		logger.Int("membersJoined", stats.MembersJoined),
		logger.Int("profilesSubmitted", stats.ProfilesSubmitted),
		logger.Int("failures", stats.Failures),
		logger.Int("jobPolls", stats.JobPolls),
		logger.Int("groups", stats.Groups),
		logger.Int("smallestGroup", stats.SmallestGroup),
		logger.Int("largestGroup", stats.LargestGroup),
		logger.Float64("spread", stats.Spread),
		logger.Duration("duration", stats.Duration),
		logger.Float64("membersPerSecond", membersPerSecond),
	)
}
