package service

import (
	"context"
	"sync"

	"github.com/groupify/groupify/internal/domain/model"
	"github.com/groupify/groupify/pkg/logger"
	"github.com/groupify/groupify/pkg/metrics"
)

// maxFinishedJobs bounds how many finished jobs stay queryable.
const maxFinishedJobs = 10_000

// jobRegistry keeps partition jobs by id.
type jobRegistry struct {
	mu       sync.RWMutex
	jobs     map[string]model.PartitionJob
	finished []string
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]model.PartitionJob)}
}

func (r *jobRegistry) Add(job model.PartitionJob) { //nolint:gocritic // hugeParam
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

func (r *jobRegistry) Get(id string) (model.PartitionJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if ok {
		job.GroupIDs = append([]string(nil), job.GroupIDs...)
	}
	return job, ok
}

func (r *jobRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

func (r *jobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// update applies fn to the stored job and returns the result.
func (r *jobRegistry) update(id string, fn func(*model.PartitionJob)) (model.PartitionJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return model.PartitionJob{}, false
	}
	wasTerminal := job.Status.Terminal()
	fn(&job)
	r.jobs[id] = job

	if job.Status.Terminal() && !wasTerminal {
		r.finished = append(r.finished, id)
		for len(r.finished) > maxFinishedJobs {
			delete(r.jobs, r.finished[0])
			r.finished = r.finished[1:]
		}
	}
	return job, true
}

// partitionRunner lets the worker pool run partitions through the service.
type partitionRunner struct{ s *Service }

func (p partitionRunner) Partition(ctx context.Context, job model.PartitionJob) ([]string, error) { //nolint:gocritic // hugeParam
	groups, err := p.s.partition(ctx, job.RoomID, job.GroupSize)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids, nil
}

// jobReporter records job transitions and frees the room when a job ends.
type jobReporter struct{ s *Service }

func (r jobReporter) Running(_ context.Context, jobID string) {
	r.s.jobs.update(jobID, func(j *model.PartitionJob) {
		j.Status = model.JobRunning
	})
}

func (r jobReporter) Complete(ctx context.Context, jobID string, groupIDs []string, err error) {
	job, ok := r.s.jobs.Get(jobID)
	if !ok {
		r.s.logger.Warn(ctx, "completed job is not registered", logger.String("jobID", jobID))
		return
	}
	// Free the room before the job turns terminal so a caller polling the
	// job can resubmit straight away.
	r.s.release(ctx, job.RoomID)

	r.s.jobs.update(jobID, func(j *model.PartitionJob) {
		j.FinishedAt = r.s.now()
		if err != nil {
			j.Status = model.JobFailed
			j.Error = err.Error()
			return
		}
		j.Status = model.JobDone
		j.GroupIDs = groupIDs
	})

	if err != nil {
		metrics.RecordJobFinished(metrics.OutcomeFailed)
		return
	}
	metrics.RecordJobFinished(metrics.OutcomeDone)
}
