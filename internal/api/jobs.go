package api

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Job statuses.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobError   = "error"
)

const (
	defaultMaxJobs        = 1000
	defaultJobConcurrency = 2
	jobCleanupInterval    = 5 * time.Minute
	subscriberBuffer      = 16
)

// Job tracks one background scan. ResultID names the persisted scan once done.
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Target     string     `json:"target,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ResultID   string     `json:"result_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// JobRequest starts a background scan. Fields mirror the synchronous scan endpoints.
type JobRequest struct {
	Type     string `json:"type"` // passive or active
	URL      string `json:"url"`
	MaxPages *int   `json:"max_pages,omitempty"`
	MaxDepth *int   `json:"max_depth,omitempty"`
	Ports    string `json:"ports,omitempty"`
	Consent  any    `json:"consent,omitempty"`
}

// JobFunc performs the work of a job and returns the ID of the stored result.
type JobFunc func(ctx context.Context) (resultID string, err error)

// JobManager runs scans in the background, bounded by a weighted semaphore, and
// fans status changes out to subscribers.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int // completed jobs beyond this are pruned
	logger      *zap.Logger

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobManager runs at most concurrency jobs at once (2 when <= 0).
func NewJobManager(concurrency int, logger *zap.Logger) *JobManager {
	if concurrency <= 0 {
		concurrency = defaultJobConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		maxJobs:     defaultMaxJobs,
		logger:      logger,
		sem:         semaphore.NewWeighted(int64(concurrency)),
		ctx:         ctx,
		cancel:      cancel,
	}
	m.wg.Add(1)
	go m.cleanupLoop()
	return m
}

// Start registers a pending job and runs fn once a slot is free.
func (m *JobManager) Start(jobType, target string, fn JobFunc) *Job {
	job := m.CreateJob(jobType, target)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.sem.Acquire(m.ctx, 1); err != nil {
			m.finish(job.ID, "", errors.New("job cancelled before start"))
			return
		}
		defer m.sem.Release(1)

		m.UpdateJob(job.ID, func(j *Job) {
			now := time.Now().UTC()
			j.Status = JobRunning
			j.StartedAt = &now
		})
		resultID, err := fn(m.ctx)
		m.finish(job.ID, resultID, err)
	}()

	return job
}

func (m *JobManager) finish(id, resultID string, err error) {
	m.UpdateJob(id, func(j *Job) {
		now := time.Now().UTC()
		j.FinishedAt = &now
		j.ResultID = resultID
		if err != nil {
			j.Status = JobError
			j.Error = err.Error()
			return
		}
		j.Status = JobDone
	})
}

// CreateJob registers a pending job without running anything.
func (m *JobManager) CreateJob(jobType, target string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Target:    target,
		Status:    JobPending,
		CreatedAt: time.Now().UTC(),
	}
	m.jobs[job.ID] = job
	m.broadcast(*job)
	copy := *job
	return &copy
}

// UpdateJob applies update under the lock and notifies subscribers.
func (m *JobManager) UpdateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(*job)
	copy := *job
	return &copy
}

// GetJob returns a copy of the job, or nil.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy
	}
	return nil
}

// ListJobs returns up to limit jobs, newest first (all when limit <= 0).
func (m *JobManager) ListJobs(limit int) []Job {
	m.mu.RLock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

// Subscribe returns a channel of job updates and a function that closes it.
func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, subscriberBuffer)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// broadcast must be called with m.mu held. Slow subscribers miss updates.
func (m *JobManager) broadcast(job Job) {
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
			m.logger.Warn("job_update_dropped",
				zap.String("job_id", job.ID),
				zap.String("status", job.Status),
			)
		}
	}
}

// SetMaxJobs configures the maximum number of jobs to retain in memory
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}

// Close cancels running jobs and waits for them to return.
func (m *JobManager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *JobManager) cleanupLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(jobCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.prune()
		}
	}
}

// prune drops the oldest finished jobs until at most maxJobs remain.
func (m *JobManager) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) <= m.maxJobs {
		return
	}

	finished := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if job.FinishedAt != nil {
			finished = append(finished, job)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].FinishedAt.Before(*finished[j].FinishedAt)
	})

	toRemove := len(m.jobs) - m.maxJobs
	if toRemove > len(finished) {
		toRemove = len(finished)
	}
	for _, job := range finished[:toRemove] {
		delete(m.jobs, job.ID)
	}
}
