package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/mlplayground/internal/grid"
	"github.com/cwbudde/mlplayground/internal/search"
	"github.com/cwbudde/mlplayground/internal/store"
	"github.com/google/uuid"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the job has stopped for good.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
)

// JobConfig is an alias to avoid duplication with store.JobConfig
type JobConfig = store.JobConfig

// Job is a search run on one grid.
type Job struct {
	ID         string         `json:"id"`
	State      JobState       `json:"state"`
	Config     JobConfig      `json:"config"`
	Rows       int            `json:"rows"`
	Cols       int            `json:"cols"`
	Start      grid.Cell      `json:"start"`
	StartValue float64        `json:"startValue"`
	Current    grid.Cell      `json:"current"`
	Best       grid.Cell      `json:"best"`
	BestValue  float64        `json:"bestValue"`
	Phase      search.Phase   `json:"phase,omitempty"`
	Iterations int            `json:"iterations"`
	Result     *search.Result `json:"result,omitempty"`
	StartTime  time.Time      `json:"startTime"`
	EndTime    *time.Time     `json:"endTime,omitempty"`
	Error      string         `json:"error,omitempty"`

	grid    *grid.Grid
	stepper search.Stepper
	cancel  context.CancelFunc
}

// Grid returns the searched grid. It is never modified after creation.
func (j *Job) Grid() *grid.Grid {
	return j.grid
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job searching g with s.
func (jm *JobManager) CreateJob(config JobConfig, g *grid.Grid, s search.Stepper) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	res := s.Result()
	job := &Job{
		ID:         uuid.New().String(),
		State:      StatePending,
		Config:     config,
		Rows:       g.Rows(),
		Cols:       g.Cols(),
		Start:      res.Start,
		StartValue: res.StartValue,
		Current:    res.Start,
		Best:       res.Best,
		BestValue:  res.BestValue,
		StartTime:  time.Now(),
		grid:       g,
		stepper:    s,
	}

	jm.jobs[job.ID] = job
	cp := *job
	return &cp
}

// GetJob returns a snapshot of the job. Later updates are not reflected in
// the returned value.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	cp := *job
	return &cp, true
}

// ListJobs returns snapshots of all jobs, oldest first.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		cp := *job
		jobs = append(jobs, &cp)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].StartTime.Equal(jobs[j].StartTime) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			cp := *job
			runningJobs = append(runningJobs, &cp)
		}
	}
	return runningJobs
}

// setCancel attaches the function that stops the job's worker.
func (jm *JobManager) setCancel(id string, cancel context.CancelFunc) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if job, ok := jm.jobs[id]; ok {
		job.cancel = cancel
	}
}

// CancelJob stops a pending or running job. The worker marks it cancelled
// once the current step returns.
func (jm *JobManager) CancelJob(id string) error {
	jm.mu.Lock()
	job, exists := jm.jobs[id]
	if !exists {
		jm.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.State.Terminal() {
		jm.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrJobFinished, id, job.State)
	}
	cancel := job.cancel
	jm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// CancelAll stops every unfinished job, used on shutdown.
func (jm *JobManager) CancelAll() {
	jm.mu.RLock()
	var cancels []context.CancelFunc
	for _, job := range jm.jobs {
		if !job.State.Terminal() && job.cancel != nil {
			cancels = append(cancels, job.cancel)
		}
	}
	jm.mu.RUnlock()

	for _, cancel := range cancels {
		cancel()
	}
}
