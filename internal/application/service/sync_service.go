// Package service coordinates sync jobs: single-flight locking, background
// execution and stale-run cleanup.
package service

import (
	"context"
	"errors"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/woodpower/baselinker-sync-backend/internal/application/sync"
)

// ErrSyncInProgress is returned when a run is requested while another is
// still holding the run lock.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// Job statuses.
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job tracks one background sync invocation.
type Job struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Error      string       `json:"error,omitempty"`
	Report     *sync.Report `json:"report,omitempty"`
}

// Runner is the orchestrator surface the service drives.
type Runner interface {
	Run(ctx context.Context, params sync.Params) (*sync.Report, error)
	RunPaidOrders(ctx context.Context) (*sync.Report, error)
}

// StaleRunStore marks crashed runs as failed.
type StaleRunStore interface {
	MarkStaleRunsFailed() (int, error)
}

// SyncService serializes sync runs. Two concurrent runs would race on the
// dedup check and the id allocator, so the run lock is mandatory, not a
// convenience.
type SyncService struct {
	runner Runner
	store  StaleRunStore
	logger *slog.Logger

	runLock stdsync.Mutex

	mu   stdsync.Mutex
	jobs map[string]*Job
}

// NewSyncService creates a SyncService.
func NewSyncService(runner Runner, store StaleRunStore, logger *slog.Logger) *SyncService {
	return &SyncService{
		runner: runner,
		store:  store,
		logger: logger,
		jobs:   make(map[string]*Job),
	}
}

// RunAndWait executes a run synchronously under the run lock.
func (s *SyncService) RunAndWait(ctx context.Context, params sync.Params) (*sync.Report, error) {
	if !s.runLock.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.runLock.Unlock()

	return s.runner.Run(ctx, params)
}

// StartBackground launches a run in the background and returns its job id.
// The job keeps running after the triggering request ends, so it gets a
// fresh context rather than the request's.
func (s *SyncService) StartBackground(params sync.Params) (string, error) {
	if !s.runLock.TryLock() {
		return "", ErrSyncInProgress
	}

	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go func() {
		defer s.runLock.Unlock()

		report, err := s.runner.Run(context.Background(), params)

		now := time.Now().UTC()
		s.mu.Lock()
		defer s.mu.Unlock()
		job.FinishedAt = &now
		if err != nil {
			job.Status = JobStatusFailed
			job.Error = err.Error()
			s.logger.Error("background sync failed", "job_id", job.ID, "error", err)
			return
		}
		job.Status = JobStatusCompleted
		job.Report = report
	}()

	s.logger.Info("background sync started", "job_id", job.ID)
	return job.ID, nil
}

// RunPaidOrders executes the scheduled paid-orders variant under the run
// lock.
func (s *SyncService) RunPaidOrders(ctx context.Context) (*sync.Report, error) {
	if !s.runLock.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.runLock.Unlock()

	return s.runner.RunPaidOrders(ctx)
}

// GetJob returns a job by id.
func (s *SyncService) GetJob(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// StartBackgroundCleanup sweeps stale in_progress runs on an interval until
// the context is cancelled.
func (s *SyncService) StartBackgroundCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.store.MarkStaleRunsFailed()
				if err != nil {
					s.logger.Error("stale run cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					s.logger.Warn("marked stale sync runs as failed", "count", n)
				}
			}
		}
	}()
}
