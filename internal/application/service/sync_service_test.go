package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodpower/baselinker-sync-backend/internal/application/sync"
)

type fakeRunner struct {
	report  *sync.Report
	err     error
	block   chan struct{}
	runs    atomic.Int32
	cronRun atomic.Int32
}

func (f *fakeRunner) Run(_ context.Context, _ sync.Params) (*sync.Report, error) {
	f.runs.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.report, f.err
}

func (f *fakeRunner) RunPaidOrders(_ context.Context) (*sync.Report, error) {
	f.cronRun.Add(1)
	return f.report, f.err
}

type fakeStaleStore struct {
	marked atomic.Int32
}

func (f *fakeStaleStore) MarkStaleRunsFailed() (int, error) {
	f.marked.Add(1)
	return 1, nil
}

func newTestService(runner *fakeRunner) *SyncService {
	return NewSyncService(runner, &fakeStaleStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunAndWaitReturnsReport(t *testing.T) {
	runner := &fakeRunner{report: &sync.Report{Success: true, ProductsCreated: 3}}
	s := newTestService(runner)

	report, err := s.RunAndWait(context.Background(), sync.Params{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.ProductsCreated)
}

func TestConcurrentRunsAreRejected(t *testing.T) {
	runner := &fakeRunner{report: &sync.Report{}, block: make(chan struct{})}
	s := newTestService(runner)

	jobID, err := s.StartBackground(sync.Params{})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	_, err = s.RunAndWait(context.Background(), sync.Params{})
	assert.ErrorIs(t, err, ErrSyncInProgress)

	_, err = s.StartBackground(sync.Params{})
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(runner.block)

	require.Eventually(t, func() bool {
		job, err := s.GetJob(jobID)
		return err == nil && job.Status == JobStatusCompleted
	}, time.Second, 10*time.Millisecond)

	// The lock is free again.
	_, err = s.RunAndWait(context.Background(), sync.Params{})
	assert.NoError(t, err)
}

func TestBackgroundJobRecordsFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	s := newTestService(runner)

	jobID, err := s.StartBackground(sync.Params{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := s.GetJob(jobID)
		return err == nil && job.Status == JobStatusFailed
	}, time.Second, 10*time.Millisecond)

	job, err := s.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, "boom", job.Error)
	assert.NotNil(t, job.FinishedAt)
}

func TestGetJobUnknownID(t *testing.T) {
	s := newTestService(&fakeRunner{})

	_, err := s.GetJob("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunPaidOrdersUsesCronVariant(t *testing.T) {
	runner := &fakeRunner{report: &sync.Report{Success: true}}
	s := newTestService(runner)

	_, err := s.RunPaidOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), runner.cronRun.Load())
	assert.Equal(t, int32(0), runner.runs.Load())
}

func TestBackgroundCleanupSweeps(t *testing.T) {
	store := &fakeStaleStore{}
	s := NewSyncService(&fakeRunner{}, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.StartBackgroundCleanup(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return store.marked.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}
