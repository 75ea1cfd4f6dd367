// Package scheduler runs warehouse stock sync jobs on a bounded worker pool
// and periodically enqueues warehouses whose stock has gone stale.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// JobStatus represents the status of a sync job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobReason records why a sync was requested
type JobReason string

const (
	ReasonSweep     JobReason = "sweep"
	ReasonStaleRead JobReason = "stale_read"
	ReasonManual    JobReason = "manual"
)

// Job is one stock sync of one warehouse
type Job struct {
	ID          uuid.UUID
	WarehouseID uuid.UUID
	Reason      JobReason
	Status      JobStatus
	Attempts    int
	Error       string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewJob creates a pending job
func NewJob(warehouseID uuid.UUID, reason JobReason) *Job {
	return &Job{
		ID:          uuid.New(),
		WarehouseID: warehouseID,
		Reason:      reason,
		Status:      JobStatusPending,
		EnqueuedAt:  time.Now(),
	}
}

func (j *Job) start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

func (j *Job) finish(err error) {
	now := time.Now()
	j.CompletedAt = &now
	if err != nil {
		j.Status = JobStatusFailed
		j.Error = err.Error()
		return
	}
	j.Status = JobStatusSuccess
	j.Error = ""
}

// JobExecutor runs a single sync attempt
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// ExecutorFunc adapts a function to JobExecutor
type ExecutorFunc func(ctx context.Context, job *Job) error

// Execute calls f(ctx, job)
func (f ExecutorFunc) Execute(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// SchedulerConfig holds worker pool settings
type SchedulerConfig struct {
	Workers              int
	QueueSize            int
	JobTimeout           time.Duration
	RetryAttempts        int // total attempts, including the first
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:              4,
		QueueSize:            64,
		JobTimeout:           2 * time.Minute,
		RetryAttempts:        3,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     30 * time.Second,
	}
}

// ConfigFromStockSync derives pool settings from application configuration
func ConfigFromStockSync(cfg config.StockSyncConfig) SchedulerConfig {
	c := DefaultSchedulerConfig()
	if cfg.Workers > 0 {
		c.Workers = cfg.Workers
	}
	if cfg.QueueSize > 0 {
		c.QueueSize = cfg.QueueSize
	}
	if cfg.JobTimeout > 0 {
		c.JobTimeout = cfg.JobTimeout
	}
	if cfg.RetryAttempts > 0 {
		c.RetryAttempts = cfg.RetryAttempts
	}
	return c
}

// Scheduler is a fixed-size worker pool for sync jobs. A warehouse is
// queued at most once at a time.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	queued    map[uuid.UUID]struct{}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaults.JobTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = defaults.RetryInitialInterval
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = defaults.RetryMaxInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   cfg,
		executor: executor,
		logger:   logger.Named("stock_sync_scheduler"),
		jobs:     make(chan *Job, cfg.QueueSize),
		queued:   make(map[uuid.UUID]struct{}),
	}
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Stock sync scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Int("queue_size", s.config.QueueSize),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Stock sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Stock sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job without blocking
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	if _, ok := s.queued[job.WarehouseID]; ok {
		return ErrJobAlreadyQueued
	}

	select {
	case s.jobs <- job:
		s.queued[job.WarehouseID] = struct{}{}
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("warehouse_id", job.WarehouseID.String()),
			zap.String("reason", string(job.Reason)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Enqueue is a convenience for Submit(NewJob(warehouseID, reason)).
func (s *Scheduler) Enqueue(warehouseID uuid.UUID, reason JobReason) error {
	return s.Submit(NewJob(warehouseID, reason))
}

// QueueLength returns the number of jobs waiting for a worker
func (s *Scheduler) QueueLength() int {
	return len(s.jobs)
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.release(job)
			s.processJob(ctx, job, workerID)
		}
	}
}

// release lets the warehouse be queued again once a worker picked it up.
func (s *Scheduler) release(job *Job) {
	s.mu.Lock()
	delete(s.queued, job.WarehouseID)
	s.mu.Unlock()
}

// processJob runs the job, retrying with exponential backoff while the
// failure is a retryable integration error.
func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.start()
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("warehouse_id", job.WarehouseID.String()),
	)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.config.RetryInitialInterval
	policy.MaxInterval = s.config.RetryMaxInterval
	policy.MaxElapsedTime = 0
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.config.RetryAttempts-1)), ctx)

	operation := func() error {
		job.Attempts++
		jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()

		err := s.executor.Execute(jobCtx, job)
		if err != nil && !integration.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("Job attempt failed, retrying",
			zap.Int("attempt", job.Attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(operation, retry, notify)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	job.finish(err)

	if err != nil {
		log.Error("Job failed", zap.Int("attempts", job.Attempts), zap.Error(err))
		return
	}
	log.Info("Job completed", zap.Int("attempts", job.Attempts), zap.String("reason", string(job.Reason)))
}
