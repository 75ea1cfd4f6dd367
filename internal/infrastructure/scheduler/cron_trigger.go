package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StaleWarehouseSource lists warehouses whose stock needs a refresh
type StaleWarehouseSource interface {
	StaleWarehouseIDs(ctx context.Context) ([]uuid.UUID, error)
}

// JobSubmitter accepts sync jobs
type JobSubmitter interface {
	Submit(job *Job) error
}

// CronTrigger enqueues a sync job for every stale warehouse on a fixed
// interval, and once right after start.
type CronTrigger struct {
	interval  time.Duration
	source    StaleWarehouseSource
	submitter JobSubmitter
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   time.Time
}

// NewCronTrigger creates a new stale sweep trigger
func NewCronTrigger(interval time.Duration, source StaleWarehouseSource, submitter JobSubmitter, logger *zap.Logger) *CronTrigger {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		interval:  interval,
		source:    source,
		submitter: submitter,
		logger:    logger.Named("stock_sync_cron"),
	}
}

// Start starts the sweep loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Stale stock sweep started", zap.Duration("interval", c.interval))
	return nil
}

// Stop stops the sweep loop
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Stale stock sweep stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastRun returns the start time of the most recent sweep
func (c *CronTrigger) LastRun() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep submits one job per stale warehouse and returns how many were
// queued. Warehouses already queued are skipped silently.
func (c *CronTrigger) Sweep(ctx context.Context) int {
	c.mu.Lock()
	c.lastRun = time.Now()
	c.mu.Unlock()

	ids, err := c.source.StaleWarehouseIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to list stale warehouses", zap.Error(err))
		return 0
	}

	queued := 0
	for _, id := range ids {
		err := c.submitter.Submit(NewJob(id, ReasonSweep))
		switch {
		case err == nil:
			queued++
		case errors.Is(err, ErrJobAlreadyQueued):
		case errors.Is(err, ErrJobQueueFull):
			c.logger.Warn("Sync queue full, remaining stale warehouses wait for the next sweep",
				zap.Int("queued", queued),
				zap.Int("stale", len(ids)),
			)
			return queued
		default:
			c.logger.Error("Failed to submit sync job",
				zap.String("warehouse_id", id.String()),
				zap.Error(err),
			)
		}
	}

	if len(ids) > 0 {
		c.logger.Info("Stale warehouses queued for sync", zap.Int("stale", len(ids)), zap.Int("queued", queued))
	}
	return queued
}
