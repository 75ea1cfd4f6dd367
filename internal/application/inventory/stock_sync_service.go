// Package inventory reconciles warehouse stock with the ERP.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/scheduler"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFreshnessThreshold is used when no threshold is configured
	DefaultFreshnessThreshold = 30 * time.Minute
	// DefaultLockTTL bounds how long a crashed sync can keep a warehouse locked
	DefaultLockTTL = 5 * time.Minute
	// DefaultSweepParallelism caps concurrent syncs in SyncStale
	DefaultSweepParallelism = 4

	stepPullSnapshot = "pull_stock_snapshot"

	syncOutcomeOK     = "ok"
	syncOutcomeFailed = "failed"
)

// SyncQueue accepts background sync requests
type SyncQueue interface {
	Enqueue(warehouseID uuid.UUID, reason scheduler.JobReason) error
}

// SyncSettings tunes freshness and locking
type SyncSettings struct {
	FreshnessThreshold time.Duration
	LockTTL            time.Duration
	SweepParallelism   int
}

// SettingsFromConfig maps the stock_sync configuration section
func SettingsFromConfig(cfg config.StockSyncConfig) SyncSettings {
	return SyncSettings{
		FreshnessThreshold: cfg.FreshnessThreshold,
		LockTTL:            cfg.LockTTL,
		SweepParallelism:   cfg.Workers,
	}
}

func (s SyncSettings) withDefaults() SyncSettings {
	if s.FreshnessThreshold <= 0 {
		s.FreshnessThreshold = DefaultFreshnessThreshold
	}
	if s.LockTTL <= 0 {
		s.LockTTL = DefaultLockTTL
	}
	if s.SweepParallelism <= 0 {
		s.SweepParallelism = DefaultSweepParallelism
	}
	return s
}

// StockSyncService pulls and applies ERP stock snapshots.
//
// At most one pull sync runs per warehouse: the sync takes a Locker token
// keyed by the warehouse and a request that finds the token taken is
// dropped. Inbound pushes carry their own payload and are applied without
// the token; the latest committed write wins per (warehouse, sku).
type StockSyncService struct {
	warehouses inventory.WarehouseRepository
	stock      inventory.StockRepository
	erp        integration.ERPGateway
	locker     shared.Locker
	queue      SyncQueue
	settings   SyncSettings
	metrics    *telemetry.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewStockSyncService creates a new StockSyncService
func NewStockSyncService(
	warehouses inventory.WarehouseRepository,
	stock inventory.StockRepository,
	erp integration.ERPGateway,
	locker shared.Locker,
	settings SyncSettings,
	logger *zap.Logger,
) *StockSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockSyncService{
		warehouses: warehouses,
		stock:      stock,
		erp:        erp,
		locker:     locker,
		settings:   settings.withDefaults(),
		logger:     logger.Named("stock_sync"),
		now:        time.Now,
	}
}

// SetQueue sets the background queue used for stale reads and operator
// triggers. The scheduler needs the service as its executor, so the queue
// is attached after construction.
func (s *StockSyncService) SetQueue(queue SyncQueue) {
	s.queue = queue
}

// SetMetrics sets the metric instruments
func (s *StockSyncService) SetMetrics(metrics *telemetry.Metrics) {
	s.metrics = metrics
}

// SyncWarehouse pulls the ERP snapshot for one warehouse and applies it.
// A concurrent sync for the same warehouse makes this call return a
// Dropped result without touching the ERP.
func (s *StockSyncService) SyncWarehouse(ctx context.Context, warehouseID uuid.UUID) (_ *inventory.SyncResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "stock.sync", telemetry.AttrWarehouseID.String(warehouseID.String()))
	defer telemetry.End(span, &err)

	w, err := s.warehouses.FindByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("warehouse_id", w.ID.String()), zap.String("external_id", w.ExternalID))

	token, ok, err := s.locker.TryAcquire(ctx, w.LockKey(), s.settings.LockTTL)
	if err != nil {
		log.Error("Failed to acquire stock sync lock", zap.Error(err))
		return nil, integration.Unavailable(integration.SystemERP, stepPullSnapshot, err)
	}
	if !ok {
		s.metrics.RecordSyncDropped(ctx)
		log.Info("Stock sync already in flight, request dropped")
		return &inventory.SyncResult{WarehouseID: w.ID, Dropped: true}, nil
	}
	defer func() {
		// Released even when ctx is cancelled so the warehouse is never stuck.
		if relErr := s.locker.Release(context.WithoutCancel(ctx), w.LockKey(), token); relErr != nil {
			log.Warn("Failed to release stock sync lock", zap.Error(relErr))
		}
	}()

	started := s.now()
	lines, err := s.erp.PullStockSnapshot(ctx, w.ExternalID)
	if err != nil {
		s.metrics.RecordSync(ctx, s.now().Sub(started), syncOutcomeFailed)
		log.Warn("Stock snapshot pull failed", zap.Error(err))
		return nil, err
	}

	result, err := s.apply(ctx, w, lines)
	if err != nil {
		s.metrics.RecordSync(ctx, s.now().Sub(started), syncOutcomeFailed)
		return nil, err
	}
	s.metrics.RecordSync(ctx, s.now().Sub(started), syncOutcomeOK)
	log.Info("Stock synced",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// PushStockUpdate applies a stock payload sent by the ERP for the warehouse
// with the given external id.
func (s *StockSyncService) PushStockUpdate(ctx context.Context, externalID string, lines []inventory.StockLine) (_ *inventory.SyncResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "stock.push")
	defer telemetry.End(span, &err)

	w, err := s.warehouses.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	result, err := s.apply(ctx, w, lines)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stock push applied",
		zap.String("warehouse_id", w.ID.String()),
		zap.String("external_id", externalID),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *StockSyncService) apply(ctx context.Context, w *inventory.Warehouse, raw []inventory.StockLine) (*inventory.SyncResult, error) {
	lines, skipped := inventory.NormalizeLines(raw)
	if skipped > 0 {
		s.logger.Warn("Skipped malformed stock lines",
			zap.String("warehouse_id", w.ID.String()),
			zap.Int("skipped", skipped),
		)
	}
	syncedAt := s.now().UTC()
	if err := s.stock.ApplySnapshot(ctx, w.ID, lines, syncedAt); err != nil {
		s.logger.Error("Failed to apply stock snapshot", zap.String("warehouse_id", w.ID.String()), zap.Error(err))
		return nil, err
	}
	return &inventory.SyncResult{
		WarehouseID: w.ID,
		Processed:   len(lines),
		Skipped:     skipped,
		SyncedAt:    syncedAt,
	}, nil
}

// EnsureFresh queues a background sync when the warehouse is stale. It
// reports whether a sync is now queued.
func (s *StockSyncService) EnsureFresh(ctx context.Context, w *inventory.Warehouse) bool {
	if !w.IsStale(s.settings.FreshnessThreshold, s.now()) {
		return false
	}
	return s.enqueue(w.ID, scheduler.ReasonStaleRead)
}

func (s *StockSyncService) enqueue(warehouseID uuid.UUID, reason scheduler.JobReason) bool {
	if s.queue == nil {
		return false
	}
	err := s.queue.Enqueue(warehouseID, reason)
	switch {
	case err == nil:
		return true
	case errors.Is(err, scheduler.ErrJobAlreadyQueued):
		return true
	default:
		s.logger.Warn("Stock sync not queued",
			zap.String("warehouse_id", warehouseID.String()),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		return false
	}
}

// TriggerSync is the operator trigger. With wait it runs the sync inline
// and reports a drop; otherwise it queues the sync and returns at once.
func (s *StockSyncService) TriggerSync(ctx context.Context, warehouseID uuid.UUID, wait bool) (*SyncResultResponse, error) {
	if wait || s.queue == nil {
		result, err := s.SyncWarehouse(ctx, warehouseID)
		if err != nil {
			return nil, err
		}
		resp := ToSyncResultResponse(result)
		return &resp, nil
	}

	w, err := s.warehouses.FindByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	resp := &SyncResultResponse{WarehouseID: w.ID}
	err = s.queue.Enqueue(w.ID, scheduler.ReasonManual)
	switch {
	case err == nil:
		resp.Queued = true
	case errors.Is(err, scheduler.ErrJobAlreadyQueued):
		resp.Dropped = true
		s.metrics.RecordSyncDropped(ctx)
	default:
		return nil, shared.NewPreconditionError("stock sync queue is not accepting jobs").WithDetail("reason", err.Error())
	}
	return resp, nil
}

// ListStock returns the synced stock of a warehouse and queues a refresh
// when it is stale. The read never waits for the ERP.
func (s *StockSyncService) ListStock(ctx context.Context, warehouseID uuid.UUID) (*WarehouseStockResponse, error) {
	w, err := s.warehouses.FindByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.stock.FindByWarehouse(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	resp := &WarehouseStockResponse{
		WarehouseID:  w.ID,
		Name:         w.Name,
		City:         w.City,
		LastSyncedAt: w.LastSyncedAt,
		Stale:        w.IsStale(s.settings.FreshnessThreshold, s.now()),
		Items:        make([]StockItemResponse, len(rows)),
	}
	for i, row := range rows {
		resp.Items[i] = StockItemResponse{SKU: row.SKU, Quantity: row.Quantity, SyncedAt: row.SyncedAt}
	}
	if resp.Stale {
		resp.SyncQueued = s.EnsureFresh(ctx, w)
	}
	return resp, nil
}

// StaleWarehouseIDs lists warehouses whose last sync is older than the
// freshness threshold.
func (s *StockSyncService) StaleWarehouseIDs(ctx context.Context) ([]uuid.UUID, error) {
	stale, err := s.warehouses.FindStale(ctx, s.now().Add(-s.settings.FreshnessThreshold))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(stale))
	for i := range stale {
		ids[i] = stale[i].ID
	}
	return ids, nil
}

// SyncStale syncs every stale warehouse inline with bounded parallelism.
// Failures of single warehouses are counted, not returned.
func (s *StockSyncService) SyncStale(ctx context.Context) (*SweepSummary, error) {
	ids, err := s.StaleWarehouseIDs(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*inventory.SyncResult, len(ids))
	failed := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.SweepParallelism)
	for i, id := range ids {
		g.Go(func() error {
			result, err := s.SyncWarehouse(gctx, id)
			if err != nil {
				failed[i] = true
				return nil
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &SweepSummary{Warehouses: len(ids)}
	for i := range ids {
		switch {
		case failed[i]:
			summary.Failed++
		case results[i].Dropped:
			summary.Dropped++
		default:
			summary.Synced++
		}
	}
	s.logger.Info("Stale stock sweep finished",
		zap.Int("warehouses", summary.Warehouses),
		zap.Int("synced", summary.Synced),
		zap.Int("dropped", summary.Dropped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// Execute runs a scheduled sync job
func (s *StockSyncService) Execute(ctx context.Context, job *scheduler.Job) error {
	_, err := s.SyncWarehouse(ctx, job.WarehouseID)
	return err
}

var (
	_ scheduler.JobExecutor          = (*StockSyncService)(nil)
	_ scheduler.StaleWarehouseSource = (*StockSyncService)(nil)
)
