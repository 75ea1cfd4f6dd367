package order

import (
	"context"
	"fmt"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// driverPhase lists the statuses dispatch is told about
var driverPhase = map[order.Status]bool{
	order.StatusDriverAssigned: true,
	order.StatusAtWarehouse:    true,
	order.StatusInTransit:      true,
	order.StatusDelivered:      true,
}

// DispatchStatusHandler reports committed driver-phase transitions to the
// dispatch system. Reports are notifications: a failure is logged and the
// order transition stands.
type DispatchStatusHandler struct {
	dispatcher integration.Dispatcher
	metrics    *telemetry.Metrics
	logger     *zap.Logger
}

// NewDispatchStatusHandler creates a new handler for order status events
func NewDispatchStatusHandler(dispatcher integration.Dispatcher, metrics *telemetry.Metrics, logger *zap.Logger) *DispatchStatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchStatusHandler{
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger.Named("dispatch_status"),
	}
}

// EventTypes returns the event types this handler is interested in
func (h *DispatchStatusHandler) EventTypes() []string {
	return []string{order.EventTypeStatusChanged}
}

// Handle sends a status report for driver-phase transitions and ignores
// every other transition.
func (h *DispatchStatusHandler) Handle(ctx context.Context, event shared.DomainEvent) (err error) {
	changed, ok := event.(*order.StatusChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", order.EventTypeStatusChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			order.EventTypeStatusChanged, event.EventType())
	}
	if !driverPhase[changed.To] {
		return nil
	}

	ctx, span := telemetry.StartClientSpan(ctx, string(integration.SystemDispatch), StepReportStatus)
	defer telemetry.End(span, &err)

	report := integration.StatusReport{
		OrderID:    changed.OrderID,
		Number:     changed.Number,
		Status:     changed.To,
		Driver:     changed.Driver,
		OccurredAt: changed.OccurredAt(),
	}
	if err := h.dispatcher.ReportStatus(ctx, report); err != nil {
		h.metrics.RecordIntegrationCall(ctx, string(integration.SystemDispatch), StepReportStatus, outcomeOf(err))
		h.logger.Warn("Failed to report order status to dispatch",
			zap.String("order_id", changed.OrderID.String()),
			zap.String("status", changed.To.String()),
			zap.Error(err),
		)
		return err
	}
	h.metrics.RecordIntegrationCall(ctx, string(integration.SystemDispatch), StepReportStatus, outcomeOK)
	h.logger.Debug("Reported order status to dispatch",
		zap.String("order_id", changed.OrderID.String()),
		zap.String("status", changed.To.String()),
	)
	return nil
}

func outcomeOf(err error) string {
	if integration.IsRetryable(err) || !isIntegration(err) {
		return outcomeUnavailable
	}
	return outcomeRejected
}

var _ shared.EventHandler = (*DispatchStatusHandler)(nil)
