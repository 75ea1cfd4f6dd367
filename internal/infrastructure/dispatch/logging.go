package dispatch

import (
	"context"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"go.uber.org/zap"
)

// LogDispatcher records dispatch calls in the log only. It is used when no
// broker is configured so that the order workflow still runs end to end.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a broker-less dispatcher
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger.Named("dispatch")}
}

func (d *LogDispatcher) RequestDriverSearch(_ context.Context, req integration.DriverSearchRequest) error {
	d.logger.Info("Driver search requested (broker disabled)",
		zap.String("order_id", req.OrderID.String()),
		zap.String("order_number", req.Number),
		zap.String("dropoff_city", req.Dropoff.City),
	)
	return nil
}

func (d *LogDispatcher) ReportStatus(_ context.Context, report integration.StatusReport) error {
	d.logger.Info("Driver status reported (broker disabled)",
		zap.String("order_id", report.OrderID.String()),
		zap.String("status", report.Status.String()),
	)
	return nil
}

func (d *LogDispatcher) UpdateLiveLocation(_ context.Context, orderID uuid.UUID, lat, lng float64) error {
	d.logger.Debug("Live location (broker disabled)",
		zap.String("order_id", orderID.String()),
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
	)
	return nil
}

var _ integration.Dispatcher = (*LogDispatcher)(nil)
