package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterDBTracing attaches otelgorm to db. Query variables are never put
// on spans since orders carry billing details.
func RegisterDBTracing(db *gorm.DB, enabled bool, dbSystem string, logger *zap.Logger) error {
	if !enabled {
		return nil
	}
	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}
	logger.Info("Database tracing enabled", zap.String("db_system", dbSystem))
	return nil
}
