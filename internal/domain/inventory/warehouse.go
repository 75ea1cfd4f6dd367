package inventory

import (
	"strings"
	"time"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
)

// Warehouse is a physical pickup location mirrored from the ERP.
type Warehouse struct {
	shared.BaseEntity
	Name         string
	ExternalID   string // ERP identifier used for stock pulls and pushes
	City         string
	Address      string
	LastSyncedAt *time.Time
}

// NewWarehouse creates a warehouse that has never been synced.
func NewWarehouse(name, externalID, city, address string) (*Warehouse, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("warehouse name is required")
	}
	if strings.TrimSpace(externalID) == "" {
		return nil, shared.NewValidationError("warehouse external id is required")
	}
	return &Warehouse{
		BaseEntity: shared.NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		ExternalID: strings.TrimSpace(externalID),
		City:       city,
		Address:    address,
	}, nil
}

// IsStale reports whether the last sync is older than threshold. A warehouse
// that was never synced is stale.
func (w *Warehouse) IsStale(threshold time.Duration, now time.Time) bool {
	if w.LastSyncedAt == nil {
		return true
	}
	return now.Sub(*w.LastSyncedAt) > threshold
}

// LockKey names the mutual exclusion token for syncs of this warehouse.
func (w *Warehouse) LockKey() string {
	return "stock-sync:" + w.ID.String()
}
