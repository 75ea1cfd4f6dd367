package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// StockLineRequest is one sku entry of an inbound ERP push
type StockLineRequest struct {
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
}

// PushStockRequest is the inbound ERP stock payload. Lines with a missing
// sku or a negative quantity are skipped, not rejected.
type PushStockRequest struct {
	WarehouseExternalID string             `json:"warehouse_id" binding:"required,max=100"`
	Items               []StockLineRequest `json:"items" binding:"required"`
}

// Lines converts the request into domain stock lines
func (r PushStockRequest) Lines() []inventory.StockLine {
	lines := make([]inventory.StockLine, len(r.Items))
	for i, item := range r.Items {
		lines[i] = inventory.StockLine{SKU: item.SKU, Quantity: item.Quantity}
	}
	return lines
}

// SyncResultResponse reports one applied or dropped stock payload
type SyncResultResponse struct {
	WarehouseID uuid.UUID  `json:"warehouse_id"`
	Processed   int        `json:"processed"`
	Skipped     int        `json:"skipped"`
	SyncedAt    *time.Time `json:"synced_at,omitempty"`
	Dropped     bool       `json:"dropped"`
	Queued      bool       `json:"queued,omitempty"`
}

// ToSyncResultResponse converts a domain SyncResult
func ToSyncResultResponse(r *inventory.SyncResult) SyncResultResponse {
	resp := SyncResultResponse{
		WarehouseID: r.WarehouseID,
		Processed:   r.Processed,
		Skipped:     r.Skipped,
		Dropped:     r.Dropped,
	}
	if !r.SyncedAt.IsZero() {
		at := r.SyncedAt
		resp.SyncedAt = &at
	}
	return resp
}

// StockItemResponse is one synced sku quantity
type StockItemResponse struct {
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
	SyncedAt time.Time       `json:"synced_at"`
}

// WarehouseStockResponse is the catalog view of one warehouse
type WarehouseStockResponse struct {
	WarehouseID  uuid.UUID           `json:"warehouse_id"`
	Name         string              `json:"name"`
	City         string              `json:"city,omitempty"`
	LastSyncedAt *time.Time          `json:"last_synced_at,omitempty"`
	Stale        bool                `json:"stale"`
	SyncQueued   bool                `json:"sync_queued"`
	Items        []StockItemResponse `json:"items"`
}

// SweepSummary reports a synchronous stale sweep
type SweepSummary struct {
	Warehouses int `json:"warehouses"`
	Synced     int `json:"synced"`
	Dropped    int `json:"dropped"`
	Failed     int `json:"failed"`
}
