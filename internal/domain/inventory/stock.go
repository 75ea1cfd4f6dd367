package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WarehouseStock is the synced quantity of one sku in one warehouse.
// Rows are unique per (warehouse, sku) and are written only by stock sync.
type WarehouseStock struct {
	ID          uuid.UUID
	WarehouseID uuid.UUID
	SKU         string
	Quantity    decimal.Decimal
	SyncedAt    time.Time
}

// StockLine is one entry of an ERP stock payload.
type StockLine struct {
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
}

// NormalizeLines trims skus, drops malformed lines and collapses duplicate
// skus so that the last occurrence wins. It returns the usable lines in
// first-seen order and the number of skipped lines.
func NormalizeLines(lines []StockLine) ([]StockLine, int) {
	skipped := 0
	index := make(map[string]int, len(lines))
	out := make([]StockLine, 0, len(lines))
	for _, line := range lines {
		sku := strings.TrimSpace(line.SKU)
		if sku == "" || line.Quantity.IsNegative() {
			skipped++
			continue
		}
		if i, ok := index[sku]; ok {
			out[i].Quantity = line.Quantity
			continue
		}
		index[sku] = len(out)
		out = append(out, StockLine{SKU: sku, Quantity: line.Quantity})
	}
	return out, skipped
}

// SyncResult summarises one applied stock payload.
type SyncResult struct {
	WarehouseID uuid.UUID
	Processed   int
	Skipped     int
	SyncedAt    time.Time
	// Dropped is set when another sync held the warehouse lock and this
	// request was discarded.
	Dropped bool
}

// WarehouseRepository defines the interface for warehouse persistence
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindByExternalID(ctx context.Context, externalID string) (*Warehouse, error)
	FindAll(ctx context.Context) ([]Warehouse, error)
	// FindStale lists warehouses never synced or synced before cutoff
	FindStale(ctx context.Context, cutoff time.Time) ([]Warehouse, error)
	Save(ctx context.Context, w *Warehouse) error
}

// StockRepository defines the interface for warehouse stock persistence
type StockRepository interface {
	// ApplySnapshot upserts every line for the warehouse and sets the
	// warehouse last_synced_at to syncedAt, all in one transaction. Skus
	// absent from lines are left untouched.
	ApplySnapshot(ctx context.Context, warehouseID uuid.UUID, lines []StockLine, syncedAt time.Time) error
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]WarehouseStock, error)
	FindByWarehouseAndSKU(ctx context.Context, warehouseID uuid.UUID, sku string) (*WarehouseStock, error)
}
