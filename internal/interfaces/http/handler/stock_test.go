package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/shadiyar7/repair-platform-sub000/internal/application/inventory"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/auth"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStockService struct {
	mock.Mock
}

func (m *MockStockService) PushStockUpdate(ctx context.Context, externalID string, lines []inventory.StockLine) (*inventory.SyncResult, error) {
	args := m.Called(ctx, externalID, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.SyncResult), args.Error(1)
}

func (m *MockStockService) TriggerSync(ctx context.Context, warehouseID uuid.UUID, wait bool) (*inventoryapp.SyncResultResponse, error) {
	args := m.Called(ctx, warehouseID, wait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.SyncResultResponse), args.Error(1)
}

func (m *MockStockService) ListStock(ctx context.Context, warehouseID uuid.UUID) (*inventoryapp.WarehouseStockResponse, error) {
	args := m.Called(ctx, warehouseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.WarehouseStockResponse), args.Error(1)
}

func (m *MockStockService) SyncStale(ctx context.Context) (*inventoryapp.SweepSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.SweepSummary), args.Error(1)
}

func stockEngine(svc *MockStockService, role auth.Role) *gin.Engine {
	h := NewStockHandler(svc)
	engine := newTestEngine(nil, asCaller(uuid.New(), role))
	engine.POST("/erp/stock", h.PushStock)
	engine.POST("/warehouses/sync-stale", h.SyncStale)
	engine.POST("/warehouses/:id/sync", h.TriggerSync)
	engine.GET("/warehouses/:id/stock", h.ListStock)
	return engine
}

func TestStockHandler_PushStock(t *testing.T) {
	warehouseID := uuid.New()
	svc := new(MockStockService)
	svc.On("PushStockUpdate", mock.Anything, "WH-ALA-01", mock.MatchedBy(func(lines []inventory.StockLine) bool {
		return len(lines) == 2 && lines[0].SKU == "PIPE-20" && lines[0].Quantity.Equal(decimal.RequireFromString("12.5"))
	})).Return(&inventory.SyncResult{
		WarehouseID: warehouseID,
		Processed:   1,
		Skipped:     1,
		SyncedAt:    time.Now(),
	}, nil)

	w := doJSON(stockEngine(svc, auth.RoleIntegration), http.MethodPost, "/erp/stock",
		`{"warehouse_id":"WH-ALA-01","items":[{"sku":"PIPE-20","quantity":"12.5"},{"sku":"","quantity":3}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, float64(1), data["processed"])
	assert.Equal(t, float64(1), data["skipped"])
	svc.AssertExpectations(t)

	t.Run("missing warehouse", func(t *testing.T) {
		w := doJSON(stockEngine(new(MockStockService), auth.RoleIntegration), http.MethodPost, "/erp/stock", `{"items":[]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStockHandler_TriggerSync(t *testing.T) {
	warehouseID := uuid.New()
	path := "/warehouses/" + warehouseID.String() + "/sync"

	tests := []struct {
		name   string
		query  string
		wait   bool
		result *inventoryapp.SyncResultResponse
		status int
	}{
		{"queued", "", false, &inventoryapp.SyncResultResponse{WarehouseID: warehouseID, Queued: true}, http.StatusAccepted},
		{"already queued", "", false, &inventoryapp.SyncResultResponse{WarehouseID: warehouseID, Dropped: true}, http.StatusOK},
		{"inline", "?wait=true", true, &inventoryapp.SyncResultResponse{WarehouseID: warehouseID, Processed: 40}, http.StatusOK},
		{"inline dropped by lock", "?wait=1", true, &inventoryapp.SyncResultResponse{WarehouseID: warehouseID, Dropped: true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockStockService)
			svc.On("TriggerSync", mock.Anything, warehouseID, tt.wait).Return(tt.result, nil)

			w := doJSON(stockEngine(svc, auth.RoleManager), http.MethodPost, path+tt.query, nil)

			assert.Equal(t, tt.status, w.Code)
			svc.AssertExpectations(t)
		})
	}

	t.Run("erp unreachable", func(t *testing.T) {
		svc := new(MockStockService)
		svc.On("TriggerSync", mock.Anything, warehouseID, true).
			Return(nil, integration.Unavailable(integration.SystemERP, "fetch_stock", context.DeadlineExceeded))

		w := doJSON(stockEngine(svc, auth.RoleManager), http.MethodPost, path+"?wait=true", nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestStockHandler_ListStockAndSweep(t *testing.T) {
	warehouseID := uuid.New()
	svc := new(MockStockService)
	svc.On("ListStock", mock.Anything, warehouseID).Return(&inventoryapp.WarehouseStockResponse{
		WarehouseID: warehouseID,
		Name:        "Almaty main",
		Stale:       true,
		SyncQueued:  true,
		Items:       []inventoryapp.StockItemResponse{{SKU: "PIPE-20", Quantity: decimal.NewFromInt(5)}},
	}, nil)
	svc.On("SyncStale", mock.Anything).Return(&inventoryapp.SweepSummary{Warehouses: 3, Synced: 2, Dropped: 1}, nil)
	engine := stockEngine(svc, auth.RoleManager)

	w := doJSON(engine, http.MethodGet, "/warehouses/"+warehouseID.String()+"/stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, true, data["stale"])
	assert.Equal(t, true, data["sync_queued"])

	w = doJSON(engine, http.MethodPost, "/warehouses/sync-stale", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w).Data.(map[string]any)["synced"])

	svc.AssertExpectations(t)
}
