package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/shadiyar7/repair-platform-sub000/internal/application/inventory"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
)

// StockService is the warehouse stock synchronisation as seen by the HTTP layer
type StockService interface {
	PushStockUpdate(ctx context.Context, externalID string, lines []inventory.StockLine) (*inventory.SyncResult, error)
	TriggerSync(ctx context.Context, warehouseID uuid.UUID, wait bool) (*inventoryapp.SyncResultResponse, error)
	ListStock(ctx context.Context, warehouseID uuid.UUID) (*inventoryapp.WarehouseStockResponse, error)
	SyncStale(ctx context.Context) (*inventoryapp.SweepSummary, error)
}

// StockHandler handles ERP stock pushes and operator sync triggers
type StockHandler struct {
	BaseHandler
	stockService StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService StockService) *StockHandler {
	return &StockHandler{
		stockService: stockService,
	}
}

// PushStock godoc
// @ID           pushErpStock
// @Summary      Inbound ERP stock update
// @Description  Upserts the pushed quantities of one warehouse. Malformed lines are skipped and counted.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.PushStockRequest true "Stock payload"
// @Success      200 {object} APIResponse[inventoryapp.SyncResultResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /erp/stock [post]
func (h *StockHandler) PushStock(c *gin.Context) {
	var req inventoryapp.PushStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.stockService.PushStockUpdate(c.Request.Context(), req.WarehouseExternalID, req.Lines())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inventoryapp.ToSyncResultResponse(result))
}

// TriggerSync godoc
// @ID           triggerWarehouseSync
// @Summary      Pull stock from the ERP
// @Description  Queues a pull and answers 202. With wait=true the pull runs inline; a pull that finds another one in flight is dropped and reported with dropped=true.
// @Tags         stock
// @Produce      json
// @Param        id path string true "Warehouse ID" format(uuid)
// @Param        wait query bool false "Run the sync before answering"
// @Success      200 {object} APIResponse[inventoryapp.SyncResultResponse]
// @Success      202 {object} APIResponse[inventoryapp.SyncResultResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      412 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /warehouses/{id}/sync [post]
func (h *StockHandler) TriggerSync(c *gin.Context) {
	warehouseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	wait, _ := strconv.ParseBool(c.Query("wait"))

	result, err := h.stockService.TriggerSync(c.Request.Context(), warehouseID, wait)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Queued {
		h.Accepted(c, result)
		return
	}
	h.Success(c, result)
}

// ListStock godoc
// @ID           listWarehouseStock
// @Summary      Synced stock of a warehouse
// @Description  Answers from the local copy. A stale warehouse gets a background refresh queued.
// @Tags         stock
// @Produce      json
// @Param        id path string true "Warehouse ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.WarehouseStockResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /warehouses/{id}/stock [get]
func (h *StockHandler) ListStock(c *gin.Context) {
	warehouseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	stock, err := h.stockService.ListStock(c.Request.Context(), warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stock)
}

// SyncStale godoc
// @ID           syncStaleWarehouses
// @Summary      Refresh every stale warehouse now
// @Tags         stock
// @Produce      json
// @Success      200 {object} APIResponse[inventoryapp.SweepSummary]
// @Security     BearerAuth
// @Router       /warehouses/sync-stale [post]
func (h *StockHandler) SyncStale(c *gin.Context) {
	summary, err := h.stockService.SyncStale(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}
