package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/shadiyar7/repair-platform-sub000/internal/application/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/dto"
)

// OrderService is the order workflow as seen by the HTTP layer
type OrderService interface {
	AddToCart(ctx context.Context, userID uuid.UUID, req orderapp.AddToCartRequest) (*orderapp.OrderResponse, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*orderapp.OrderResponse, error)
	UpdateItemQuantity(ctx context.Context, userID, orderID, itemID uuid.UUID, req orderapp.UpdateItemQuantityRequest) (*orderapp.OrderResponse, error)
	RemoveItem(ctx context.Context, userID, orderID, itemID uuid.UUID) (*orderapp.OrderResponse, error)
	GetOrder(ctx context.Context, actor orderapp.Actor, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	ListOrders(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]orderapp.OrderResponse, int64, error)
	Checkout(ctx context.Context, userID, orderID uuid.UUID, req orderapp.CheckoutRequest) (*orderapp.OrderResponse, error)
	SignInternally(ctx context.Context, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	RequestContractSignature(ctx context.Context, userID, orderID uuid.UUID) (*orderapp.ContentToSignResponse, error)
	SubmitSignature(ctx context.Context, userID, orderID uuid.UUID, req orderapp.SubmitSignatureRequest) (*orderapp.OrderResponse, error)
	ReportPayment(ctx context.Context, userID, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	TriggerDriverSearch(ctx context.Context, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	AssignDriver(ctx context.Context, orderID uuid.UUID, req orderapp.AssignDriverRequest) (*orderapp.OrderResponse, error)
	DriverArrived(ctx context.Context, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	StartTrip(ctx context.Context, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	Deliver(ctx context.Context, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	Complete(ctx context.Context, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	UpdateLiveLocation(ctx context.Context, orderID uuid.UUID, req orderapp.LocationRequest) (*orderapp.OrderResponse, error)
	GenerateDocuments(ctx context.Context, orderID uuid.UUID) (*orderapp.OrderResponse, error)
}

// OrderHandler handles cart and order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	orderService OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// ==================== Cart ====================

// AddToCart godoc
// @ID           addToCart
// @Summary      Add a product to the cart
// @Description  Adds a catalog product to the caller's draft order, creating the draft when needed. Repeated products merge into one line.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body orderapp.AddToCartRequest true "Cart line"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/items [post]
func (h *OrderHandler) AddToCart(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}

	var req orderapp.AddToCartRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.AddToCart(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// GetCart godoc
// @ID           getCart
// @Summary      Get the cart
// @Description  Returns the caller's draft order
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart [get]
func (h *OrderHandler) GetCart(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}

	order, err := h.orderService.GetCart(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// UpdateItemQuantity godoc
// @ID           updateOrderItemQuantity
// @Summary      Change a cart line quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Param        request body orderapp.UpdateItemQuantityRequest true "New quantity"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/items/{item_id} [patch]
func (h *OrderHandler) UpdateItemQuantity(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParseID(c, "item_id")
	if !ok {
		return
	}

	var req orderapp.UpdateItemQuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateItemQuantity(c.Request.Context(), userID, orderID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// RemoveItem godoc
// @ID           removeOrderItem
// @Summary      Remove a cart line
// @Tags         cart
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        item_id path string true "Item ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/items/{item_id} [delete]
func (h *OrderHandler) RemoveItem(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParseID(c, "item_id")
	if !ok {
		return
	}

	order, err := h.orderService.RemoveItem(c.Request.Context(), userID, orderID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// ==================== Reads ====================

// GetByID godoc
// @ID           getOrderById
// @Summary      Get an order
// @Description  Owners see their own orders; staff see all
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// List godoc
// @ID           listOrders
// @Summary      List the caller's orders
// @Tags         orders
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc) default(desc)
// @Success      200 {object} APIResponse[[]orderapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	filter := req.Filter()

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// ==================== Workflow ====================

// Checkout godoc
// @ID           checkoutOrder
// @Summary      Check out the cart
// @Description  Binds a billing identity and delivery address and freezes prices
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderapp.CheckoutRequest true "Checkout details"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/checkout [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req orderapp.CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Checkout(c.Request.Context(), userID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// SignInternally godoc
// @ID           signOrderInternally
// @Summary      Approve the order internally
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/internal-sign [post]
func (h *OrderHandler) SignInternally(c *gin.Context) {
	h.runByID(c, h.orderService.SignInternally)
}

// RequestSignature godoc
// @ID           requestOrderSignature
// @Summary      Start the contract signature
// @Description  Renders and uploads the contract, registers it with the signature provider and returns the content the client has to sign. A failed call can be repeated and resumes at the failed step.
// @Tags         signature
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.ContentToSignResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/signature/request [post]
func (h *OrderHandler) RequestSignature(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	content, err := h.orderService.RequestContractSignature(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, content)
}

// SubmitSignature godoc
// @ID           submitOrderSignature
// @Summary      Submit the client signature
// @Tags         signature
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderapp.SubmitSignatureRequest true "Signature"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/signature/submit [post]
func (h *OrderHandler) SubmitSignature(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req orderapp.SubmitSignatureRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.SubmitSignature(c.Request.Context(), userID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// ReportPayment godoc
// @ID           reportOrderPayment
// @Summary      Report that the invoice was paid
// @Description  Registers the order with the ERP for payment verification
// @Tags         payment
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/payment/report [post]
func (h *OrderHandler) ReportPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing user ID")
		return
	}
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.ReportPayment(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// TriggerDriverSearch godoc
// @ID           triggerDriverSearch
// @Summary      Hand the order to dispatch
// @Tags         logistics
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Failure      412 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/driver/search [post]
func (h *OrderHandler) TriggerDriverSearch(c *gin.Context) {
	h.runByID(c, h.orderService.TriggerDriverSearch)
}

// AssignDriver godoc
// @ID           assignOrderDriver
// @Summary      Assign a driver
// @Tags         logistics
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderapp.AssignDriverRequest true "Driver"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/driver [post]
func (h *OrderHandler) AssignDriver(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req orderapp.AssignDriverRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.AssignDriver(c.Request.Context(), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// DriverArrived godoc
// @ID           orderDriverArrived
// @Summary      Driver arrived at the pickup
// @Tags         logistics
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/driver/arrived [post]
func (h *OrderHandler) DriverArrived(c *gin.Context) {
	h.runByID(c, h.orderService.DriverArrived)
}

// StartTrip godoc
// @ID           startOrderTrip
// @Summary      Driver left with the goods
// @Tags         logistics
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/trip/start [post]
func (h *OrderHandler) StartTrip(c *gin.Context) {
	h.runByID(c, h.orderService.StartTrip)
}

// Deliver godoc
// @ID           deliverOrder
// @Summary      Goods handed over
// @Tags         logistics
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/deliver [post]
func (h *OrderHandler) Deliver(c *gin.Context) {
	h.runByID(c, h.orderService.Deliver)
}

// UpdateLocation godoc
// @ID           updateOrderLocation
// @Summary      Report the live driver position
// @Tags         logistics
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderapp.LocationRequest true "Position"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/location [post]
func (h *OrderHandler) UpdateLocation(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req orderapp.LocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateLiveLocation(c.Request.Context(), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// GenerateDocuments godoc
// @ID           generateOrderDocuments
// @Summary      Render and store the closing documents
// @Tags         documents
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/documents [post]
func (h *OrderHandler) GenerateDocuments(c *gin.Context) {
	h.runByID(c, h.orderService.GenerateDocuments)
}

// Complete godoc
// @ID           completeOrder
// @Summary      Close a delivered order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	h.runByID(c, h.orderService.Complete)
}

// runByID serves the staff transitions that take nothing but the order id
func (h *OrderHandler) runByID(c *gin.Context, fn func(context.Context, uuid.UUID) (*orderapp.OrderResponse, error)) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := fn(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}
