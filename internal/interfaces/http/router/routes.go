package router

import (
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/auth"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/handler"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers served under the versioned API
type Handlers struct {
	Order    *handler.OrderHandler
	Webhook  *handler.WebhookHandler
	Tracking *handler.TrackingHandler
	Stock    *handler.StockHandler
}

// RegisterAPI registers every domain group of the order API with its
// role guards. Authentication itself runs as engine middleware.
func (r *Router) RegisterAPI(h Handlers) *Router {
	return r.Register(CartRoutes(h.Order)).
		Register(OrderRoutes(h.Order)).
		Register(TrackingRoutes(h.Tracking)).
		Register(WebhookRoutes(h.Webhook)).
		Register(ERPRoutes(h.Stock)).
		Register(WarehouseRoutes(h.Stock))
}

var (
	clientOnly      = middleware.RequireRoles(auth.RoleClient)
	managerOnly     = middleware.RequireRoles(auth.RoleManager)
	dispatcherOnly  = middleware.RequireRoles(auth.RoleDispatcher)
	integrationOnly = middleware.RequireRoles(auth.RoleIntegration)
)

// CartRoutes serves the caller's draft order
func CartRoutes(h *handler.OrderHandler) *DomainGroup {
	g := NewDomainGroup("cart", "/cart").Use(clientOnly)
	g.GET("", h.GetCart)
	g.POST("/items", h.AddToCart)
	return g
}

// OrderRoutes serves reads and every lifecycle transition
func OrderRoutes(h *handler.OrderHandler) *DomainGroup {
	g := NewDomainGroup("orders", "/orders")

	g.GET("", clientOnly, h.List)
	g.GET("/:id", h.GetByID)

	// client
	g.PATCH("/:id/items/:item_id", clientOnly, h.UpdateItemQuantity)
	g.DELETE("/:id/items/:item_id", clientOnly, h.RemoveItem)
	g.POST("/:id/checkout", clientOnly, h.Checkout)
	g.POST("/:id/signature/request", clientOnly, h.RequestSignature)
	g.POST("/:id/signature/submit", clientOnly, h.SubmitSignature)
	g.POST("/:id/payment/report", clientOnly, h.ReportPayment)

	// manager
	g.POST("/:id/internal-sign", managerOnly, h.SignInternally)
	g.POST("/:id/driver/search", managerOnly, h.TriggerDriverSearch)
	g.POST("/:id/documents", managerOnly, h.GenerateDocuments)
	g.POST("/:id/complete", managerOnly, h.Complete)

	// dispatcher
	g.POST("/:id/driver", dispatcherOnly, h.AssignDriver)
	g.POST("/:id/driver/arrived", dispatcherOnly, h.DriverArrived)
	g.POST("/:id/trip/start", dispatcherOnly, h.StartTrip)
	g.POST("/:id/deliver", dispatcherOnly, h.Deliver)
	g.POST("/:id/location", dispatcherOnly, h.UpdateLocation)

	return g
}

// TrackingRoutes serves public tracking links. The JWT middleware skips
// this prefix.
func TrackingRoutes(h *handler.TrackingHandler) *DomainGroup {
	return NewDomainGroup("tracking", "/track").GET("/:token", h.Track)
}

// WebhookRoutes serves ERP and signature provider callbacks
func WebhookRoutes(h *handler.WebhookHandler) *DomainGroup {
	return NewDomainGroup("webhooks", "/webhooks").
		Use(integrationOnly).
		POST("/payment", h.PaymentConfirmed).
		POST("/signature", h.SignatureCompleted)
}

// ERPRoutes serves inbound ERP pushes
func ERPRoutes(h *handler.StockHandler) *DomainGroup {
	return NewDomainGroup("erp", "/erp").
		Use(integrationOnly).
		POST("/stock", h.PushStock)
}

// WarehouseRoutes serves stock reads and operator sync triggers
func WarehouseRoutes(h *handler.StockHandler) *DomainGroup {
	g := NewDomainGroup("warehouses", "/warehouses")
	g.GET("/:id/stock", h.ListStock)
	g.POST("/:id/sync", managerOnly, h.TriggerSync)
	g.POST("/sync-stale", managerOnly, h.SyncStale)
	return g
}
