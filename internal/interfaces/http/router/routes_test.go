package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/auth"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/handler"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
)

// apiEngine wires the API with nil services: only requests stopped by a
// role guard may be sent through it.
func apiEngine(role auth.Role) *gin.Engine {
	engine := gin.New()
	if role != "" {
		engine.Use(func(c *gin.Context) {
			c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: uuid.NewString(), Role: role})
			c.Set(middleware.JWTRoleKey, role)
			c.Next()
		})
	}
	NewRouter(engine).RegisterAPI(Handlers{
		Order:    handler.NewOrderHandler(nil),
		Webhook:  handler.NewWebhookHandler(nil),
		Tracking: handler.NewTrackingHandler(nil),
		Stock:    handler.NewStockHandler(nil),
	}).Setup()
	return engine
}

func TestRegisterAPI_Routes(t *testing.T) {
	registered := map[string]bool{}
	for _, route := range apiEngine("").Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"GET /api/v1/cart",
		"POST /api/v1/cart/items",
		"GET /api/v1/orders",
		"GET /api/v1/orders/:id",
		"PATCH /api/v1/orders/:id/items/:item_id",
		"DELETE /api/v1/orders/:id/items/:item_id",
		"POST /api/v1/orders/:id/checkout",
		"POST /api/v1/orders/:id/internal-sign",
		"POST /api/v1/orders/:id/signature/request",
		"POST /api/v1/orders/:id/signature/submit",
		"POST /api/v1/orders/:id/payment/report",
		"POST /api/v1/orders/:id/driver/search",
		"POST /api/v1/orders/:id/driver",
		"POST /api/v1/orders/:id/driver/arrived",
		"POST /api/v1/orders/:id/trip/start",
		"POST /api/v1/orders/:id/deliver",
		"POST /api/v1/orders/:id/location",
		"POST /api/v1/orders/:id/documents",
		"POST /api/v1/orders/:id/complete",
		"GET /api/v1/track/:token",
		"POST /api/v1/webhooks/payment",
		"POST /api/v1/webhooks/signature",
		"POST /api/v1/erp/stock",
		"POST /api/v1/warehouses/:id/sync",
		"POST /api/v1/warehouses/sync-stale",
		"GET /api/v1/warehouses/:id/stock",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "route %s should be registered", route)
	}
	assert.Len(t, registered, len(expected))
}

func TestRegisterAPI_RoleGuards(t *testing.T) {
	orderPath := "/api/v1/orders/" + uuid.NewString()
	warehousePath := "/api/v1/warehouses/" + uuid.NewString()

	tests := []struct {
		name   string
		role   auth.Role
		method string
		path   string
	}{
		{"dispatcher cannot check out", auth.RoleDispatcher, http.MethodPost, orderPath + "/checkout"},
		{"manager cannot use the cart", auth.RoleManager, http.MethodPost, "/api/v1/cart/items"},
		{"client cannot sign internally", auth.RoleClient, http.MethodPost, orderPath + "/internal-sign"},
		{"client cannot trigger dispatch", auth.RoleClient, http.MethodPost, orderPath + "/driver/search"},
		{"manager cannot assign drivers", auth.RoleManager, http.MethodPost, orderPath + "/driver"},
		{"client cannot move the driver", auth.RoleClient, http.MethodPost, orderPath + "/location"},
		{"dispatcher cannot complete", auth.RoleDispatcher, http.MethodPost, orderPath + "/complete"},
		{"client cannot fake a payment webhook", auth.RoleClient, http.MethodPost, "/api/v1/webhooks/payment"},
		{"manager cannot push stock", auth.RoleManager, http.MethodPost, "/api/v1/erp/stock"},
		{"client cannot trigger a sync", auth.RoleClient, http.MethodPost, warehousePath + "/sync"},
		{"dispatcher cannot sweep", auth.RoleDispatcher, http.MethodPost, "/api/v1/warehouses/sync-stale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			apiEngine(tt.role).ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}

	t.Run("anonymous caller", func(t *testing.T) {
		w := httptest.NewRecorder()
		apiEngine("").ServeHTTP(w, httptest.NewRequest(http.MethodPost, orderPath+"/checkout", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
