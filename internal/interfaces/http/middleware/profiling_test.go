package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
)

func TestProfilingWithConfig_SetsLabels(t *testing.T) {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		setClaims(c, &auth.Claims{UserID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", Role: auth.RoleClient})
		c.Next()
	}, ProfilingWithConfig(DefaultProfilingConfig()))

	var route, role, resource string
	router.POST("/api/v1/orders/:id/checkout", func(c *gin.Context) {
		route, _ = pprof.Label(c.Request.Context(), ProfilingLabelRoute)
		role, _ = pprof.Label(c.Request.Context(), ProfilingLabelRole)
		resource, _ = pprof.Label(c.Request.Context(), ProfilingLabelResource)
		c.Status(http.StatusOK)
	})

	serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/orders/42/checkout", nil))

	assert.Equal(t, "/api/v1/orders/:id/checkout", route)
	assert.Equal(t, "client", role)
	assert.Equal(t, "orders", resource)
}

func TestProfilingWithConfig_SkipsAndDisabled(t *testing.T) {
	for name, cfg := range map[string]ProfilingConfig{
		"skipped":  DefaultProfilingConfig(),
		"disabled": {Enabled: false},
	} {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.Use(ProfilingWithConfig(cfg))
			labelled := true
			router.GET("/health", func(c *gin.Context) {
				_, labelled = pprof.Label(c.Request.Context(), ProfilingLabelMethod)
				c.Status(http.StatusOK)
			})

			serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.False(t, labelled)
		})
	}
}

func TestResourceFromRoute(t *testing.T) {
	cases := map[string]string{
		"/api/v1/orders/:id/checkout":  "orders",
		"/api/v1/warehouses/:id/sync":  "warehouses",
		"/api/v1/webhooks/erp/payment": "webhooks",
		"/api/v2/track/:token":         "track",
		"/health":                      "health",
		"":                             "",
	}
	for route, want := range cases {
		assert.Equal(t, want, resourceFromRoute(route), route)
	}
	assert.True(t, isVersionSegment("v12"))
	assert.False(t, isVersionSegment("vx"))
}
