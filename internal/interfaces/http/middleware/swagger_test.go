package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})
	return router
}

func swaggerRequest(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remote
	return req
}

func TestSwaggerProtection(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SwaggerConfig
		remote string
		want   int
	}{
		{"disabled", SwaggerConfig{Enabled: false}, "10.0.0.1:1234", http.StatusNotFound},
		{"open", SwaggerConfig{Enabled: true}, "203.0.113.9:1234", http.StatusOK},
		{"exact ip allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}, "10.0.0.1:1234", http.StatusOK},
		{"cidr allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.1.0.0/16"}}, "10.1.44.2:1234", http.StatusOK},
		{"outside whitelist", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.1.0.0/16"}}, "203.0.113.9:1234", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(swaggerRouter(tt.cfg), swaggerRequest(tt.remote))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestIsIPAllowed(t *testing.T) {
	_, network, _ := net.ParseCIDR("192.168.0.0/24")
	assert.True(t, isIPAllowed(net.ParseIP("192.168.0.7"), []*net.IPNet{network}))
	assert.False(t, isIPAllowed(net.ParseIP("192.168.1.7"), []*net.IPNet{network}))
	assert.False(t, isIPAllowed(nil, []*net.IPNet{network}))
}
