package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/auth"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func issue(t *testing.T, svc *auth.JWTService, role auth.Role, ttl time.Duration) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, _, err := svc.GenerateAccessToken(userID, role, ttl)
	require.NoError(t, err)
	return token, userID
}

func authRouter(cfg JWTMiddlewareConfig, guards ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuthMiddlewareWithConfig(cfg))
	handlers := append(guards, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetJWTUserID(c), "role": GetJWTRole(c)})
	})
	router.GET("/api/v1/orders", handlers...)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/track/:token", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func bearer(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	return req
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	token, userID := issue(t, svc, auth.RoleClient, 0)

	w := serve(authRouter(DefaultJWTConfig(svc)), bearer("/api/v1/orders", token))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, userID.String(), body["user_id"])
	assert.Equal(t, "client", body["role"])
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	svc := newTestJWTService()
	router := authRouter(DefaultJWTConfig(svc))

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", dto.ErrCodeUnauthorized},
		{"empty token", "Bearer ", dto.ErrCodeUnauthorized},
		{"garbage token", "Bearer not.a.jwt", dto.ErrCodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := serve(router, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestJWTAuthMiddleware_ExpiredToken(t *testing.T) {
	svc := newTestJWTService()
	token, _ := issue(t, svc, auth.RoleClient, time.Nanosecond)
	time.Sleep(1100 * time.Millisecond)

	w := serve(authRouter(DefaultJWTConfig(svc)), bearer("/api/v1/orders", token))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenExpired, errorCode(t, w))
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	router := authRouter(DefaultJWTConfig(newTestJWTService()))

	assert.Equal(t, http.StatusOK, serve(router, bearer("/health", "")).Code)
	assert.Equal(t, http.StatusOK, serve(router, bearer("/api/v1/track/abc", "")).Code)
}

func TestJWTAuthMiddleware_CustomOnError(t *testing.T) {
	var seen error
	cfg := DefaultJWTConfig(newTestJWTService())
	cfg.OnError = func(c *gin.Context, err error) {
		seen = err
		c.String(http.StatusTeapot, "nope")
	}

	w := serve(authRouter(cfg), bearer("/api/v1/orders", ""))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, errors.Is(seen, auth.ErrInvalidToken))
}

func TestRequireRoles(t *testing.T) {
	svc := newTestJWTService()
	router := authRouter(DefaultJWTConfig(svc), RequireRoles(auth.RoleManager, auth.RoleDispatcher))

	manager, _ := issue(t, svc, auth.RoleManager, 0)
	client, _ := issue(t, svc, auth.RoleClient, 0)

	assert.Equal(t, http.StatusOK, serve(router, bearer("/api/v1/orders", manager)).Code)

	w := serve(router, bearer("/api/v1/orders", client))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w))
}

func TestRequireRoles_WithoutClaims(t *testing.T) {
	router := gin.New()
	router.GET("/x", RequireRoles(auth.RoleManager), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClaimAccessors_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
	assert.Empty(t, GetJWTRole(c))
}
