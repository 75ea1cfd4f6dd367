package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/shadiyar7/repair-platform-sub000/internal/application/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/auth"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/logger"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/dto"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getUserID extracts the caller's user id from the validated token
func getUserID(c *gin.Context) (uuid.UUID, error) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	return claims.UserUUID()
}

// getActor describes the caller of a read operation
func getActor(c *gin.Context) (orderapp.Actor, error) {
	userID, err := getUserID(c)
	if err != nil {
		return orderapp.Actor{}, err
	}
	actor := orderapp.Actor{UserID: userID}
	switch middleware.GetJWTRole(c) {
	case auth.RoleManager, auth.RoleDispatcher, auth.RoleIntegration:
		actor.Staff = true
	}
	return actor, nil
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response for work that continues in the background
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindJSON binds and validates the request body. On failure the 400
// response is already written and false is returned.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// ParseID parses a uuid path parameter, answering 400 when it is malformed
func (h *BaseHandler) ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid "+param+" format")
		return uuid.Nil, false
	}
	return id, true
}

// HandleError translates a service error into the error envelope.
// Integration failures are logged with the upstream body, which never
// reaches the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)
	log := logger.GetGinLogger(c)
	_ = c.Error(err)

	var integrationErr *integration.Error
	if errors.As(err, &integrationErr) {
		log.Warn("Integration call failed",
			zap.String("system", string(integrationErr.System)),
			zap.String("step", integrationErr.Step),
			zap.String("kind", string(integrationErr.Kind)),
			zap.Int("upstream_status", integrationErr.StatusCode),
			zap.String("upstream_body", integrationErr.Body),
			zap.Error(integrationErr.Err),
		)
		err = integrationErr.DomainError()
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		c.JSON(status, dto.NewDetailedErrorResponse(domainErr.Code, domainErr.Message, requestID, domainErr.Details))
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusBadGateway, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeIntegrationUnavailable, shared.ErrIntegrationUnavailable.Message, requestID))
		return
	}

	log.Error("Unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}
