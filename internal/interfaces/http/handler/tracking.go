package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	orderapp "github.com/shadiyar7/repair-platform-sub000/internal/application/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/dto"
)

// TrackingService resolves public tracking links
type TrackingService interface {
	Track(ctx context.Context, token string) (*orderapp.TrackingResponse, error)
}

// TrackingHandler serves the unauthenticated tracking page data
type TrackingHandler struct {
	BaseHandler
	trackingService TrackingService
}

// NewTrackingHandler creates a new TrackingHandler
func NewTrackingHandler(trackingService TrackingService) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
	}
}

// Track godoc
// @ID           trackOrder
// @Summary      Public order tracking
// @Description  Returns status and driver position for a tracking token. Contact and billing data are never included.
// @Tags         tracking
// @Produce      json
// @Param        token path string true "Tracking token"
// @Success      200 {object} APIResponse[orderapp.TrackingResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /track/{token} [get]
func (h *TrackingHandler) Track(c *gin.Context) {
	token := c.Param("token")
	if len(token) < 16 || len(token) > 128 {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Tracking link not found")
		return
	}

	view, err := h.trackingService.Track(c.Request.Context(), token)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}
