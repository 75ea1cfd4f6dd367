package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shadiyar7/repair-platform-sub000/internal/interfaces/http/dto"
)

// BodyLimit returns a middleware that limits request body size. Signature
// blobs and ERP stock pushes are the largest bodies the API accepts.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				GetRequestID(c),
			))
			return
		}

		// Chunked bodies report no length; cap the reader instead
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
