package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/backend/internal/interfaces/http/dto"
)

// DefaultMaxBodySize limits request bodies to 1MB. Invoice and payment
// payloads are small; anything larger is a client bug or abuse.
const DefaultMaxBodySize int64 = 1 << 20

// BodyLimit returns a middleware that rejects request bodies over maxSize
// bytes. A non-positive maxSize falls back to DefaultMaxBodySize.
func BodyLimit(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}

	return func(c *gin.Context) {
		// Reject early when the client declares an oversized body.
		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRequestTooLarge, "request body too large", GetRequestID(c)))
			return
		}

		// MaxBytesReader guards chunked uploads with no Content-Length.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)

		c.Next()
	}
}
