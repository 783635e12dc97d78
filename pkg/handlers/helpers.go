package handlers

import (
	"errors"
	"log"
	"net/http"

	"waste-process-api/pkg/models"
	"waste-process-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// statusFor maps a pipeline error to its HTTP status. Only invalid input is
// the caller's fault; every other failure is reported as a server error.
func statusFor(err error) int {
	if errors.Is(err, services.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// errorDetail renders the client-facing description of err. Malformed
// model output is echoed back for diagnosis.
func errorDetail(err error) string {
	var malformed *services.MalformedResponseError
	if errors.As(err, &malformed) {
		return "El modelo no devolvió un JSON válido. Contenido limpio:\n" + malformed.Cleaned
	}
	return err.Error()
}

// abortWithError writes the {"detail": ...} body for err.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ [%s] %s %s: %v", c.Writer.Header().Get(services.RequestIDHeader), c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Detail: errorDetail(err)})
}

// RequestIDMiddleware reuses the caller's X-Request-ID or assigns a new
// UUID, echoes it on the response and stores it in the request context.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(services.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(services.RequestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// APIKeyMiddleware checks the X-API-KEY header. An empty key disables the check.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Detail: "Unauthorized"})
			return
		}
		c.Next()
	}
}
