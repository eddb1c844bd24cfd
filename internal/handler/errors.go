package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketlens/internal/insight"
)

func statusFor(code insight.Code) int {
	switch code {
	case insight.CodeInvalidRequest:
		return http.StatusBadRequest
	case insight.CodeNotFound:
		return http.StatusNotFound
	case insight.CodeRateLimited:
		return http.StatusTooManyRequests
	case insight.CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, code insight.Code, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	c.AbortWithStatusJSON(statusFor(code), ErrorResponse{
		Error: ErrorBody{
			Code:    string(code),
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// respondError logs the full error and sends only its classified form.
func respondError(c *gin.Context, err error) {
	e := insight.AsError(err)
	slog.Error("request failed", "path", c.FullPath(), "code", e.Code, "request_id", c.GetString(requestIDKey), "error", err)
	writeError(c, e.Code, e.Message, e.Details)
}
