package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JustJay7/court-data-service/internal/apperr"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// respondError renders err as {status, code, message} with the status code
// carried by the error. Unknown errors are reported as 500 without their
// text.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := apperr.StatusOf(err)
	body := gin.H{
		"status": statusError,
		"code":   apperr.CodeOf(err),
	}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		body["message"] = appErr.Message
		if field, ok := appErr.Details["field"]; ok {
			body["field"] = field
		}
	default:
		body["message"] = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"path", c.FullPath(),
			"status", status,
			"error", err,
			"request_id", c.GetString(RequestIDKey),
		)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(field, msg string) error {
	return apperr.Validation(field, msg)
}
