package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConsistencyTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a service error to its status. Unclassified errors are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, lg logger.Logger, action string, err error) {
	derr, ok := domain.AsError(err)
	if !ok {
		lg.Error(action, "Unhandled error", requestID(c), nil, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	status := statusFor(derr.Kind)
	if status >= http.StatusInternalServerError {
		lg.Error(action, "Request failed upstream", requestID(c), map[string]interface{}{"kind": derr.Kind.String()}, err)
	} else {
		lg.Debug(action, derr.Message, requestID(c), map[string]interface{}{"kind": derr.Kind.String()})
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   derr.Error(),
		Code:    derr.Kind.String(),
		Details: derr.Details,
	})
}

func respondInvalid(c *gin.Context, message string, errs ...ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:  message,
		Code:   domain.KindValidation.String(),
		Errors: errs,
	})
}

// respondOK writes {"ok": true} merged with body.
func respondOK(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["ok"] = true
	c.JSON(status, body)
}
