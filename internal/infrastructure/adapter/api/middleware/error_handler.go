package middleware

import (
	"errors"
	"net/http"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/dto"
	"github.com/gin-gonic/gin"
)

// ErrorHandler middleware recovers from panics and renders errors that handlers
// attached with c.Error into the standard error response
func ErrorHandler(logger coreport.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered in API request", map[string]any{
					"error":      err,
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"client_ip":  c.ClientIP(),
					"request_id": RequestIDFromContext(c),
					"user_agent": c.Request.UserAgent(),
				})

				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
					Code:    errs.ErrorCode(errs.ErrInternalServer),
					Message: "Internal server error",
				})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := errs.HTTPStatus(err)
		fields := map[string]any{
			"error":      err.Error(),
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"status":     status,
			"request_id": RequestIDFromContext(c),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", fields)
		} else {
			logger.Debug("Request rejected", fields)
		}

		c.AbortWithStatusJSON(status, NewErrorResponse(err))
	}
}

// NewErrorResponse maps a domain error to the API error body. Server-side failures
// are reported without their internal details.
func NewErrorResponse(err error) dto.ErrorResponse {
	resp := dto.ErrorResponse{
		Code:    errs.ErrorCode(err),
		Message: err.Error(),
	}

	var vErr *errs.ValidationError
	if errors.As(err, &vErr) {
		resp.Message = errs.ErrValidation.Error()
		for _, f := range vErr.Fields {
			resp.Fields = append(resp.Fields, dto.FieldError{Field: f.Field, Message: f.Message})
		}
		return resp
	}

	switch errs.HTTPStatus(err) {
	case http.StatusInternalServerError:
		resp.Message = "Internal server error"
	case http.StatusServiceUnavailable:
		resp.Message = "Service temporarily unavailable"
	case http.StatusNotFound:
		if errors.Is(err, errs.ErrLinkNotFound) {
			resp.Message = errs.ErrLinkNotFound.Error()
		} else {
			resp.Message = errs.ErrTransactionNotFound.Error()
		}
	}
	return resp
}
