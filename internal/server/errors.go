package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	aggregatordomain "github.com/smallbiznis/ordersync/internal/aggregator/domain"
	credentialdomain "github.com/smallbiznis/ordersync/internal/credential/domain"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	syncdomain "github.com/smallbiznis/ordersync/internal/sync/domain"
	synclogdomain "github.com/smallbiznis/ordersync/internal/synclog/domain"
	"github.com/smallbiznis/ordersync/pkg/db/pagination"
	"github.com/smallbiznis/ordersync/pkg/integration"
	"github.com/smallbiznis/ordersync/pkg/tenantctx"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// validationSentinels are the domain errors surfaced as 400s. The sentinel
// text becomes the error code.
var validationSentinels = []error{
	ErrInvalidRequest,
	credentialdomain.ErrInvalidProvider,
	credentialdomain.ErrInvalidConfig,
	credentialdomain.ErrMissingField,
	orderdomain.ErrInvalidID,
	orderdomain.ErrInvalidStatus,
	synclogdomain.ErrInvalidStatus,
	syncdomain.ErrInvalidProvider,
	syncdomain.ErrUnknownCatalog,
	aggregatordomain.ErrInvalidConfig,
	integration.ErrUnknownProvider,
	pagination.ErrInvalidPageToken,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: err.Error(),
				},
			},
		}
	}

	// Upstream failures carry the provider's text verbatim so operators can act on it.
	var upstreamErr *integration.UpstreamError
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, tenantctx.ErrMissingTenant),
		errors.Is(err, credentialdomain.ErrInvalidTenant),
		errors.Is(err, orderdomain.ErrInvalidTenant),
		errors.Is(err, synclogdomain.ErrInvalidTenant),
		errors.Is(err, syncdomain.ErrInvalidTenant):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, integration.ErrConfigMissing):
		return http.StatusPreconditionFailed, errorPayload{
			Type:    "config_missing",
			Message: err.Error(),
		}
	case integration.IsAuth(err),
		errors.As(err, &upstreamErr) && upstreamErr.Unauthorized():
		return http.StatusUnauthorized, errorPayload{
			Type:    "upstream_auth_error",
			Message: err.Error(),
		}
	case integration.IsUpstream(err):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: err.Error(),
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, syncdomain.ErrSyncInProgress),
		errors.Is(err, orderdomain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code attached to request logs.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		return "internal", code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, credentialdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, aggregatordomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) (string, bool) {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}
	return "", false
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "unknown_provider":
		return "provider"
	case "unknown_catalog":
		return "catalog"
	case "missing_field":
		return "credentials"
	case "invalid_config":
		return "settings"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
