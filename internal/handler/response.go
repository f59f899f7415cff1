package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://coopbank.app/errors/validation"
	ErrorTypeNotFound     = "https://coopbank.app/errors/not-found"
	ErrorTypeUnauthorized = "https://coopbank.app/errors/unauthorized"
	ErrorTypeForbidden    = "https://coopbank.app/errors/forbidden"
	ErrorTypeInternal     = "https://coopbank.app/errors/internal"
	// ErrorTypeSettlement marks a closure the account backend refused
	ErrorTypeSettlement = "https://coopbank.app/errors/settlement-rejected"
	// ErrorTypeBadGateway marks a closure whose backend call never completed
	ErrorTypeBadGateway = "https://coopbank.app/errors/bad-gateway"
)

func writeProblem(c echo.Context, status int, errorType, title, detail string, errors []ValidationError) error {
	return c.JSON(status, ProblemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewValidationError creates a 400 response listing the offending fields
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return writeProblem(c, http.StatusBadRequest, ErrorTypeValidation, "Validation Error", detail, errors)
}

func NewNotFoundError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail, nil)
}

func NewUnauthorizedError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail, nil)
}

func NewForbiddenError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail, nil)
}

// NewSettlementRejectedError reports a closure the backend refused. The detail is
// the backend's own message, shown to the operator unchanged.
func NewSettlementRejectedError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusConflict, ErrorTypeSettlement, "Settlement Rejected", detail, nil)
}

// NewBadGatewayError reports a settlement call that failed in transit
func NewBadGatewayError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusBadGateway, ErrorTypeBadGateway, "Settlement Failed", detail, nil)
}

func NewInternalError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail, nil)
}
