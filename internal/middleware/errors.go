package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const errorTypeBase = "https://coopbank.app/errors/"

// problemDetails mirrors the handler package's RFC 7807 body so portal clients
// parse middleware rejections the same way
type problemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func problem(c echo.Context, status int, slug, detail string) error {
	return c.JSON(status, problemDetails{
		Type:     errorTypeBase + slug,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

func unauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, "unauthorized", detail)
}

func forbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, "forbidden", detail)
}

func rateLimitError(c echo.Context, detail string) error {
	return problem(c, http.StatusTooManyRequests, "rate-limit", detail)
}

func internalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, "internal", detail)
}
