package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/middleware"
	"github.com/dafibh/coopbank/coopbank-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// OperatorResponse represents the authenticated operator
type OperatorResponse struct {
	ID         int32  `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	BranchID   int32  `json:"branchId"`
	HeadOffice bool   `json:"headOffice"`
	CreatedAt  string `json:"createdAt"`
}

// Me godoc
// @Summary Current operator
// @Description Return the operator behind the bearer token and the branch it acts for
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} OperatorResponse
// @Failure 401 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	auth0ID := middleware.GetAuth0ID(c)
	if auth0ID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	// The auth middleware normally attached the operator already
	operator := middleware.GetOperator(c)
	if operator == nil {
		var err error
		operator, err = h.authService.GetOperatorByAuth0ID(c.Request().Context(), auth0ID)
		if err != nil {
			if errors.Is(err, domain.ErrOperatorNotFound) {
				return NewForbiddenError(c, "No operator is registered for this account")
			}
			log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to get operator")
			return NewInternalError(c, "Failed to get operator")
		}
	}

	return c.JSON(http.StatusOK, OperatorResponse{
		ID:         operator.ID,
		Name:       operator.Name,
		Role:       string(operator.Role),
		BranchID:   operator.BranchID,
		HeadOffice: operator.BranchID == 0,
		CreatedAt:  operator.CreatedAt.Format(time.RFC3339),
	})
}
