package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// JWTValidator resolves a bearer token to the operator it was issued to
type JWTValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Operator, error)
}

var (
	errInvalidBranch = errors.New("invalid branch")
	errForeignBranch = errors.New("branch outside operator scope")
)

// WebSocketHandler streams closure events to portal operators
type WebSocketHandler struct {
	hub            *websocket.Hub
	validator      JWTValidator
	allowedOrigins map[string]bool
	upgrader       ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, validator JWTValidator, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:            hub,
		validator:      validator,
		allowedOrigins: make(map[string]bool, len(allowedOrigins)),
	}
	for _, origin := range allowedOrigins {
		h.allowedOrigins[origin] = true
	}

	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts portal origins and non-browser clients that send none
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigins[origin] {
		return true
	}

	log.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// HandleWS godoc
// @Summary Closure event stream
// @Description Upgrade to a WebSocket that receives account.closed and account.closure_failed events.
// @Description Head office operators receive every branch unless they pass branch to narrow the stream.
// @Tags events
// @Param token query string true "Access token"
// @Param branch query int false "Branch to watch (head office only)"
// @Success 101
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /ws [get]
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	// Browsers cannot set headers on websocket requests, so the token travels in the query
	token := c.QueryParam("token")
	if token == "" {
		return NewUnauthorizedError(c, "Missing access token")
	}

	operator, err := h.validator.ValidateToken(c.Request().Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, websocket.ErrInvalidToken):
			log.Debug().Err(err).Msg("WebSocket connection rejected: invalid token")
			return NewUnauthorizedError(c, "Invalid access token")
		case errors.Is(err, websocket.ErrOperatorNotFound):
			return NewForbiddenError(c, "No operator is registered for this account")
		}
		log.Error().Err(err).Msg("WebSocket operator lookup failed")
		return NewInternalError(c, "Failed to authenticate connection")
	}

	branchID, err := subscriptionBranch(operator, c.QueryParam("branch"))
	switch {
	case errors.Is(err, errInvalidBranch):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "branch", Message: "Must be a branch ID"},
		})
	case errors.Is(err, errForeignBranch):
		return NewForbiddenError(c, "Operators can only watch their own branch")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		log.Warn().Err(err).Str("operator_id", operator.Auth0ID).Msg("WebSocket upgrade failed")
		return nil
	}

	client := websocket.NewClient(conn, branchID, operator.Auth0ID, h.hub)
	h.hub.Register(client)

	log.Info().
		Int32("branch_id", branchID).
		Str("operator_id", operator.Auth0ID).
		Str("client_id", client.ID()).
		Msg("WebSocket client connected")

	go client.WritePump()
	go client.ReadPump()

	return nil
}

// subscriptionBranch picks the branch a connection listens to. Branch operators are
// pinned to their own branch; head office may narrow to any single branch.
func subscriptionBranch(operator *domain.Operator, raw string) (int32, error) {
	if raw == "" {
		return operator.BranchID, nil
	}

	requested, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || requested < 0 {
		return 0, errInvalidBranch
	}
	if operator.BranchID != websocket.HeadOfficeBranchID && int32(requested) != operator.BranchID {
		return 0, errForeignBranch
	}
	return int32(requested), nil
}
