package middleware

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// Auth0IDKey is the context key for the Auth0 user ID (subject)
	Auth0IDKey contextKey = "auth0_id"
	// OperatorKey is the context key for the authenticated operator
	OperatorKey contextKey = "operator"
)

// OperatorProvider resolves the operator behind an Auth0 subject
type OperatorProvider interface {
	GetOperatorByAuth0ID(ctx context.Context, auth0ID string) (*domain.Operator, error)
}

// TokenValidator validates a raw bearer token; *validator.Validator satisfies it
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	validator        TokenValidator
	operatorProvider OperatorProvider
}

// NewAuthMiddleware creates a new AuthMiddleware with Auth0 configuration
func NewAuthMiddleware(domainName, audience string, operatorProvider OperatorProvider) (*AuthMiddleware, error) {
	issuerURL, err := url.Parse("https://" + domainName + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return NewAuthMiddlewareWithValidator(jwtValidator, operatorProvider), nil
}

// NewAuthMiddlewareWithValidator creates an AuthMiddleware around an existing validator
func NewAuthMiddlewareWithValidator(tokenValidator TokenValidator, operatorProvider OperatorProvider) *AuthMiddleware {
	return &AuthMiddleware{
		validator:        tokenValidator,
		operatorProvider: operatorProvider,
	}
}

// Authenticate returns an Echo middleware that validates JWT tokens and
// attaches the operator (and with it the branch) to the request context
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "Missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "Invalid authorization header format")
			}

			claims, err := m.validator.ValidateToken(c.Request().Context(), parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "Invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "Invalid claims")
			}

			auth0ID := validatedClaims.RegisteredClaims.Subject

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			ctx = context.WithValue(ctx, Auth0IDKey, auth0ID)

			if m.operatorProvider != nil {
				operator, err := m.operatorProvider.GetOperatorByAuth0ID(ctx, auth0ID)
				if errors.Is(err, domain.ErrOperatorNotFound) {
					log.Debug().Str("auth0_id", auth0ID).Msg("Token subject is not a registered operator")
					return forbiddenError(c, "No operator is registered for this login")
				}
				if err != nil {
					log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Operator lookup failed")
					return internalError(c, "Failed to load operator")
				}
				ctx = context.WithValue(ctx, OperatorKey, operator)
			}

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetAuth0ID extracts the Auth0 user ID from the context
func GetAuth0ID(c echo.Context) string {
	if id, ok := c.Request().Context().Value(Auth0IDKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetOperator extracts the authenticated operator from the context
func GetOperator(c echo.Context) *domain.Operator {
	if op, ok := c.Request().Context().Value(OperatorKey).(*domain.Operator); ok {
		return op
	}
	return nil
}

// GetBranchID returns the operator's branch. Zero means head office.
func GetBranchID(c echo.Context) int32 {
	if op := GetOperator(c); op != nil {
		return op.BranchID
	}
	return 0
}

// GetOperatorID returns an identifier for the acting operator, falling back to
// the Auth0 subject when no operator record is attached
func GetOperatorID(c echo.Context) string {
	if op := GetOperator(c); op != nil && op.Auth0ID != "" {
		return op.Auth0ID
	}
	return GetAuth0ID(c)
}
