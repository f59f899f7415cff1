package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
)

var (
	// ErrInvalidToken is returned when JWT validation fails
	ErrInvalidToken = errors.New("invalid token")
	// ErrOperatorNotFound is returned when the token subject is not a known operator
	ErrOperatorNotFound = errors.New("operator not found")
)

// OperatorLookup resolves the operator behind a token subject
type OperatorLookup interface {
	GetOperatorByAuth0ID(ctx context.Context, auth0ID string) (*domain.Operator, error)
}

// Auth0JWTValidator validates Auth0 JWT tokens for WebSocket connections
type Auth0JWTValidator struct {
	validator      *validator.Validator
	operatorLookup OperatorLookup
}

// NewAuth0JWTValidator creates a new Auth0JWTValidator
func NewAuth0JWTValidator(domainName, audience string, operatorLookup OperatorLookup) (*Auth0JWTValidator, error) {
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
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return &Auth0JWTValidator{
		validator:      jwtValidator,
		operatorLookup: operatorLookup,
	}, nil
}

// ValidateToken validates a JWT and returns the operator it belongs to
func (v *Auth0JWTValidator) ValidateToken(ctx context.Context, token string) (*domain.Operator, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	operator, err := v.operatorLookup.GetOperatorByAuth0ID(ctx, validatedClaims.RegisteredClaims.Subject)
	if errors.Is(err, domain.ErrOperatorNotFound) {
		return nil, ErrOperatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup operator: %w", err)
	}
	return operator, nil
}
