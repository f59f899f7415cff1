package service

import (
	"context"
	"errors"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// AuthService resolves authenticated logins to branch operators
type AuthService struct {
	operatorRepo domain.OperatorRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(operatorRepo domain.OperatorRepository) *AuthService {
	return &AuthService{operatorRepo: operatorRepo}
}

// GetOperatorByAuth0ID returns the operator registered for an Auth0 subject.
// Logins without an operator record are not provisioned automatically.
func (s *AuthService) GetOperatorByAuth0ID(ctx context.Context, auth0ID string) (*domain.Operator, error) {
	if auth0ID == "" {
		return nil, domain.ErrUnauthorized
	}

	operator, err := s.operatorRepo.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		if !errors.Is(err, domain.ErrOperatorNotFound) {
			log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to get operator")
		}
		return nil, err
	}
	return operator, nil
}
