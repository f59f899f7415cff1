package service

import (
	"context"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
)

// AccountService handles deposit account lookups
type AccountService struct {
	accountRepo domain.AccountRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo domain.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

// GetAccount retrieves an account by ID within a branch
func (s *AccountService) GetAccount(ctx context.Context, branchID int32, id int32) (*domain.Account, error) {
	return s.accountRepo.GetByID(ctx, branchID, id)
}

// ListAccounts retrieves the branch's accounts, optionally filtered by status and type
func (s *AccountService) ListAccounts(ctx context.Context, branchID int32, filter domain.AccountFilter) ([]*domain.Account, error) {
	if filter.Status != "" && !domain.ValidAccountStatuses[filter.Status] {
		return nil, domain.ErrInvalidAccountStatus
	}
	if filter.AccountType != "" && !domain.ValidAccountTypes[filter.AccountType] {
		return nil, domain.ErrInvalidAccountType
	}
	return s.accountRepo.List(ctx, branchID, filter)
}
