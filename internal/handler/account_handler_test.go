package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/service"
	"github.com/dafibh/coopbank/coopbank-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerTestAccount(id, branchID int32, amount string) *domain.Account {
	return &domain.Account{
		ID:            id,
		BranchID:      branchID,
		AccountNo:     "RD-" + amount,
		AccountType:   domain.AccountTypeRecurringDeposit,
		MemberID:      10,
		MemberName:    "Lakshmi",
		AccountAmount: decimal.RequireFromString(amount),
		InterestRate:  decimal.NewFromInt(6),
		Duration:      12,
		Status:        domain.AccountStatusActive,
		DateOfOpen:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGetAccounts_BranchScoped(t *testing.T) {
	e := echo.New()
	accountRepo := testutil.NewMockAccountRepository()
	accountRepo.AddAccount(newHandlerTestAccount(1, 1, "10000"))
	accountRepo.AddAccount(newHandlerTestAccount(2, 2, "500"))
	handler := NewAccountHandler(service.NewAccountService(accountRepo))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContextWithBranch(c, "auth0|teller", 1)

	require.NoError(t, handler.GetAccounts(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response []AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, int32(1), response[0].ID)
	assert.Equal(t, "10000.00", response[0].AccountAmount)
	assert.Equal(t, "2025-03-01", response[0].DateOfOpen)
}

func TestGetAccounts_InvalidFilter(t *testing.T) {
	e := echo.New()
	handler := NewAccountHandler(service.NewAccountService(testutil.NewMockAccountRepository()))

	for _, query := range []string{"status=Frozen", "type=current"} {
		t.Run(query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts?"+query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			setupAuthContextWithBranch(c, "auth0|teller", 1)

			require.NoError(t, handler.GetAccounts(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var problem ProblemDetails
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, ErrorTypeValidation, problem.Type)
			assert.Len(t, problem.Errors, 1)
		})
	}
}

func TestGetAccount(t *testing.T) {
	e := echo.New()
	accountRepo := testutil.NewMockAccountRepository()
	accountRepo.AddAccount(newHandlerTestAccount(5, 1, "750"))
	handler := NewAccountHandler(service.NewAccountService(accountRepo))

	tests := []struct {
		name   string
		id     string
		branch int32
		status int
	}{
		{"found", "5", 1, http.StatusOK},
		{"other branch", "5", 2, http.StatusNotFound},
		{"head office", "5", 0, http.StatusOK},
		{"missing", "99", 1, http.StatusNotFound},
		{"not a number", "abc", 1, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+tt.id, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues(tt.id)
			setupAuthContextWithBranch(c, "auth0|teller", tt.branch)

			require.NoError(t, handler.GetAccount(c))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
