package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/middleware"
	"github.com/dafibh/coopbank/coopbank-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID               int32   `json:"id"`
	BranchID         int32   `json:"branchId"`
	AccountNo        string  `json:"accountNo"`
	AccountType      string  `json:"accountType"`
	MemberID         int32   `json:"memberId"`
	MemberName       string  `json:"memberName"`
	AccountAmount    string  `json:"accountAmount"`
	InterestRate     string  `json:"interestRate"`
	Duration         int32   `json:"duration"`
	Status           string  `json:"status"`
	DateOfOpen       string  `json:"dateOfOpen"`
	DateOfMaturity   *string `json:"dateOfMaturity,omitempty"`
	DateOfClose      *string `json:"dateOfClose,omitempty"`
	PayoutAmount     *string `json:"payoutAmount,omitempty"`
	InterestPaid     *string `json:"interestPaid,omitempty"`
	PaymentMode      *string `json:"paymentMode,omitempty"`
	PaymentReference *string `json:"paymentReference,omitempty"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

// GetAccounts godoc
// @Summary List accounts
// @Description List deposit accounts of the operator's branch
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (Active, Pending, Closed)"
// @Param type query string false "Filter by account type"
// @Success 200 {array} AccountResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /accounts [get]
func (h *AccountHandler) GetAccounts(c echo.Context) error {
	branchID := middleware.GetBranchID(c)

	filter := domain.AccountFilter{
		Status:      domain.AccountStatus(c.QueryParam("status")),
		AccountType: domain.AccountType(c.QueryParam("type")),
	}

	accounts, err := h.accountService.ListAccounts(c.Request().Context(), branchID, filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAccountStatus) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "status", Message: "Status must be one of: Active, Pending, Closed"},
			})
		}
		if errors.Is(err, domain.ErrInvalidAccountType) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "type", Message: "Type must be one of: savings, recurring_deposit, fixed_deposit, pigmy"},
			})
		}
		log.Error().Err(err).Int32("branch_id", branchID).Msg("Failed to list accounts")
		return NewInternalError(c, "Failed to list accounts")
	}

	response := make([]AccountResponse, len(accounts))
	for i, account := range accounts {
		response[i] = toAccountResponse(account)
	}
	return c.JSON(http.StatusOK, response)
}

// GetAccount godoc
// @Summary Get an account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} AccountResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c echo.Context) error {
	branchID := middleware.GetBranchID(c)

	id, err := parseAccountID(c)
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	account, err := h.accountService.GetAccount(c.Request().Context(), branchID, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return NewNotFoundError(c, "Account not found")
		}
		log.Error().Err(err).Int32("branch_id", branchID).Int32("account_id", id).Msg("Failed to get account")
		return NewInternalError(c, "Failed to get account")
	}

	return c.JSON(http.StatusOK, toAccountResponse(account))
}

func parseAccountID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id < 0 {
		return 0, domain.ErrInvalidInput
	}
	return int32(id), nil
}

func toAccountResponse(a *domain.Account) AccountResponse {
	resp := AccountResponse{
		ID:               a.ID,
		BranchID:         a.BranchID,
		AccountNo:        a.AccountNo,
		AccountType:      string(a.AccountType),
		MemberID:         a.MemberID,
		MemberName:       a.MemberName,
		AccountAmount:    a.AccountAmount.StringFixed(2),
		InterestRate:     a.InterestRate.String(),
		Duration:         a.Duration,
		Status:           string(a.Status),
		DateOfOpen:       a.DateOfOpen.Format("2006-01-02"),
		PayoutAmount:     formatAmountPtr(a.PayoutAmount),
		InterestPaid:     formatAmountPtr(a.InterestPaid),
		PaymentMode:      a.PaymentMode,
		PaymentReference: a.PaymentReference,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        a.UpdatedAt.Format(time.RFC3339),
	}
	if a.DateOfMaturity != nil {
		maturity := a.DateOfMaturity.Format("2006-01-02")
		resp.DateOfMaturity = &maturity
	}
	if a.DateOfClose != nil {
		closed := a.DateOfClose.Format(time.RFC3339)
		resp.DateOfClose = &closed
	}
	return resp
}

func formatAmountPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}
