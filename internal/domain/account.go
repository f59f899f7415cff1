package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string
type AccountStatus string

const (
	AccountTypeSavings          AccountType = "savings"
	AccountTypeRecurringDeposit AccountType = "recurring_deposit"
	AccountTypeFixedDeposit     AccountType = "fixed_deposit"
	AccountTypePigmy            AccountType = "pigmy"
)

const (
	AccountStatusActive  AccountStatus = "Active"
	AccountStatusPending AccountStatus = "Pending"
	AccountStatusClosed  AccountStatus = "Closed"
)

// DefaultDurationMonths is used when an account carries no term
const DefaultDurationMonths = 12

// ValidAccountTypes lists the deposit products a branch can hold
var ValidAccountTypes = map[AccountType]bool{
	AccountTypeSavings:          true,
	AccountTypeRecurringDeposit: true,
	AccountTypeFixedDeposit:     true,
	AccountTypePigmy:            true,
}

// ValidAccountStatuses lists the statuses accepted as list filters
var ValidAccountStatuses = map[AccountStatus]bool{
	AccountStatusActive:  true,
	AccountStatusPending: true,
	AccountStatusClosed:  true,
}

type Account struct {
	ID               int32            `json:"id"`
	BranchID         int32            `json:"branchId"`
	AccountNo        string           `json:"accountNo"`
	AccountType      AccountType      `json:"accountType"`
	MemberID         int32            `json:"memberId"`
	MemberName       string           `json:"memberName"`
	AccountAmount    decimal.Decimal  `json:"accountAmount"`
	InterestRate     decimal.Decimal  `json:"interestRate"`
	Duration         int32            `json:"duration"`
	Status           AccountStatus    `json:"status"`
	DateOfOpen       time.Time        `json:"dateOfOpen"`
	DateOfMaturity   *time.Time       `json:"dateOfMaturity,omitempty"`
	DateOfClose      *time.Time       `json:"dateOfClose,omitempty"`
	PayoutAmount     *decimal.Decimal `json:"payoutAmount,omitempty"`
	InterestPaid     *decimal.Decimal `json:"interestPaid,omitempty"`
	PaymentMode      *string          `json:"paymentMode,omitempty"`
	PaymentReference *string          `json:"paymentReference,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// IsClosed reports whether the account already reached its terminal status
func (a *Account) IsClosed() bool {
	return a.Status == AccountStatusClosed
}

// AccountFilter narrows account listings; zero values mean "any"
type AccountFilter struct {
	Status      AccountStatus
	AccountType AccountType
}

// OperationResult is the envelope returned by every settlement backend call
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AccountClosureUpdate carries the fields written by a cash settlement
type AccountClosureUpdate struct {
	Status           AccountStatus   `json:"status"`
	DateOfClose      time.Time       `json:"date_of_close"`
	AccountAmount    decimal.Decimal `json:"account_amount"`
	PayoutAmount     decimal.Decimal `json:"payout_amount"`
	InterestPaid     decimal.Decimal `json:"interest_paid"`
	PaymentMode      string          `json:"payment_mode"`
	PaymentReference string          `json:"payment_reference,omitempty"`
}

type AccountRepository interface {
	GetByID(ctx context.Context, branchID int32, id int32) (*Account, error)
	List(ctx context.Context, branchID int32, filter AccountFilter) ([]*Account, error)
	// UpdateClosure is the "update account" settlement operation
	UpdateClosure(ctx context.Context, branchID int32, id int32, update AccountClosureUpdate) (*OperationResult, error)
	// Close is the "close account" operation used for zero-balance accounts
	Close(ctx context.Context, branchID int32, id int32) (*OperationResult, error)
}
