package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClosureRequest is everything an operator submits to close one account
type ClosureRequest struct {
	BranchID         int32
	AccountID        int32
	OperatorID       string
	IsMatured        bool
	PaymentMode      PaymentMode
	PaymentReference string
}

// ClosureResult reflects a successful closure back to the caller
type ClosureResult struct {
	AccountID     int32           `json:"accountId"`
	AccountNo     string          `json:"accountNo"`
	Path          SettlementPath  `json:"path"`
	Status        AccountStatus   `json:"status"`
	Breakdown     PayoutBreakdown `json:"breakdown"`
	PaymentMode   PaymentMode     `json:"paymentMode,omitempty"`
	GatewayMethod GatewayMethod   `json:"gatewayMethod,omitempty"`
	Message       string          `json:"message"`
	VoucherKey    string          `json:"voucherKey,omitempty"`
	ClosedAt      time.Time       `json:"closedAt"`
}

// PayoutPreview is the calculator output plus the path a closure would take
type PayoutPreview struct {
	AccountID int32           `json:"accountId"`
	AccountNo string          `json:"accountNo"`
	Status    AccountStatus   `json:"status"`
	Breakdown PayoutBreakdown `json:"breakdown"`
}

// ClosureLog records one closure attempt, successful or not
type ClosureLog struct {
	ID               uuid.UUID       `json:"id"`
	BranchID         int32           `json:"branchId"`
	AccountID        int32           `json:"accountId"`
	OperatorID       string          `json:"operatorId"`
	Path             SettlementPath  `json:"path"`
	PaymentMode      PaymentMode     `json:"paymentMode"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	IsMatured        bool            `json:"isMatured"`
	Principal        decimal.Decimal `json:"principal"`
	InterestAmount   decimal.Decimal `json:"interestAmount"`
	TotalPayout      decimal.Decimal `json:"totalPayout"`
	Succeeded        bool            `json:"succeeded"`
	Message          string          `json:"message"`
	VoucherKey       *string         `json:"voucherKey,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type ClosureLogRepository interface {
	Create(ctx context.Context, entry *ClosureLog) error
	ListByAccount(ctx context.Context, branchID int32, accountID int32) ([]*ClosureLog, error)
}
