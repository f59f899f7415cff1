package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// MaturityPaymentRequest is the payload of the "create maturity payment" operation
type MaturityPaymentRequest struct {
	AccountID     int32           `json:"account_id"`
	BranchID      int32           `json:"-"`
	AccountNo     string          `json:"account_no"`
	AccountType   AccountType     `json:"account_type"`
	MemberID      int32           `json:"member_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod GatewayMethod   `json:"payment_method"`
	Description   string          `json:"description"`
	ReferenceNo   string          `json:"reference_no,omitempty"`
}

// MaturityPaymentGateway disburses a payout through a digital channel
type MaturityPaymentGateway interface {
	CreateMaturityPayment(ctx context.Context, req MaturityPaymentRequest) (*OperationResult, error)
}
