package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMode string
type GatewayMethod string
type SettlementPath string

const (
	PaymentModeCash         PaymentMode = "Cash"
	PaymentModeBankTransfer PaymentMode = "Bank Transfer"
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeCheque       PaymentMode = "Cheque"
)

const (
	GatewayMethodOnline GatewayMethod = "online"
	GatewayMethodCheque GatewayMethod = "cheque"
)

const (
	SettlementPathZeroBalance SettlementPath = "zero_balance"
	SettlementPathCash        SettlementPath = "cash"
	SettlementPathDigital     SettlementPath = "digital"
)

// cashModeValue is the payment_mode stored on accounts settled in cash
const cashModeValue = "cash"

var (
	// rate is a percentage and duration is in months: interest = P * r * (m / 12) / 100
	interestDivisor  = decimal.NewFromInt(1200)
	paymentModeNames = map[string]PaymentMode{
		"cash":          PaymentModeCash,
		"bank transfer": PaymentModeBankTransfer,
		"bank_transfer": PaymentModeBankTransfer,
		"banktransfer":  PaymentModeBankTransfer,
		"upi":           PaymentModeUPI,
		"cheque":        PaymentModeCheque,
	}
)

// ParsePaymentMode normalizes operator input. An empty mode means Cash.
func ParsePaymentMode(raw string) (PaymentMode, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return PaymentModeCash, nil
	}
	mode, ok := paymentModeNames[key]
	if !ok {
		return "", ErrInvalidPaymentMode
	}
	return mode, nil
}

// IsDigital reports whether the mode settles through the maturity payment gateway
func (m PaymentMode) IsDigital() bool {
	switch m {
	case PaymentModeBankTransfer, PaymentModeUPI, PaymentModeCheque:
		return true
	}
	return false
}

// GatewayMethod maps a digital mode to the method the payment gateway understands.
// Cash has no gateway method.
func (m PaymentMode) GatewayMethod() (GatewayMethod, bool) {
	switch m {
	case PaymentModeBankTransfer, PaymentModeUPI:
		return GatewayMethodOnline, true
	case PaymentModeCheque:
		return GatewayMethodCheque, true
	}
	return "", false
}

// PayoutInput is the request-scoped input of the payout calculator
type PayoutInput struct {
	Principal      decimal.Decimal
	Rate           decimal.Decimal
	DurationMonths int32
	IsMatured      bool
}

// PayoutBreakdown is the calculator output
type PayoutBreakdown struct {
	Principal      decimal.Decimal `json:"principal"`
	Rate           decimal.Decimal `json:"rate"`
	DurationMonths int32           `json:"durationMonths"`
	IsMatured      bool            `json:"isMatured"`
	InterestAmount decimal.Decimal `json:"interestAmount"`
	TotalPayout    decimal.Decimal `json:"totalPayout"`
}

// NewPayoutInput builds calculator input from an account, applying field defaults
func NewPayoutInput(account *Account, isMatured bool) PayoutInput {
	return PayoutInput{
		Principal:      account.AccountAmount,
		Rate:           account.InterestRate,
		DurationMonths: account.Duration,
		IsMatured:      isMatured,
	}
}

// Validate rejects negative principal, rate or duration
func (in PayoutInput) Validate() error {
	if in.Principal.IsNegative() {
		return ErrNegativePrincipal
	}
	if in.Rate.IsNegative() {
		return ErrNegativeRate
	}
	if in.DurationMonths < 0 {
		return ErrInvalidDuration
	}
	return nil
}

// CalculatePayout computes simple interest earned at maturity and the total payout.
// Interest is only computed for matured accounts with a positive principal; early
// closures forfeit it whatever rate is stored.
func CalculatePayout(in PayoutInput) PayoutBreakdown {
	months := in.DurationMonths
	if months <= 0 {
		months = DefaultDurationMonths
	}

	interest := decimal.Zero
	if in.IsMatured && in.Principal.IsPositive() {
		interest = in.Principal.Mul(in.Rate).Mul(decimal.NewFromInt32(months)).Div(interestDivisor)
	}

	return PayoutBreakdown{
		Principal:      in.Principal,
		Rate:           in.Rate,
		DurationMonths: months,
		IsMatured:      in.IsMatured,
		InterestAmount: interest,
		TotalPayout:    in.Principal.Add(interest),
	}
}

// SelectSettlementPath picks the settlement mechanism. A zero balance always closes
// directly, regardless of the requested mode.
func SelectSettlementPath(principal decimal.Decimal, mode PaymentMode) (SettlementPath, error) {
	if principal.IsZero() {
		return SettlementPathZeroBalance, nil
	}
	if mode == PaymentModeCash {
		return SettlementPathCash, nil
	}
	if mode.IsDigital() {
		return SettlementPathDigital, nil
	}
	return "", ErrInvalidPaymentMode
}

// CashClosureUpdate builds the "update account" payload for a cash settlement
func CashClosureUpdate(b PayoutBreakdown, reference string, closedAt time.Time) AccountClosureUpdate {
	return AccountClosureUpdate{
		Status:           AccountStatusClosed,
		DateOfClose:      closedAt,
		AccountAmount:    decimal.Zero,
		PayoutAmount:     b.TotalPayout,
		InterestPaid:     b.InterestAmount,
		PaymentMode:      cashModeValue,
		PaymentReference: reference,
	}
}
