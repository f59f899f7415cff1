package domain

import "errors"

// Domain errors
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrAccountNotFound      = errors.New("account not found")
	ErrOperatorNotFound     = errors.New("operator not found")
	ErrInvalidAccountType   = errors.New("invalid account type")
	ErrInvalidAccountStatus = errors.New("invalid account status")
	ErrInvalidPaymentMode   = errors.New("invalid payment mode")
	ErrNegativePrincipal    = errors.New("principal cannot be negative")
	ErrNegativeRate         = errors.New("interest rate cannot be negative")
	ErrInvalidDuration      = errors.New("duration cannot be negative")
	ErrSettlementFailed     = errors.New("settlement failed")
)

// Operator-facing settlement messages
const (
	MsgClosureFailed  = "Failed to close account"
	MsgPayoutFailed   = "Failed to process maturity payment"
	MsgUseCashInstead = "Please use Cash payment mode instead."
)

// SettlementError reports a settlement call that did not succeed. Rejected is set when
// the backend answered with success=false; otherwise the call itself failed.
type SettlementError struct {
	Path     SettlementPath
	Rejected bool
	Message  string
	Err      error
}

func (e *SettlementError) Error() string {
	if e.Err != nil {
		return string(e.Path) + " settlement: " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Path) + " settlement: " + e.Message
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

// Is lets callers match any settlement failure with errors.Is(err, ErrSettlementFailed)
func (e *SettlementError) Is(target error) bool {
	return target == ErrSettlementFailed
}
