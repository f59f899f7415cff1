package storage

import (
	"context"
	"fmt"
	"path"
	"time"
)

// VoucherContentType is the MIME type of archived closure vouchers
const VoucherContentType = "application/json"

// ClosureVoucher is the settlement record archived for every successful closure
type ClosureVoucher struct {
	VoucherID        string    `json:"voucherId"`
	BranchID         int32     `json:"branchId"`
	AccountID        int32     `json:"accountId"`
	AccountNo        string    `json:"accountNo"`
	AccountType      string    `json:"accountType"`
	MemberID         int32     `json:"memberId"`
	MemberName       string    `json:"memberName"`
	Path             string    `json:"path"`
	PaymentMode      string    `json:"paymentMode,omitempty"`
	GatewayMethod    string    `json:"gatewayMethod,omitempty"`
	PaymentReference string    `json:"paymentReference,omitempty"`
	IsMatured        bool      `json:"isMatured"`
	Principal        string    `json:"principal"`
	InterestRate     string    `json:"interestRate"`
	DurationMonths   int32     `json:"durationMonths"`
	InterestAmount   string    `json:"interestAmount"`
	TotalPayout      string    `json:"totalPayout"`
	OperatorID       string    `json:"operatorId"`
	ClosedAt         time.Time `json:"closedAt"`
}

// VoucherRepository defines the interface for voucher archive operations
type VoucherRepository interface {
	// Store archives the voucher and returns its object path
	Store(ctx context.Context, voucher ClosureVoucher) (string, error)
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// GenerateVoucherPath builds the object path for a voucher:
// vouchers/<branch>/<account no>/<yyyy-mm-dd>_<voucher id>.json
func GenerateVoucherPath(voucher ClosureVoucher) string {
	filename := fmt.Sprintf("%s_%s.json", voucher.ClosedAt.UTC().Format("2006-01-02"), voucher.VoucherID)
	return path.Join("vouchers", fmt.Sprintf("%d", voucher.BranchID), voucher.AccountNo, filename)
}
