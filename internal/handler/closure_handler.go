package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/middleware"
	"github.com/dafibh/coopbank/coopbank-backend/internal/repository/storage"
	"github.com/dafibh/coopbank/coopbank-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// voucherURLExpiry is how long a presigned voucher link stays valid
const voucherURLExpiry = 15 * time.Minute

// ClosureHandler handles payout previews and account closures
type ClosureHandler struct {
	closureService *service.ClosureService
	voucherRepo    storage.VoucherRepository
}

// NewClosureHandler creates a new ClosureHandler
func NewClosureHandler(closureService *service.ClosureService) *ClosureHandler {
	return &ClosureHandler{closureService: closureService}
}

// SetVoucherRepository enables presigned voucher links in closure history
func (h *ClosureHandler) SetVoucherRepository(repo storage.VoucherRepository) {
	h.voucherRepo = repo
}

// CloseAccountRequest represents the closure request body
type CloseAccountRequest struct {
	PaymentMode      string `json:"paymentMode"`
	PaymentReference string `json:"paymentReference,omitempty"`
}

// PayoutBreakdownResponse represents calculator output in API responses
type PayoutBreakdownResponse struct {
	Principal      string `json:"principal"`
	InterestRate   string `json:"interestRate"`
	DurationMonths int32  `json:"durationMonths"`
	IsMatured      bool   `json:"isMatured"`
	InterestAmount string `json:"interestAmount"`
	TotalPayout    string `json:"totalPayout"`
}

// PayoutPreviewResponse represents a payout preview
type PayoutPreviewResponse struct {
	AccountID   int32                   `json:"accountId"`
	AccountNo   string                  `json:"accountNo"`
	Status      string                  `json:"status"`
	PaymentMode string                  `json:"paymentMode"`
	Path        string                  `json:"path"`
	Breakdown   PayoutBreakdownResponse `json:"breakdown"`
}

// ClosureResponse represents a completed closure
type ClosureResponse struct {
	AccountID     int32                   `json:"accountId"`
	AccountNo     string                  `json:"accountNo"`
	Status        string                  `json:"status"`
	Path          string                  `json:"path"`
	PaymentMode   string                  `json:"paymentMode,omitempty"`
	GatewayMethod string                  `json:"gatewayMethod,omitempty"`
	Message       string                  `json:"message"`
	VoucherKey    string                  `json:"voucherKey,omitempty"`
	ClosedAt      string                  `json:"closedAt"`
	Breakdown     PayoutBreakdownResponse `json:"breakdown"`
}

// ClosureLogResponse represents one recorded closure attempt
type ClosureLogResponse struct {
	ID               string  `json:"id"`
	OperatorID       string  `json:"operatorId"`
	Path             string  `json:"path"`
	PaymentMode      string  `json:"paymentMode,omitempty"`
	PaymentReference string  `json:"paymentReference,omitempty"`
	IsMatured        bool    `json:"isMatured"`
	Principal        string  `json:"principal"`
	InterestAmount   string  `json:"interestAmount"`
	TotalPayout      string  `json:"totalPayout"`
	Succeeded        bool    `json:"succeeded"`
	Message          string  `json:"message"`
	VoucherURL       *string `json:"voucherUrl,omitempty"`
	CreatedAt        string  `json:"createdAt"`
}

// GetPayoutPreview godoc
// @Summary Preview a payout
// @Description Run the payout calculator for an account without closing it
// @Tags closures
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param matured query bool false "Whether the account has matured (default true)"
// @Param paymentMode query string false "Payment mode used to pick the settlement path (default Cash)"
// @Success 200 {object} PayoutPreviewResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /accounts/{id}/payout-preview [get]
func (h *ClosureHandler) GetPayoutPreview(c echo.Context) error {
	branchID := middleware.GetBranchID(c)

	id, err := parseAccountID(c)
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	isMatured := true
	if raw := c.QueryParam("matured"); raw != "" {
		isMatured, err = strconv.ParseBool(raw)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "matured", Message: "Must be true or false"},
			})
		}
	}

	mode, err := domain.ParsePaymentMode(c.QueryParam("paymentMode"))
	if err != nil {
		return h.handleServiceError(c, err, branchID, id)
	}

	preview, err := h.closureService.Preview(c.Request().Context(), branchID, id, isMatured)
	if err != nil {
		return h.handleServiceError(c, err, branchID, id)
	}

	path, err := domain.SelectSettlementPath(preview.Breakdown.Principal, mode)
	if err != nil {
		return h.handleServiceError(c, err, branchID, id)
	}

	return c.JSON(http.StatusOK, PayoutPreviewResponse{
		AccountID:   preview.AccountID,
		AccountNo:   preview.AccountNo,
		Status:      string(preview.Status),
		PaymentMode: string(mode),
		Path:        string(path),
		Breakdown:   toBreakdownResponse(preview.Breakdown),
	})
}

// PayMaturity godoc
// @Summary Pay out a matured account
// @Description Close an account at maturity, paying principal plus interest
// @Tags closures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body CloseAccountRequest true "Payment details"
// @Success 200 {object} ClosureResponse
// @Success 204 "No account selected"
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 502 {object} ProblemDetails
// @Router /accounts/{id}/pay-maturity [post]
func (h *ClosureHandler) PayMaturity(c echo.Context) error {
	return h.close(c, true)
}

// PreMaturityClose godoc
// @Summary Close an account before maturity
// @Description Close an account early, paying the principal only
// @Tags closures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body CloseAccountRequest true "Payment details"
// @Success 200 {object} ClosureResponse
// @Success 204 "No account selected"
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 502 {object} ProblemDetails
// @Router /accounts/{id}/pre-maturity-close [post]
func (h *ClosureHandler) PreMaturityClose(c echo.Context) error {
	return h.close(c, false)
}

func (h *ClosureHandler) close(c echo.Context, isMatured bool) error {
	branchID := middleware.GetBranchID(c)

	id, err := parseAccountID(c)
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	var req CloseAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	mode, err := domain.ParsePaymentMode(req.PaymentMode)
	if err != nil {
		return h.handleServiceError(c, err, branchID, id)
	}

	result, err := h.closureService.Close(c.Request().Context(), domain.ClosureRequest{
		BranchID:         branchID,
		AccountID:        id,
		OperatorID:       middleware.GetOperatorID(c),
		IsMatured:        isMatured,
		PaymentMode:      mode,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		return h.handleServiceError(c, err, branchID, id)
	}
	if result == nil {
		return c.NoContent(http.StatusNoContent)
	}

	return c.JSON(http.StatusOK, toClosureResponse(result))
}

// GetClosures godoc
// @Summary List closure attempts
// @Description List recorded closure attempts for an account, newest first
// @Tags closures
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {array} ClosureLogResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /accounts/{id}/closures [get]
func (h *ClosureHandler) GetClosures(c echo.Context) error {
	branchID := middleware.GetBranchID(c)

	id, err := parseAccountID(c)
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	logs, err := h.closureService.History(c.Request().Context(), branchID, id)
	if err != nil {
		return h.handleServiceError(c, err, branchID, id)
	}

	response := make([]ClosureLogResponse, len(logs))
	for i, entry := range logs {
		response[i] = h.toClosureLogResponse(c.Request().Context(), entry)
	}
	return c.JSON(http.StatusOK, response)
}

// handleServiceError maps closure errors to problem details
func (h *ClosureHandler) handleServiceError(c echo.Context, err error, branchID, accountID int32) error {
	var failure *domain.SettlementError
	if errors.As(err, &failure) {
		switch {
		case failure.Rejected:
			return NewSettlementRejectedError(c, failure.Message)
		case errors.Is(err, domain.ErrAccountNotFound):
			return NewNotFoundError(c, failure.Message)
		default:
			return NewBadGatewayError(c, failure.Message)
		}
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return NewNotFoundError(c, "Account not found")
	case errors.Is(err, domain.ErrInvalidPaymentMode):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "paymentMode", Message: "Payment mode must be one of: Cash, Bank Transfer, UPI, Cheque"},
		})
	case errors.Is(err, domain.ErrNegativePrincipal),
		errors.Is(err, domain.ErrNegativeRate),
		errors.Is(err, domain.ErrInvalidDuration):
		return NewValidationError(c, "Account data cannot be settled: "+err.Error(), nil)
	}

	log.Error().Err(err).Int32("branch_id", branchID).Int32("account_id", accountID).Msg("Closure request failed")
	return NewInternalError(c, "Failed to process closure")
}

func (h *ClosureHandler) toClosureLogResponse(ctx context.Context, entry *domain.ClosureLog) ClosureLogResponse {
	resp := ClosureLogResponse{
		ID:               entry.ID.String(),
		OperatorID:       entry.OperatorID,
		Path:             string(entry.Path),
		PaymentMode:      string(entry.PaymentMode),
		PaymentReference: entry.PaymentReference,
		IsMatured:        entry.IsMatured,
		Principal:        entry.Principal.StringFixed(2),
		InterestAmount:   entry.InterestAmount.StringFixed(2),
		TotalPayout:      entry.TotalPayout.StringFixed(2),
		Succeeded:        entry.Succeeded,
		Message:          entry.Message,
		CreatedAt:        entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.VoucherKey != nil && h.voucherRepo != nil {
		url, err := h.voucherRepo.GeneratePresignedURL(ctx, *entry.VoucherKey, voucherURLExpiry)
		if err != nil {
			log.Warn().Err(err).Str("voucher_key", *entry.VoucherKey).Msg("Failed to presign voucher URL")
		} else {
			resp.VoucherURL = &url
		}
	}
	return resp
}

func toBreakdownResponse(b domain.PayoutBreakdown) PayoutBreakdownResponse {
	return PayoutBreakdownResponse{
		Principal:      b.Principal.StringFixed(2),
		InterestRate:   b.Rate.String(),
		DurationMonths: b.DurationMonths,
		IsMatured:      b.IsMatured,
		InterestAmount: b.InterestAmount.StringFixed(2),
		TotalPayout:    b.TotalPayout.StringFixed(2),
	}
}

func toClosureResponse(r *domain.ClosureResult) ClosureResponse {
	return ClosureResponse{
		AccountID:     r.AccountID,
		AccountNo:     r.AccountNo,
		Status:        string(r.Status),
		Path:          string(r.Path),
		PaymentMode:   string(r.PaymentMode),
		GatewayMethod: string(r.GatewayMethod),
		Message:       r.Message,
		VoucherKey:    r.VoucherKey,
		ClosedAt:      r.ClosedAt.Format(time.RFC3339),
		Breakdown:     toBreakdownResponse(r.Breakdown),
	}
}
