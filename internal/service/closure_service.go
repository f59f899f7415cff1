package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/repository/storage"
	"github.com/dafibh/coopbank/coopbank-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	msgZeroBalanceClosed = "Account closed successfully"
	msgCashSettled       = "Account closed and payout settled in cash"
	msgDigitalSettled    = "Maturity payment created successfully"
)

// operatorMessenger is implemented by errors that carry a message fit for operators
type operatorMessenger interface {
	OperatorMessage() string
}

// ClosureService computes maturity payouts and settles account closures
type ClosureService struct {
	accountRepo    domain.AccountRepository
	paymentGateway domain.MaturityPaymentGateway
	closureLogRepo domain.ClosureLogRepository
	voucherRepo    storage.VoucherRepository
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewClosureService creates a new ClosureService
func NewClosureService(accountRepo domain.AccountRepository, paymentGateway domain.MaturityPaymentGateway, closureLogRepo domain.ClosureLogRepository) *ClosureService {
	return &ClosureService{
		accountRepo:    accountRepo,
		paymentGateway: paymentGateway,
		closureLogRepo: closureLogRepo,
		now:            time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ClosureService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetVoucherRepository enables archiving a voucher for every successful closure
func (s *ClosureService) SetVoucherRepository(repo storage.VoucherRepository) {
	s.voucherRepo = repo
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *ClosureService) publishEvent(branchID int32, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(branchID, event)
	}
}

// Preview runs the payout calculator for an account without touching it
func (s *ClosureService) Preview(ctx context.Context, branchID int32, accountID int32, isMatured bool) (*domain.PayoutPreview, error) {
	account, err := s.accountRepo.GetByID(ctx, branchID, accountID)
	if err != nil {
		return nil, err
	}

	input := domain.NewPayoutInput(account, isMatured)
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return &domain.PayoutPreview{
		AccountID: account.ID,
		AccountNo: account.AccountNo,
		Status:    account.Status,
		Breakdown: domain.CalculatePayout(input),
	}, nil
}

// Close computes the payout and fires exactly one settlement call:
//  1. zero balance: close the account directly
//  2. cash: update the account as closed with payout fields
//  3. digital: create a maturity payment through the gateway
//
// A failed call leaves the account as it was. Nothing is retried and no other
// path is attempted. Repeated calls for the same account are not detected here.
func (s *ClosureService) Close(ctx context.Context, req domain.ClosureRequest) (*domain.ClosureResult, error) {
	if req.AccountID == 0 {
		log.Debug().Int32("branch_id", req.BranchID).Msg("Closure requested without account ID, ignoring")
		return nil, nil
	}

	account, err := s.accountRepo.GetByID(ctx, req.BranchID, req.AccountID)
	if err != nil {
		return nil, err
	}

	input := domain.NewPayoutInput(account, req.IsMatured)
	if err := input.Validate(); err != nil {
		return nil, err
	}
	breakdown := domain.CalculatePayout(input)

	path, err := domain.SelectSettlementPath(breakdown.Principal, req.PaymentMode)
	if err != nil {
		return nil, err
	}

	result := &domain.ClosureResult{
		AccountID: account.ID,
		AccountNo: account.AccountNo,
		Path:      path,
		Status:    account.Status,
		Breakdown: breakdown,
	}

	var settleErr error
	switch path {
	case domain.SettlementPathZeroBalance:
		settleErr = s.closeZeroBalance(ctx, account, result)
	case domain.SettlementPathCash:
		settleErr = s.settleCash(ctx, account, req, result)
	case domain.SettlementPathDigital:
		settleErr = s.settleDigital(ctx, account, req, result)
	}

	if settleErr != nil {
		log.Warn().
			Err(settleErr).
			Int32("branch_id", req.BranchID).
			Int32("account_id", account.ID).
			Str("path", string(path)).
			Msg("Account closure failed")
		s.recordAttempt(ctx, req, result, settleErr)
		s.publishEvent(account.BranchID, websocket.AccountClosureFailed(failurePayload(result, settleErr)))
		return nil, settleErr
	}

	result.Status = domain.AccountStatusClosed
	result.ClosedAt = s.now()
	s.archiveVoucher(ctx, account, req, result)
	s.recordAttempt(ctx, req, result, nil)

	log.Info().
		Int32("branch_id", req.BranchID).
		Int32("account_id", account.ID).
		Str("path", string(path)).
		Str("total_payout", breakdown.TotalPayout.StringFixed(2)).
		Msg("Account closed")

	s.publishEvent(account.BranchID, websocket.AccountClosed(result))

	return result, nil
}

// History lists closure attempts recorded for an account, newest first
func (s *ClosureService) History(ctx context.Context, branchID int32, accountID int32) ([]*domain.ClosureLog, error) {
	if _, err := s.accountRepo.GetByID(ctx, branchID, accountID); err != nil {
		return nil, err
	}
	if s.closureLogRepo == nil {
		return []*domain.ClosureLog{}, nil
	}
	return s.closureLogRepo.ListByAccount(ctx, branchID, accountID)
}

func (s *ClosureService) closeZeroBalance(ctx context.Context, account *domain.Account, result *domain.ClosureResult) error {
	res, err := s.accountRepo.Close(ctx, account.BranchID, account.ID)
	if failure := settlementFailure(domain.SettlementPathZeroBalance, res, err, domain.MsgClosureFailed); failure != nil {
		return failure
	}
	result.Message = messageOr(res.Message, msgZeroBalanceClosed)
	return nil
}

func (s *ClosureService) settleCash(ctx context.Context, account *domain.Account, req domain.ClosureRequest, result *domain.ClosureResult) error {
	update := domain.CashClosureUpdate(result.Breakdown, req.PaymentReference, s.now())
	res, err := s.accountRepo.UpdateClosure(ctx, account.BranchID, account.ID, update)
	if failure := settlementFailure(domain.SettlementPathCash, res, err, domain.MsgClosureFailed); failure != nil {
		return failure
	}
	result.PaymentMode = domain.PaymentModeCash
	result.Message = messageOr(res.Message, msgCashSettled)
	return nil
}

func (s *ClosureService) settleDigital(ctx context.Context, account *domain.Account, req domain.ClosureRequest, result *domain.ClosureResult) error {
	method, _ := req.PaymentMode.GatewayMethod()
	result.PaymentMode = req.PaymentMode
	result.GatewayMethod = method

	res, err := s.paymentGateway.CreateMaturityPayment(ctx, domain.MaturityPaymentRequest{
		AccountID:     account.ID,
		BranchID:      account.BranchID,
		AccountNo:     account.AccountNo,
		AccountType:   account.AccountType,
		MemberID:      account.MemberID,
		Amount:        result.Breakdown.TotalPayout,
		PaymentMethod: method,
		Description:   payoutDescription(account, req.IsMatured),
		ReferenceNo:   req.PaymentReference,
	})
	if failure := settlementFailure(domain.SettlementPathDigital, res, err, domain.MsgPayoutFailed); failure != nil {
		failure.Message = failure.Message + ". " + domain.MsgUseCashInstead
		return failure
	}
	result.Message = messageOr(res.Message, msgDigitalSettled)
	return nil
}

// settlementFailure classifies a settlement call outcome, returning nil on success
func settlementFailure(path domain.SettlementPath, res *domain.OperationResult, err error, fallback string) *domain.SettlementError {
	if err != nil {
		message := fallback
		var messenger operatorMessenger
		if errors.As(err, &messenger) && messenger.OperatorMessage() != "" {
			message = messenger.OperatorMessage()
		} else if errors.Is(err, domain.ErrAccountNotFound) {
			message = "Account not found"
		}
		return &domain.SettlementError{Path: path, Message: message, Err: err}
	}
	if res == nil {
		return &domain.SettlementError{Path: path, Message: fallback}
	}
	if !res.Success {
		return &domain.SettlementError{Path: path, Rejected: true, Message: messageOr(res.Message, fallback)}
	}
	return nil
}

func (s *ClosureService) recordAttempt(ctx context.Context, req domain.ClosureRequest, result *domain.ClosureResult, settleErr error) {
	if s.closureLogRepo == nil {
		return
	}

	entry := &domain.ClosureLog{
		ID:               uuid.New(),
		BranchID:         req.BranchID,
		AccountID:        result.AccountID,
		OperatorID:       req.OperatorID,
		Path:             result.Path,
		PaymentMode:      req.PaymentMode,
		PaymentReference: req.PaymentReference,
		IsMatured:        req.IsMatured,
		Principal:        result.Breakdown.Principal,
		InterestAmount:   result.Breakdown.InterestAmount,
		TotalPayout:      result.Breakdown.TotalPayout,
		Succeeded:        settleErr == nil,
		Message:          result.Message,
		CreatedAt:        s.now(),
	}
	if result.Path == domain.SettlementPathZeroBalance {
		entry.PaymentMode = ""
	}
	if result.VoucherKey != "" {
		entry.VoucherKey = &result.VoucherKey
	}
	var failure *domain.SettlementError
	if errors.As(settleErr, &failure) {
		entry.Message = failure.Message
	}

	if err := s.closureLogRepo.Create(ctx, entry); err != nil {
		log.Error().Err(err).Int32("account_id", result.AccountID).Msg("Failed to record closure attempt")
	}
}

func (s *ClosureService) archiveVoucher(ctx context.Context, account *domain.Account, req domain.ClosureRequest, result *domain.ClosureResult) {
	if s.voucherRepo == nil {
		return
	}

	voucher := storage.ClosureVoucher{
		VoucherID:        uuid.New().String(),
		BranchID:         account.BranchID,
		AccountID:        account.ID,
		AccountNo:        account.AccountNo,
		AccountType:      string(account.AccountType),
		MemberID:         account.MemberID,
		MemberName:       account.MemberName,
		Path:             string(result.Path),
		PaymentMode:      string(result.PaymentMode),
		GatewayMethod:    string(result.GatewayMethod),
		PaymentReference: req.PaymentReference,
		IsMatured:        req.IsMatured,
		Principal:        result.Breakdown.Principal.StringFixed(2),
		InterestRate:     result.Breakdown.Rate.String(),
		DurationMonths:   result.Breakdown.DurationMonths,
		InterestAmount:   result.Breakdown.InterestAmount.StringFixed(2),
		TotalPayout:      result.Breakdown.TotalPayout.StringFixed(2),
		OperatorID:       req.OperatorID,
		ClosedAt:         result.ClosedAt,
	}

	key, err := s.voucherRepo.Store(ctx, voucher)
	if err != nil {
		log.Error().Err(err).Int32("account_id", account.ID).Msg("Failed to archive closure voucher")
		return
	}
	result.VoucherKey = key
}

func payoutDescription(account *domain.Account, isMatured bool) string {
	if isMatured {
		return fmt.Sprintf("Maturity payout for %s account %s", account.AccountType, account.AccountNo)
	}
	return fmt.Sprintf("Pre-maturity closure payout for %s account %s", account.AccountType, account.AccountNo)
}

func failurePayload(result *domain.ClosureResult, err error) map[string]interface{} {
	payload := map[string]interface{}{
		"accountId": result.AccountID,
		"accountNo": result.AccountNo,
		"path":      result.Path,
	}
	var failure *domain.SettlementError
	if errors.As(err, &failure) {
		payload["message"] = failure.Message
		payload["rejected"] = failure.Rejected
	}
	return payload
}

func messageOr(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
