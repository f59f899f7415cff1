package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/repository/storage"
	"github.com/dafibh/coopbank/coopbank-backend/internal/websocket"
)

// MsgAccountAlreadyClosed is the rejection the mock returns for a second settlement
const MsgAccountAlreadyClosed = "Account is already closed"

// UpdateClosureCall records one UpdateClosure invocation
type UpdateClosureCall struct {
	BranchID  int32
	AccountID int32
	Update    domain.AccountClosureUpdate
}

// CloseCall records one Close invocation
type CloseCall struct {
	BranchID  int32
	AccountID int32
}

// MockAccountRepository is a mock implementation of domain.AccountRepository
type MockAccountRepository struct {
	mu                 sync.Mutex
	Accounts           map[int32]*domain.Account
	UpdateClosureCalls []UpdateClosureCall
	CloseCalls         []CloseCall
	GetByIDFn          func(branchID int32, id int32) (*domain.Account, error)
	ListFn             func(branchID int32, filter domain.AccountFilter) ([]*domain.Account, error)
	UpdateClosureFn    func(branchID int32, id int32, update domain.AccountClosureUpdate) (*domain.OperationResult, error)
	CloseFn            func(branchID int32, id int32) (*domain.OperationResult, error)
}

// NewMockAccountRepository creates a new MockAccountRepository
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		Accounts: make(map[int32]*domain.Account),
	}
}

// AddAccount adds an account to the mock repository (helper for tests)
func (m *MockAccountRepository) AddAccount(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accounts[account.ID] = account
}

// GetByID retrieves an account by ID, honoring branch scoping
func (m *MockAccountRepository) GetByID(ctx context.Context, branchID int32, id int32) (*domain.Account, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(branchID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[id]
	if !ok || !inBranch(branchID, account.BranchID) {
		return nil, domain.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

// List retrieves accounts matching the filter
func (m *MockAccountRepository) List(ctx context.Context, branchID int32, filter domain.AccountFilter) ([]*domain.Account, error) {
	if m.ListFn != nil {
		return m.ListFn(branchID, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.Account{}
	for _, account := range m.Accounts {
		if !inBranch(branchID, account.BranchID) {
			continue
		}
		if filter.Status != "" && account.Status != filter.Status {
			continue
		}
		if filter.AccountType != "" && account.AccountType != filter.AccountType {
			continue
		}
		result = append(result, account)
	}
	return result, nil
}

// UpdateClosure records the call and, by default, applies the update
func (m *MockAccountRepository) UpdateClosure(ctx context.Context, branchID int32, id int32, update domain.AccountClosureUpdate) (*domain.OperationResult, error) {
	m.mu.Lock()
	m.UpdateClosureCalls = append(m.UpdateClosureCalls, UpdateClosureCall{BranchID: branchID, AccountID: id, Update: update})
	m.mu.Unlock()

	if m.UpdateClosureFn != nil {
		return m.UpdateClosureFn(branchID, id, update)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[id]
	if !ok || !inBranch(branchID, account.BranchID) {
		return nil, domain.ErrAccountNotFound
	}
	if account.IsClosed() {
		return &domain.OperationResult{Success: false, Message: MsgAccountAlreadyClosed}, nil
	}
	closedAt := update.DateOfClose
	payout := update.PayoutAmount
	interest := update.InterestPaid
	mode := update.PaymentMode
	account.Status = update.Status
	account.DateOfClose = &closedAt
	account.AccountAmount = update.AccountAmount
	account.PayoutAmount = &payout
	account.InterestPaid = &interest
	account.PaymentMode = &mode
	return &domain.OperationResult{Success: true, Message: "Account updated successfully"}, nil
}

// Close records the call and, by default, marks the account closed
func (m *MockAccountRepository) Close(ctx context.Context, branchID int32, id int32) (*domain.OperationResult, error) {
	m.mu.Lock()
	m.CloseCalls = append(m.CloseCalls, CloseCall{BranchID: branchID, AccountID: id})
	m.mu.Unlock()

	if m.CloseFn != nil {
		return m.CloseFn(branchID, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.Accounts[id]
	if !ok || !inBranch(branchID, account.BranchID) {
		return nil, domain.ErrAccountNotFound
	}
	if account.IsClosed() {
		return &domain.OperationResult{Success: false, Message: MsgAccountAlreadyClosed}, nil
	}
	now := time.Now()
	account.Status = domain.AccountStatusClosed
	account.DateOfClose = &now
	return &domain.OperationResult{Success: true, Message: "Account closed successfully"}, nil
}

// MutationCount is the number of settlement calls made against the repository
func (m *MockAccountRepository) MutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.UpdateClosureCalls) + len(m.CloseCalls)
}

// MockMaturityPaymentGateway is a mock implementation of domain.MaturityPaymentGateway
type MockMaturityPaymentGateway struct {
	mu       sync.Mutex
	Requests []domain.MaturityPaymentRequest
	CreateFn func(req domain.MaturityPaymentRequest) (*domain.OperationResult, error)
}

// NewMockMaturityPaymentGateway creates a new MockMaturityPaymentGateway
func NewMockMaturityPaymentGateway() *MockMaturityPaymentGateway {
	return &MockMaturityPaymentGateway{}
}

// CreateMaturityPayment records the request and succeeds unless CreateFn says otherwise
func (m *MockMaturityPaymentGateway) CreateMaturityPayment(ctx context.Context, req domain.MaturityPaymentRequest) (*domain.OperationResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	count := len(m.Requests)
	m.mu.Unlock()

	if m.CreateFn != nil {
		return m.CreateFn(req)
	}
	return &domain.OperationResult{Success: true, Message: fmt.Sprintf("Maturity payment #%d created", count)}, nil
}

// MockClosureLogRepository is a mock implementation of domain.ClosureLogRepository
type MockClosureLogRepository struct {
	mu       sync.Mutex
	Logs     []*domain.ClosureLog
	CreateFn func(entry *domain.ClosureLog) error
}

// NewMockClosureLogRepository creates a new MockClosureLogRepository
func NewMockClosureLogRepository() *MockClosureLogRepository {
	return &MockClosureLogRepository{}
}

// Create stores the entry
func (m *MockClosureLogRepository) Create(ctx context.Context, entry *domain.ClosureLog) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(entry); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, entry)
	return nil
}

// ListByAccount returns the entries for an account, newest first
func (m *MockClosureLogRepository) ListByAccount(ctx context.Context, branchID int32, accountID int32) ([]*domain.ClosureLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.ClosureLog{}
	for i := len(m.Logs) - 1; i >= 0; i-- {
		entry := m.Logs[i]
		if entry.AccountID == accountID && inBranch(branchID, entry.BranchID) {
			result = append(result, entry)
		}
	}
	return result, nil
}

// MockOperatorRepository is a mock implementation of domain.OperatorRepository
type MockOperatorRepository struct {
	Operators      map[string]*domain.Operator
	GetByAuth0IDFn func(auth0ID string) (*domain.Operator, error)
}

// NewMockOperatorRepository creates a new MockOperatorRepository
func NewMockOperatorRepository() *MockOperatorRepository {
	return &MockOperatorRepository{
		Operators: make(map[string]*domain.Operator),
	}
}

// AddOperator adds an operator to the mock repository (helper for tests)
func (m *MockOperatorRepository) AddOperator(op *domain.Operator) {
	m.Operators[op.Auth0ID] = op
}

// GetByAuth0ID retrieves an operator by Auth0 ID
func (m *MockOperatorRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.Operator, error) {
	if m.GetByAuth0IDFn != nil {
		return m.GetByAuth0IDFn(auth0ID)
	}
	if op, ok := m.Operators[auth0ID]; ok {
		return op, nil
	}
	return nil, domain.ErrOperatorNotFound
}

// MockVoucherRepository is a mock implementation of storage.VoucherRepository
type MockVoucherRepository struct {
	mu       sync.Mutex
	Vouchers []storage.ClosureVoucher
	StoreFn  func(voucher storage.ClosureVoucher) (string, error)
}

// NewMockVoucherRepository creates a new MockVoucherRepository
func NewMockVoucherRepository() *MockVoucherRepository {
	return &MockVoucherRepository{}
}

// Store records the voucher and returns its generated key
func (m *MockVoucherRepository) Store(ctx context.Context, voucher storage.ClosureVoucher) (string, error) {
	if m.StoreFn != nil {
		return m.StoreFn(voucher)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Vouchers = append(m.Vouchers, voucher)
	return storage.GenerateVoucherPath(voucher), nil
}

// GeneratePresignedURL returns a fake URL for the path
func (m *MockVoucherRepository) GeneratePresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return "https://vouchers.test/" + path, nil
}

// PublishedEvent captures a Publish call
type PublishedEvent struct {
	BranchID int32
	Event    websocket.Event
}

// MockEventPublisher is a mock implementation of websocket.EventPublisher
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records the event
func (m *MockEventPublisher) Publish(branchID int32, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{BranchID: branchID, Event: event})
}

func inBranch(scope int32, branchID int32) bool {
	return scope == websocket.HeadOfficeBranchID || scope == branchID
}
