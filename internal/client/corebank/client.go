package corebank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dafibh/coopbank/coopbank-backend/internal/config"
	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	apiKeyHeader   = "X-API-Key"
	defaultTimeout = 15 * time.Second
	// maxBodyBytes caps how much of a response body is read
	maxBodyBytes = 1 << 20
)

// APIError is returned when the core banking API could not be reached or
// answered with a server error
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("core banking request failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("core banking returned %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("core banking returned %d", e.StatusCode)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// OperatorMessage is the message the API sent with a failed response, if any
func (e *APIError) OperatorMessage() string {
	return e.Message
}

// envelope is the {success, message, data} wrapper of every response
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type accountPayload struct {
	ID               int32            `json:"id"`
	BranchID         int32            `json:"branch_id"`
	AccountNo        string           `json:"account_no"`
	AccountType      string           `json:"account_type"`
	MemberID         int32            `json:"member_id"`
	MemberName       string           `json:"member_name"`
	AccountAmount    decimal.Decimal  `json:"account_amount"`
	InterestRate     decimal.Decimal  `json:"interest_rate"`
	Duration         int32            `json:"duration"`
	Status           string           `json:"status"`
	DateOfOpen       time.Time        `json:"date_of_open"`
	DateOfMaturity   *time.Time       `json:"date_of_maturity"`
	DateOfClose      *time.Time       `json:"date_of_close"`
	PayoutAmount     *decimal.Decimal `json:"payout_amount"`
	InterestPaid     *decimal.Decimal `json:"interest_paid"`
	PaymentMode      *string          `json:"payment_mode"`
	PaymentReference *string          `json:"payment_reference"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type updateAccountPayload struct {
	Status           string    `json:"status"`
	DateOfClose      time.Time `json:"date_of_close"`
	AccountAmount    float64   `json:"account_amount"`
	PayoutAmount     float64   `json:"payout_amount"`
	InterestPaid     float64   `json:"interest_paid"`
	PaymentMode      string    `json:"payment_mode"`
	PaymentReference string    `json:"payment_reference,omitempty"`
}

type maturityPaymentPayload struct {
	AccountID     int32   `json:"account_id"`
	AccountNo     string  `json:"account_no"`
	AccountType   string  `json:"account_type"`
	MemberID      int32   `json:"member_id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Description   string  `json:"description"`
	ReferenceNo   string  `json:"reference_no,omitempty"`
}

// Client talks to the core banking REST API. It serves both as the account
// store and as the maturity payment gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client from configuration
func NewClient(cfg config.CoreBankConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetByID fetches one account
func (c *Client) GetByID(ctx context.Context, branchID int32, id int32) (*domain.Account, error) {
	q := url.Values{}
	q.Set("branch_id", strconv.Itoa(int(branchID)))

	env, status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/accounts/%d", id), q, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrAccountNotFound
	}
	if !env.Success {
		return nil, &APIError{StatusCode: status, Message: env.Message}
	}

	var payload accountPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, &APIError{StatusCode: status, Err: fmt.Errorf("decode account: %w", err)}
	}
	return payload.toDomain(), nil
}

// List fetches the accounts of a branch
func (c *Client) List(ctx context.Context, branchID int32, filter domain.AccountFilter) ([]*domain.Account, error) {
	q := url.Values{}
	q.Set("branch_id", strconv.Itoa(int(branchID)))
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.AccountType != "" {
		q.Set("account_type", string(filter.AccountType))
	}

	env, status, err := c.do(ctx, http.MethodGet, "/accounts", q, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &APIError{StatusCode: status, Message: env.Message}
	}

	var payloads []accountPayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payloads); err != nil {
			return nil, &APIError{StatusCode: status, Err: fmt.Errorf("decode accounts: %w", err)}
		}
	}
	accounts := make([]*domain.Account, len(payloads))
	for i := range payloads {
		accounts[i] = payloads[i].toDomain()
	}
	return accounts, nil
}

// UpdateClosure writes the cash settlement fields onto the account
func (c *Client) UpdateClosure(ctx context.Context, branchID int32, id int32, update domain.AccountClosureUpdate) (*domain.OperationResult, error) {
	body := updateAccountPayload{
		Status:           string(update.Status),
		DateOfClose:      update.DateOfClose,
		AccountAmount:    toWireAmount(update.AccountAmount),
		PayoutAmount:     toWireAmount(update.PayoutAmount),
		InterestPaid:     toWireAmount(update.InterestPaid),
		PaymentMode:      update.PaymentMode,
		PaymentReference: update.PaymentReference,
	}
	return c.mutate(ctx, http.MethodPut, fmt.Sprintf("/accounts/%d", id), branchID, body)
}

// Close closes a zero-balance account
func (c *Client) Close(ctx context.Context, branchID int32, id int32) (*domain.OperationResult, error) {
	return c.mutate(ctx, http.MethodPost, fmt.Sprintf("/accounts/%d/close", id), branchID, nil)
}

// CreateMaturityPayment asks the core banking system to disburse a payout
func (c *Client) CreateMaturityPayment(ctx context.Context, req domain.MaturityPaymentRequest) (*domain.OperationResult, error) {
	body := maturityPaymentPayload{
		AccountID:     req.AccountID,
		AccountNo:     req.AccountNo,
		AccountType:   string(req.AccountType),
		MemberID:      req.MemberID,
		Amount:        toWireAmount(req.Amount),
		PaymentMethod: string(req.PaymentMethod),
		Description:   req.Description,
		ReferenceNo:   req.ReferenceNo,
	}
	return c.mutate(ctx, http.MethodPost, "/maturity-payments", req.BranchID, body)
}

// mutate sends a settlement call. A 4xx answer carrying an envelope is a
// rejection and comes back as an unsuccessful result; server errors are errors.
func (c *Client) mutate(ctx context.Context, method, path string, branchID int32, body interface{}) (*domain.OperationResult, error) {
	q := url.Values{}
	q.Set("branch_id", strconv.Itoa(int(branchID)))

	env, status, err := c.do(ctx, method, path, q, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrAccountNotFound
	}
	if status >= http.StatusInternalServerError {
		return nil, &APIError{StatusCode: status, Message: env.Message}
	}
	return &domain.OperationResult{Success: env.Success && status < http.StatusBadRequest, Message: env.Message}, nil
}

// do performs one request and decodes the envelope. Transport failures and
// undecodable bodies come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*envelope, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Str("path", path).Msg("Core banking request failed")
		return nil, 0, &APIError{Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Core banking request")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Err: err}
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode == http.StatusNotFound {
				return &env, resp.StatusCode, nil
			}
			return nil, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Err: errors.New("response is not a JSON envelope")}
		}
	}
	return &env, resp.StatusCode, nil
}

func (p accountPayload) toDomain() *domain.Account {
	return &domain.Account{
		ID:               p.ID,
		BranchID:         p.BranchID,
		AccountNo:        p.AccountNo,
		AccountType:      domain.AccountType(p.AccountType),
		MemberID:         p.MemberID,
		MemberName:       p.MemberName,
		AccountAmount:    p.AccountAmount,
		InterestRate:     p.InterestRate,
		Duration:         p.Duration,
		Status:           domain.AccountStatus(p.Status),
		DateOfOpen:       p.DateOfOpen,
		DateOfMaturity:   p.DateOfMaturity,
		DateOfClose:      p.DateOfClose,
		PayoutAmount:     p.PayoutAmount,
		InterestPaid:     p.InterestPaid,
		PaymentMode:      p.PaymentMode,
		PaymentReference: p.PaymentReference,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// toWireAmount rounds to cents; the API takes plain JSON numbers
func toWireAmount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
