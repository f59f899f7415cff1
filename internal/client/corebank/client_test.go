package corebank

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dafibh/coopbank/coopbank-backend/internal/config"
	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.CoreBankConfig{BaseURL: server.URL + "/", APIKey: "secret", Timeout: 2 * time.Second})
}

func writeEnvelope(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClient_GetByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/accounts/42", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("branch_id"))
		assert.Equal(t, "secret", r.Header.Get(apiKeyHeader))
		writeEnvelope(w, http.StatusOK, `{"success":true,"message":"","data":{
			"id":42,"branch_id":3,"account_no":"FD-0042","account_type":"fixed_deposit",
			"member_id":7,"member_name":"Asha","account_amount":10000,"interest_rate":"6.5",
			"duration":12,"status":"Active","date_of_open":"2025-01-01T00:00:00Z"}}`)
	})

	account, err := client.GetByID(context.Background(), 3, 42)
	require.NoError(t, err)
	assert.Equal(t, int32(42), account.ID)
	assert.Equal(t, "FD-0042", account.AccountNo)
	assert.Equal(t, domain.AccountTypeFixedDeposit, account.AccountType)
	assert.True(t, account.AccountAmount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "6.5", account.InterestRate.String())
	assert.Equal(t, domain.AccountStatusActive, account.Status)
}

func TestClient_GetByID_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, `{"success":false,"message":"no such account"}`)
	})

	_, err := client.GetByID(context.Background(), 1, 99)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestClient_List_PassesFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts", r.URL.Path)
		assert.Equal(t, "Active", r.URL.Query().Get("status"))
		assert.Equal(t, "pigmy", r.URL.Query().Get("account_type"))
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":[{"id":1,"account_no":"PG-1"},{"id":2,"account_no":"PG-2"}]}`)
	})

	accounts, err := client.List(context.Background(), 1, domain.AccountFilter{
		Status:      domain.AccountStatusActive,
		AccountType: domain.AccountTypePigmy,
	})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "PG-2", accounts[1].AccountNo)
}

func TestClient_UpdateClosure_SendsRoundedAmounts(t *testing.T) {
	var received map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/accounts/5", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		writeEnvelope(w, http.StatusOK, `{"success":true,"message":"Account updated"}`)
	})

	res, err := client.UpdateClosure(context.Background(), 1, 5, domain.AccountClosureUpdate{
		Status:        domain.AccountStatusClosed,
		DateOfClose:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		AccountAmount: decimal.Zero,
		PayoutAmount:  decimal.RequireFromString("10522.1234"),
		InterestPaid:  decimal.RequireFromString("522.1234"),
		PaymentMode:   "cash",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Account updated", res.Message)

	assert.Equal(t, "Closed", received["status"])
	assert.Equal(t, 10522.12, received["payout_amount"])
	assert.Equal(t, 522.12, received["interest_paid"])
	assert.Equal(t, float64(0), received["account_amount"])
	assert.Equal(t, "cash", received["payment_mode"])
	_, hasReference := received["payment_reference"]
	assert.False(t, hasReference)
}

func TestClient_Close(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/accounts/8/close", r.URL.Path)
		writeEnvelope(w, http.StatusOK, `{"success":true,"message":"Closed"}`)
	})

	res, err := client.Close(context.Background(), 1, 8)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestClient_Mutation_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnprocessableEntity, `{"success":false,"message":"Account has a pending lien"}`)
	})

	res, err := client.Close(context.Background(), 1, 8)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Account has a pending lien", res.Message)
}

func TestClient_Mutation_SuccessFalseOnOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, `{"success":false,"message":"Insufficient pool balance"}`)
	})

	res, err := client.CreateMaturityPayment(context.Background(), domain.MaturityPaymentRequest{AccountID: 1, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Insufficient pool balance", res.Message)
}

func TestClient_Mutation_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusServiceUnavailable, `{"success":false,"message":"Ledger is in maintenance"}`)
	})

	_, err := client.Close(context.Background(), 1, 8)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "Ledger is in maintenance", apiErr.OperatorMessage())
}

func TestClient_Mutation_NotJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := client.Close(context.Background(), 1, 8)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Empty(t, apiErr.OperatorMessage())
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(config.CoreBankConfig{BaseURL: server.URL})
	server.Close()

	_, err := client.CreateMaturityPayment(context.Background(), domain.MaturityPaymentRequest{AccountID: 1})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.NotNil(t, apiErr.Err)
	assert.Empty(t, apiErr.OperatorMessage())
}

func TestClient_CreateMaturityPayment_Payload(t *testing.T) {
	var received map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maturity-payments", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("branch_id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		writeEnvelope(w, http.StatusCreated, `{"success":true,"message":"Maturity payment queued"}`)
	})

	res, err := client.CreateMaturityPayment(context.Background(), domain.MaturityPaymentRequest{
		AccountID:     11,
		BranchID:      4,
		AccountNo:     "RD-11",
		AccountType:   domain.AccountTypeRecurringDeposit,
		MemberID:      3,
		Amount:        decimal.RequireFromString("10600.005"),
		PaymentMethod: domain.GatewayMethodCheque,
		Description:   "Maturity payout",
		ReferenceNo:   "CHQ-881",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.Equal(t, float64(11), received["account_id"])
	assert.Equal(t, 10600.01, received["amount"])
	assert.Equal(t, "cheque", received["payment_method"])
	assert.Equal(t, "CHQ-881", received["reference_no"])
	_, hasBranch := received["branch_id"]
	assert.False(t, hasBranch)
}
