package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/service"
	"github.com/dafibh/coopbank/coopbank-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closureHandlerFixture struct {
	accountRepo *testutil.MockAccountRepository
	gateway     *testutil.MockMaturityPaymentGateway
	logRepo     *testutil.MockClosureLogRepository
	handler     *ClosureHandler
}

func newClosureHandlerFixture(accounts ...*domain.Account) *closureHandlerFixture {
	f := &closureHandlerFixture{
		accountRepo: testutil.NewMockAccountRepository(),
		gateway:     testutil.NewMockMaturityPaymentGateway(),
		logRepo:     testutil.NewMockClosureLogRepository(),
	}
	for _, a := range accounts {
		f.accountRepo.AddAccount(a)
	}
	f.handler = NewClosureHandler(service.NewClosureService(f.accountRepo, f.gateway, f.logRepo))
	return f
}

func newClosureContext(method, path, id, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	setupAuthContextWithBranch(c, "auth0|teller", 1)
	return c, rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestGetPayoutPreview(t *testing.T) {
	f := newClosureHandlerFixture(newHandlerTestAccount(1, 1, "10000"))

	c, rec := newClosureContext(http.MethodGet, "/api/v1/accounts/1/payout-preview?matured=true&paymentMode=UPI", "1", "")
	require.NoError(t, f.handler.GetPayoutPreview(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var response PayoutPreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "600.00", response.Breakdown.InterestAmount)
	assert.Equal(t, "10600.00", response.Breakdown.TotalPayout)
	assert.Equal(t, "digital", response.Path)
	assert.Equal(t, "UPI", response.PaymentMode)
	assert.Equal(t, 0, f.accountRepo.MutationCount())
}

func TestGetPayoutPreview_DefaultsAndValidation(t *testing.T) {
	f := newClosureHandlerFixture(newHandlerTestAccount(1, 1, "10000"))

	c, rec := newClosureContext(http.MethodGet, "/api/v1/accounts/1/payout-preview", "1", "")
	require.NoError(t, f.handler.GetPayoutPreview(c))
	var response PayoutPreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Breakdown.IsMatured)
	assert.Equal(t, "cash", response.Path)

	c, rec = newClosureContext(http.MethodGet, "/api/v1/accounts/1/payout-preview?matured=maybe", "1", "")
	require.NoError(t, f.handler.GetPayoutPreview(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayMaturity_Cash(t *testing.T) {
	f := newClosureHandlerFixture(newHandlerTestAccount(1, 1, "10000"))

	c, rec := newClosureContext(http.MethodPost, "/api/v1/accounts/1/pay-maturity", "1", `{"paymentMode":"Cash","paymentReference":"RCPT-1"}`)
	require.NoError(t, f.handler.PayMaturity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var response ClosureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Closed", response.Status)
	assert.Equal(t, "cash", response.Path)
	assert.Equal(t, "10600.00", response.Breakdown.TotalPayout)

	require.Len(t, f.accountRepo.UpdateClosureCalls, 1)
	assert.Equal(t, "RCPT-1", f.accountRepo.UpdateClosureCalls[0].Update.PaymentReference)
	require.Len(t, f.logRepo.Logs, 1)
	assert.Equal(t, "auth0|teller", f.logRepo.Logs[0].OperatorID)
}

func TestPayMaturity_EmptyModeMeansCash(t *testing.T) {
	f := newClosureHandlerFixture(newHandlerTestAccount(1, 1, "10000"))

	c, rec := newClosureContext(http.MethodPost, "/api/v1/accounts/1/pay-maturity", "1", `{}`)
	require.NoError(t, f.handler.PayMaturity(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.accountRepo.UpdateClosureCalls, 1)
	assert.Empty(t, f.gateway.Requests)
}

func TestPreMaturityClose_PaysPrincipalOnly(t *testing.T) {
	f := newClosureHandlerFixture(newHandlerTestAccount(1, 1, "10000"))

	c, rec := newClosureContext(http.MethodPost, "/api/v1/accounts/1/pre-maturity-close", "1", `{"paymentMode":"Bank Transfer"}`)
	require.NoError(t, f.handler.PreMaturityClose(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var response ClosureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "digital", response.Path)
	assert.Equal(t, "online", response.GatewayMethod)
	assert.Equal(t, "0.00", response.Breakdown.InterestAmount)

	require.Len(t, f.gateway.Requests, 1)
	assert.Equal(t, "10000.00", f.gateway.Requests[0].Amount.StringFixed(2))
}

func TestPayMaturity_ZeroBalance(t *testing.T) {
	f := newClosureHandlerFixture(newHandlerTestAccount(1, 1, "0"))

	c, rec := newClosureContext(http.MethodPost, "/api/v1/accounts/1/pay-maturity", "1", `{"paymentMode":"Cheque"}`)
	require.NoError(t, f.handler.PayMaturity(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.accountRepo.CloseCalls, 1)
	assert.Empty(t, f.gateway.Requests)
}

func TestPayMaturity_NoAccountSelected(t *testing.T) {
	f := newClosureHandlerFixture()

	c, rec := newClosureContext(http.MethodPost, "/api/v1/accounts/0/pay-maturity", "0", `{"paymentMode":"Cash"}`)
	require.NoError(t, f.handler.PayMaturity(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.accountRepo.MutationCount())
}

func TestPayMaturity_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		body    string
		setup   func(f *closureHandlerFixture)
		status  int
		errType string
		detail  string
	}{
		{
			name:    "invalid payment mode",
			id:      "1",
			body:    `{"paymentMode":"Crypto"}`,
			status:  http.StatusBadRequest,
			errType: ErrorTypeValidation,
		},
		{
			name:    "invalid id",
			id:      "x1",
			body:    `{}`,
			status:  http.StatusBadRequest,
			errType: ErrorTypeValidation,
		},
		{
			name:    "unknown account",
			id:      "77",
			body:    `{}`,
			status:  http.StatusNotFound,
			errType: ErrorTypeNotFound,
		},
		{
			name: "cash rejected",
			id:   "1",
			body: `{"paymentMode":"Cash"}`,
			setup: func(f *closureHandlerFixture) {
				f.accountRepo.UpdateClosureFn = func(branchID, id int32, update domain.AccountClosureUpdate) (*domain.OperationResult, error) {
					return &domain.OperationResult{Success: false, Message: "Account is frozen by court order"}, nil
				}
			},
			status:  http.StatusConflict,
			errType: ErrorTypeSettlement,
			detail:  "Account is frozen by court order",
		},
		{
			name: "digital transport failure",
			id:   "1",
			body: `{"paymentMode":"UPI"}`,
			setup: func(f *closureHandlerFixture) {
				f.gateway.CreateFn = func(req domain.MaturityPaymentRequest) (*domain.OperationResult, error) {
					return nil, errors.New("i/o timeout")
				}
			},
			status:  http.StatusBadGateway,
			errType: ErrorTypeBadGateway,
			detail:  domain.MsgPayoutFailed + ". " + domain.MsgUseCashInstead,
		},
		{
			name: "repository failure while loading",
			id:   "1",
			body: `{}`,
			setup: func(f *closureHandlerFixture) {
				f.accountRepo.GetByIDFn = func(branchID, id int32) (*domain.Account, error) {
					return nil, errors.New("pool exhausted")
				}
			},
			status:  http.StatusInternalServerError,
			errType: ErrorTypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClosureHandlerFixture(newHandlerTestAccount(1, 1, "10000"))
			if tt.setup != nil {
				tt.setup(f)
			}

			c, rec := newClosureContext(http.MethodPost, "/api/v1/accounts/"+tt.id+"/pay-maturity", tt.id, tt.body)
			require.NoError(t, f.handler.PayMaturity(c))
			assert.Equal(t, tt.status, rec.Code)

			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.errType, problem.Type)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, problem.Detail)
			}
		})
	}
}

func TestGetClosures_WithVoucherLinks(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	accountRepo.AddAccount(newHandlerTestAccount(1, 1, "10000"))
	vouchers := testutil.NewMockVoucherRepository()

	svc := service.NewClosureService(accountRepo, testutil.NewMockMaturityPaymentGateway(), testutil.NewMockClosureLogRepository())
	svc.SetVoucherRepository(vouchers)
	handler := NewClosureHandler(svc)
	handler.SetVoucherRepository(vouchers)

	closeCtx, _ := newClosureContext(http.MethodPost, "/api/v1/accounts/1/pay-maturity", "1", `{"paymentMode":"Cash"}`)
	require.NoError(t, handler.PayMaturity(closeCtx))
	require.Len(t, vouchers.Vouchers, 1)

	c, rec := newClosureContext(http.MethodGet, "/api/v1/accounts/1/closures", "1", "")
	require.NoError(t, handler.GetClosures(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var response []ClosureLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.True(t, response[0].Succeeded)
	assert.Equal(t, "10600.00", response[0].TotalPayout)
	require.NotNil(t, response[0].VoucherURL)
	assert.True(t, strings.HasPrefix(*response[0].VoucherURL, "https://vouchers.test/vouchers/1/"))
}

func TestGetClosures_UnknownAccount(t *testing.T) {
	f := newClosureHandlerFixture()

	c, rec := newClosureContext(http.MethodGet, "/api/v1/accounts/3/closures", "3", "")
	require.NoError(t, f.handler.GetClosures(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
