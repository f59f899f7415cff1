package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/middleware"
	"github.com/dafibh/coopbank/coopbank-backend/internal/service"
	"github.com/dafibh/coopbank/coopbank-backend/internal/testutil"
	"github.com/labstack/echo/v4"
)

// Helper to set up auth context without an operator record
func setupAuthContext(c echo.Context, auth0ID string) {
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Subject: auth0ID,
		},
	}
	ctx := context.WithValue(c.Request().Context(), middleware.ClaimsKey, claims)
	ctx = context.WithValue(ctx, middleware.Auth0IDKey, auth0ID)
	c.SetRequest(c.Request().WithContext(ctx))
}

// Helper to set up auth context with an operator acting for a branch
func setupAuthContextWithBranch(c echo.Context, auth0ID string, branchID int32) {
	setupAuthContext(c, auth0ID)
	operator := &domain.Operator{
		ID:       1,
		Auth0ID:  auth0ID,
		BranchID: branchID,
		Name:     "Test Operator",
		Role:     domain.OperatorRoleAgent,
	}
	ctx := context.WithValue(c.Request().Context(), middleware.OperatorKey, operator)
	c.SetRequest(c.Request().WithContext(ctx))
}

func TestMe_FromContext(t *testing.T) {
	e := echo.New()
	handler := NewAuthHandler(service.NewAuthService(testutil.NewMockOperatorRepository()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContextWithBranch(c, "auth0|teller", 3)

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response OperatorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.BranchID != 3 || response.HeadOffice {
		t.Errorf("Expected branch 3 operator, got %+v", response)
	}
}

func TestMe_LooksUpOperator(t *testing.T) {
	e := echo.New()
	operatorRepo := testutil.NewMockOperatorRepository()
	operatorRepo.AddOperator(&domain.Operator{ID: 9, Auth0ID: "auth0|manager", BranchID: 0, Name: "HO Manager", Role: domain.OperatorRoleAdmin})
	handler := NewAuthHandler(service.NewAuthService(operatorRepo))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|manager")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var response OperatorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !response.HeadOffice || response.Role != "admin" {
		t.Errorf("Expected head office admin, got %+v", response)
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	e := echo.New()
	handler := NewAuthHandler(service.NewAuthService(testutil.NewMockOperatorRepository()))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), rec)

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestMe_UnknownOperator(t *testing.T) {
	e := echo.New()
	handler := NewAuthHandler(service.NewAuthService(testutil.NewMockOperatorRepository()))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), rec)
	setupAuthContext(c, "auth0|stranger")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", rec.Code)
	}
}
