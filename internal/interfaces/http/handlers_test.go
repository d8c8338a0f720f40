package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/identity"
)

// Mock services

type mockIdentity struct {
	registerFunc func(ctx context.Context, input identity.RegisterInput) (*identity.Session, error)
	loginFunc    func(ctx context.Context, email, password string) (*identity.Session, error)
	verifyFunc   func(token string) (port.Principal, error)
}

func (m *mockIdentity) RegisterCompany(ctx context.Context, input identity.RegisterInput) (*identity.Session, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, input)
	}
	return &identity.Session{Token: "tok", User: &entity.User{ID: "u1"}}, nil
}

func (m *mockIdentity) CreateUser(ctx context.Context, principal port.Principal, input identity.CreateUserInput) (*entity.User, error) {
	return &entity.User{ID: "u2", Role: input.Role}, nil
}

func (m *mockIdentity) Login(ctx context.Context, email, password string) (*identity.Session, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return &identity.Session{Token: "tok", User: &entity.User{ID: "u1"}}, nil
}

func (m *mockIdentity) VerifyToken(token string) (port.Principal, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(token)
	}
	if token != "valid" {
		return port.Principal{}, fmt.Errorf("%w: invalid token", approval.ErrUnauthorized)
	}
	return port.Principal{UserID: "u1", Role: entity.RoleManager, CompanyID: "co-1"}, nil
}

func (m *mockIdentity) ListUsers(ctx context.Context, principal port.Principal) ([]*entity.User, error) {
	return nil, nil
}

func (m *mockIdentity) ListManagers(ctx context.Context, principal port.Principal) ([]*entity.User, error) {
	return nil, nil
}

type mockClaims struct {
	recordFunc func(ctx context.Context, principal port.Principal, claimID string, input service.DecisionInput) (*entity.ExpenseClaim, error)
	createFunc func(ctx context.Context, principal port.Principal, input service.ClaimInput) (*entity.ExpenseClaim, error)
}

func (m *mockClaims) CreateDraft(ctx context.Context, principal port.Principal, input service.ClaimInput) (*entity.ExpenseClaim, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, principal, input)
	}
	return &entity.ExpenseClaim{ID: "c1", Status: entity.StatusDraft}, nil
}

func (m *mockClaims) UpdateDraft(ctx context.Context, principal port.Principal, claimID string, input service.ClaimInput) (*entity.ExpenseClaim, error) {
	return nil, fmt.Errorf("%w: claim %s", service.ErrNotFound, claimID)
}

func (m *mockClaims) Submit(ctx context.Context, principal port.Principal, claimID string) (*entity.ExpenseClaim, error) {
	return nil, fmt.Errorf("%w: rate source down", approval.ErrUpstreamUnavailable)
}

func (m *mockClaims) RecordDecision(ctx context.Context, principal port.Principal, claimID string, input service.DecisionInput) (*entity.ExpenseClaim, error) {
	if m.recordFunc != nil {
		return m.recordFunc(ctx, principal, claimID, input)
	}
	return &entity.ExpenseClaim{ID: claimID}, nil
}

func (m *mockClaims) Get(ctx context.Context, principal port.Principal, claimID string) (*entity.ExpenseClaim, error) {
	return &entity.ExpenseClaim{ID: claimID}, nil
}

func (m *mockClaims) Status(ctx context.Context, principal port.Principal, claimID string) (*service.ClaimStatusView, error) {
	return &service.ClaimStatusView{Claim: &entity.ExpenseClaim{ID: claimID}}, nil
}

func (m *mockClaims) List(ctx context.Context, principal port.Principal, limit, offset int) ([]*entity.ExpenseClaim, error) {
	return nil, nil
}

type mockRules struct{}

func (m *mockRules) Create(ctx context.Context, principal port.Principal, input service.RuleInput) (*entity.ApprovalRule, error) {
	return &entity.ApprovalRule{ID: "r1"}, nil
}

func (m *mockRules) Get(ctx context.Context, principal port.Principal, id string) (*entity.ApprovalRule, error) {
	return &entity.ApprovalRule{ID: id}, nil
}

func (m *mockRules) GetActive(ctx context.Context, principal port.Principal) (*entity.ApprovalRule, error) {
	return nil, fmt.Errorf("%w: company has no approval rule", service.ErrNotFound)
}

func (m *mockRules) Delete(ctx context.Context, principal port.Principal, id string) error {
	return nil
}

type mockAutofill struct{}

func (m *mockAutofill) Suggest(ctx context.Context, data []byte, filename string) (*port.PartialExpenseFields, error) {
	return &port.PartialExpenseFields{}, nil
}

type mockExport struct{}

func (m *mockExport) ExportClaims(ctx context.Context, principal port.Principal) ([]byte, string, error) {
	return []byte("xlsx"), "claims.xlsx", nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(claims *mockClaims) *Server {
	return NewServer(ServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, &mockIdentity{}, claims, &mockRules{}, &mockAutofill{}, &mockExport{}, nopLogger{})
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := doJSON(t, newTestServer(&mockClaims{}), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(&mockClaims{})

	w := doJSON(t, srv, http.MethodGet, "/api/v1/claims", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/claims", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/claims", "valid", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister(t *testing.T) {
	srv := newTestServer(&mockClaims{})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		CompanyName: "Acme",
		Country:     "US",
		Currency:    "USD",
		AdminName:   "Alice",
		Email:       "alice@example.com",
		Password:    "correct-horse",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Binding failures are 400.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	identitySvc := &mockIdentity{
		loginFunc: func(ctx context.Context, email, password string) (*identity.Session, error) {
			return nil, fmt.Errorf("%w: invalid credentials", approval.ErrUnauthorized)
		},
	}
	srv := NewServer(ServerConfig{Host: "127.0.0.1"}, identitySvc, &mockClaims{}, &mockRules{}, &mockAutofill{}, &mockExport{}, nopLogger{})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "a@b.co", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: bad seat", approval.ErrValidation), http.StatusBadRequest},
		{"unauthorized", fmt.Errorf("%w: not your seat", approval.ErrUnauthorized), http.StatusForbidden},
		{"not found", fmt.Errorf("%w: claim", service.ErrNotFound), http.StatusNotFound},
		{"invalid transition", fmt.Errorf("%w: terminal", approval.ErrInvalidTransition), http.StatusConflict},
		{"duplicate seat", fmt.Errorf("%w: seat 1", approval.ErrDuplicateSeat), http.StatusConflict},
		{"upstream", fmt.Errorf("%w: vision down", approval.ErrUpstreamUnavailable), http.StatusBadGateway},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := &mockClaims{
				recordFunc: func(ctx context.Context, principal port.Principal, claimID string, input service.DecisionInput) (*entity.ExpenseClaim, error) {
					return nil, tt.err
				},
			}
			w := doJSON(t, newTestServer(claims), http.MethodPost, "/api/v1/claims/c1/decisions", "valid", DecisionRequest{Action: "APPROVE"})
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
		})
	}
}

func TestCreateClaim(t *testing.T) {
	srv := newTestServer(&mockClaims{})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/claims", "valid", ClaimRequest{
		Description: "Taxi",
		Date:        "2025-03-10",
		Amount:      23.5,
		Currency:    "USD",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Bad date format maps to validation.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/claims", "valid", ClaimRequest{Date: "10/03/2025"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitClaim_UpstreamDown(t *testing.T) {
	w := doJSON(t, newTestServer(&mockClaims{}), http.MethodPost, "/api/v1/claims/c1/submit", "valid", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestExportClaims(t *testing.T) {
	w := doJSON(t, newTestServer(&mockClaims{}), http.MethodGet, "/api/v1/claims/export", "valid", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "claims.xlsx")
}
