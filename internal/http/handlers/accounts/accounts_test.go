package accounts

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/direct-tree/internal/http/middlewarectx"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, in auth.RegisterInput) (*models.Account, error) {
	args := m.Called(ctx, in)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *ServiceMock) Verify(ctx context.Context, token string) (*models.Account, error) {
	args := m.Called(ctx, token)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *ServiceMock) ResendVerification(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *ServiceMock) Login(ctx context.Context, email, password string) (string, *models.Account, error) {
	args := m.Called(ctx, email, password)
	account, _ := args.Get(1).(*models.Account)
	return args.String(0), account, args.Error(2)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func do(t *testing.T, h http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
	rec := httptest.NewRecorder()
	h(rec, req)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	return rec, got
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockAccount    *models.Account
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "customer registered",
			body:           `{"email":"ann@example.bs","password":"secret1","first_name":"Ann","last_name":"Lee"}`,
			mockAccount:    &models.Account{UID: "u1"},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "duplicate email",
			body:           `{"email":"ann@example.bs","password":"secret1","first_name":"Ann","last_name":"Lee"}`,
			mockErr:        models.ErrDuplicateEmail,
			wantStatusCode: http.StatusConflict,
			wantError:      "email already registered",
		},
		{
			name:           "admin self-registration",
			body:           `{"email":"ann@example.bs","password":"secret1","first_name":"Ann","last_name":"Lee","role":"admin"}`,
			mockErr:        models.ValidationError("admin accounts cannot be registered"),
			wantStatusCode: http.StatusBadRequest,
			wantError:      "validation error: admin accounts cannot be registered",
		},
		{
			name:           "short password",
			body:           `{"email":"ann@example.bs","password":"123","first_name":"Ann","last_name":"Lee"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Password is out of range",
		},
		{
			name:           "broken json",
			body:           `{"email":`,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.mockAccount != nil || tt.mockErr != nil {
				svc.On("Register", mock.Anything, mock.MatchedBy(func(in auth.RegisterInput) bool {
					return in.Email == "ann@example.bs" && in.Profile.FirstName == "Ann"
				})).Return(tt.mockAccount, tt.mockErr).Once()
			}

			rec, got := do(t, New(newNoopLogger(), svc).Register, http.MethodPost, "/register", tt.body)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, "Error", got["status"])
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				assert.Equal(t, "OK", got["status"])
				assert.Equal(t, "u1", got["data"].(map[string]any)["user_id"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestVerify(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Verify", mock.Anything, "tok").Return(&models.Account{UID: "u1"}, nil).Once()
	svc.On("Verify", mock.Anything, "used").Return(nil, models.ErrInvalidToken).Once()
	h := New(newNoopLogger(), svc)

	rec, _ := do(t, h.Verify, http.MethodGet, "/verify-email?token=tok", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, got := do(t, h.Verify, http.MethodGet, "/verify-email?token=used", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid verification token", got["error"])

	rec, _ = do(t, h.Verify, http.MethodGet, "/verify-email", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestResendVerification(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("ResendVerification", mock.Anything, "ann@example.bs").Return(nil).Once()

	rec, got := do(t, New(newNoopLogger(), svc).ResendVerification, http.MethodPost, "/resend-verification", `{"email":"ann@example.bs"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "OK", got["status"])
	svc.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	account := &models.Account{UID: "u1", Email: "ann@example.bs", Role: models.RoleCustomer}

	tests := []struct {
		name           string
		mockToken      string
		mockAccount    *models.Account
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{"success", "jwt-token", account, nil, http.StatusOK, ""},
		{"wrong password", "", nil, models.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"not verified", "", nil, models.ErrNotVerified, http.StatusForbidden, "account is not verified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("Login", mock.Anything, "ann@example.bs", "secret1").
				Return(tt.mockToken, tt.mockAccount, tt.mockErr).Once()

			rec, got := do(t, New(newNoopLogger(), svc).Login, http.MethodPost, "/login",
				`{"email":"ann@example.bs","password":"secret1"}`)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
				return
			}
			data := got["data"].(map[string]any)
			assert.Equal(t, "jwt-token", data["access_token"])
			assert.Equal(t, "bearer", data["token_type"])
			assert.Equal(t, "u1", data["user"].(map[string]any)["id"])
			assert.NotContains(t, data["user"], "password_hash")
		})
	}
}

func TestMe(t *testing.T) {
	h := New(newNoopLogger(), new(ServiceMock))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(middlewarectx.WithAccount(req.Context(), &models.Account{UID: "u1", Email: "ann@example.bs"}))
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ann@example.bs"`)

	rec = httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
