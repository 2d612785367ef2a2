package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/direct-tree/internal/config"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/accounts"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/admin"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/appointments"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/businesses"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/health"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/listings"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/reviews"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/subscriptions"
	"github.com/magabrotheeeer/direct-tree/internal/http/middlewarectx"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

type tokenAuth map[string]*models.Account

func (a tokenAuth) Authenticate(_ context.Context, token string) (*models.Account, error) {
	if account, ok := a[token]; ok {
		return account, nil
	}
	return nil, models.ErrTokenInvalid
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

// newRouter собирает маршруты без сервисов: проверяются только шлюзы доступа,
// до обработчиков запросы в этих тестах не доходят.
func newRouter(t *testing.T) http.Handler {
	t.Helper()
	log := sl.Discard()
	auth := tokenAuth{
		"customer": {UID: "c", Role: models.RoleCustomer, IsVerified: true, IsActive: true},
		"owner":    {UID: "o", Role: models.RoleBusinessOwner, IsVerified: true, IsActive: true},
		"pending":  {UID: "p", Role: models.RoleBusinessOwner, IsVerified: false, IsActive: true},
		"admin":    {UID: "a", Role: models.RoleAdmin, IsVerified: true, IsActive: true},
	}

	r := chi.NewRouter()
	RegisterRoutes(r, log, auth, middlewarectx.NewMetrics(prometheus.NewRegistry()), config.RateLimit{RPS: 1000, Burst: 1000}, Handlers{
		Health:        health.New(log, okPinger{}),
		Accounts:      accounts.New(log, nil),
		Businesses:    businesses.New(log, nil),
		Reviews:       reviews.New(log, nil),
		Appointments:  appointments.New(log, nil),
		Subscriptions: subscriptions.New(log, nil, "secret"),
		Listings:      listings.New(log, nil),
		Admin:         admin.New(log, nil, nil, nil),
	})
	return r
}

func TestRoutes_AccessGates(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"me without token", http.MethodGet, "/api/v1/me", "", http.StatusUnauthorized},
		{"me with bad token", http.MethodGet, "/api/v1/me", "nope", http.StatusUnauthorized},
		{"customer creates business", http.MethodPost, "/api/v1/businesses", "customer", http.StatusForbidden},
		{"owner books appointment", http.MethodPost, "/api/v1/appointments", "owner", http.StatusForbidden},
		{"customer starts subscription", http.MethodPost, "/api/v1/subscriptions/", "customer", http.StatusForbidden},
		{"unverified owner subscription status", http.MethodGet, "/api/v1/subscriptions/status", "pending", http.StatusForbidden},
		{"customer creates event", http.MethodPost, "/api/v1/events", "customer", http.StatusForbidden},
		{"owner opens admin", http.MethodGet, "/api/v1/admin/businesses/pending", "owner", http.StatusForbidden},
		{"anonymous promote", http.MethodPut, "/api/v1/admin/accounts/promote", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	router := newRouter(t)

	for _, path := range []string{"/api/v1/health", "/api/v1/islands", "/api/v1/categories", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRoutes_VerifyEmailRequiresToken(t *testing.T) {
	router := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/verify-email", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
