package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Описание API для /docs.
	_ "github.com/magabrotheeeer/direct-tree/docs"
	"github.com/magabrotheeeer/direct-tree/internal/config"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/accounts"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/admin"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/appointments"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/businesses"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/catalog"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/listings"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/reviews"
	"github.com/magabrotheeeer/direct-tree/internal/http/handlers/subscriptions"
	"github.com/magabrotheeeer/direct-tree/internal/http/middlewarectx"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// Handlers обработчики всех групп маршрутов.
type Handlers struct {
	Health        http.Handler
	Accounts      *accounts.Handler
	Businesses    *businesses.Handler
	Reviews       *reviews.Handler
	Appointments  *appointments.Handler
	Subscriptions *subscriptions.Handler
	Listings      *listings.Handler
	Admin         *admin.Handler
}

// RegisterRoutes регистрирует все маршруты API.
//
// Публичные маршруты доступны без токена. Остальные требуют bearer-токен,
// часть из них дополнительно проверяет роль.
func RegisterRoutes(r chi.Router, logger *slog.Logger, auth middlewarectx.Authenticator, metrics *middlewarectx.Metrics, limits config.RateLimit, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.Middleware,
	)

	limiter := middlewarectx.RateLimitMiddleware(logger, limits.RPS, limits.Burst)
	owner := middlewarectx.RequireRole(logger, models.RoleBusinessOwner)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые маршруты
		r.Get("/health", h.Health.ServeHTTP)
		r.Get("/islands", catalog.Islands)
		r.Get("/categories", catalog.Categories)
		r.Get("/verify-email", h.Accounts.Verify)
		r.With(limiter).Post("/register", h.Accounts.Register)
		r.With(limiter).Post("/login", h.Accounts.Login)
		r.With(limiter).Post("/resend-verification", h.Accounts.ResendVerification)

		r.Get("/businesses", h.Businesses.List)
		r.Get("/businesses/{id}", h.Businesses.Get)
		r.Get("/businesses/{id}/reviews", h.Reviews.List)
		r.Get("/events", h.Listings.List(models.ListingEvent))
		r.Get("/rentals", h.Listings.List(models.ListingRental))

		// Вебхук провайдера, подлинность проверяется подписью
		r.Post("/webhooks/paypal", h.Subscriptions.Webhook)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(auth, logger), limiter)

			r.Get("/me", h.Accounts.Me)
			r.Post("/reviews", h.Reviews.Create)
			r.Patch("/appointments/{id}/status", h.Appointments.UpdateStatus)

			r.With(middlewarectx.RequireRole(logger, models.RoleCustomer)).
				Post("/appointments", h.Appointments.Create)

			r.Group(func(r chi.Router) {
				r.Use(owner)
				r.Post("/businesses", h.Businesses.Create)
				r.Get("/businesses/mine", h.Businesses.Mine)
				r.Post("/businesses/{id}/photos", h.Businesses.UploadPhoto)
				r.Get("/businesses/{id}/appointments", h.Appointments.List)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Use(owner, middlewarectx.RequireActive)
				r.Post("/", h.Subscriptions.Create)
				r.Post("/execute", h.Subscriptions.Execute)
				r.Post("/cancel", h.Subscriptions.Cancel)
				r.Get("/status", h.Subscriptions.Status)
			})

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleBusinessOwner, models.RoleAdmin))
				r.Post("/events", h.Listings.Create(models.ListingEvent))
				r.Post("/rentals", h.Listings.Create(models.ListingRental))
				r.Post("/listings/{id}/pay", h.Listings.Pay)
				r.Post("/listings/{id}/execute", h.Listings.Execute)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin), middlewarectx.RequireActive)
				r.Get("/businesses/pending", h.Admin.PendingBusinesses)
				r.Put("/businesses/{id}/approve", h.Admin.ApproveBusiness)
				r.Put("/businesses/{id}/reject", h.Admin.RejectBusiness)
				r.Put("/businesses/{id}/suspend", h.Admin.SuspendBusiness)
				r.Get("/reviews/pending", h.Admin.PendingReviews)
				r.Put("/reviews/{id}/approve", h.Admin.ApproveReview)
				r.Put("/accounts/promote", h.Admin.Promote)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
