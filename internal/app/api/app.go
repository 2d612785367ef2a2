// Package api собирает HTTP-сервер каталога: хранилище, кэш, почту,
// провайдеров и сервисы, и регистрирует маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/direct-tree/internal/app/infra"
	"github.com/magabrotheeeer/direct-tree/internal/cache"
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
	"github.com/magabrotheeeer/direct-tree/internal/lib/jwt"
	"github.com/magabrotheeeer/direct-tree/internal/lib/profanity"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/migrations"
	"github.com/magabrotheeeer/direct-tree/internal/services/appointment"
	"github.com/magabrotheeeer/direct-tree/internal/services/auth"
	"github.com/magabrotheeeer/direct-tree/internal/services/business"
	"github.com/magabrotheeeer/direct-tree/internal/services/listing"
	"github.com/magabrotheeeer/direct-tree/internal/services/review"
	"github.com/magabrotheeeer/direct-tree/internal/services/subscription"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-сервер вместе с ресурсами, которые нужно закрыть при остановке.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *repository.Storage
	cache   *cache.Cache
	closers []func()
}

// New подключает инфраструктуру и собирает маршрутизатор.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "api.New"

	db, err := infra.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	m, closeMailer, err := infra.Mailer(cfg, logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.closers = append(app.closers, closeMailer)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	payments := infra.PayPal(cfg, logger)
	images := infra.Cloudinary(cfg, logger)

	authService := auth.NewService(db, jwtMaker, m, cfg.PublicURL, logger)
	businessService := business.NewService(db, cacheRedis, images, m, cfg.TrialPeriod, logger)
	reviewService := review.NewService(db, cacheRedis, profanity.Default(), logger)
	appointmentService := appointment.NewService(db, logger)
	subscriptionService := subscription.NewService(db, payments, cacheRedis, m, cfg.PayPalPlanID, logger)
	listingService := listing.NewService(db, payments, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, middlewarectx.NewMetrics(prometheus.DefaultRegisterer), cfg.RateLimit, Handlers{
		Health:        health.New(logger, db.DB),
		Accounts:      accounts.New(logger, authService),
		Businesses:    businesses.New(logger, businessService),
		Reviews:       reviews.New(logger, reviewService),
		Appointments:  appointments.New(logger, appointmentService),
		Subscriptions: subscriptions.New(logger, subscriptionService, cfg.WebhookSecret),
		Listings:      listings.New(logger, listingService),
		Admin:         admin.New(logger, businessService, reviewService, authService),
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
