// Package scheduler собирает процесс планировщика: уведомления об окончании
// пробного периода и сверку подписок с PayPal.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/direct-tree/internal/app/infra"
	"github.com/magabrotheeeer/direct-tree/internal/cache"
	"github.com/magabrotheeeer/direct-tree/internal/config"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/direct-tree/internal/services/scheduler"
	"github.com/magabrotheeeer/direct-tree/internal/services/subscription"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

// App приложение планировщика.
type App struct {
	schedulerService *schedulerservice.Service
	cfg              config.Scheduler
	db               *repository.Storage
	cache            *cache.Cache
	closeMailer      func()
	logger           *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "scheduler.New"

	db, err := infra.Storage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: cache not initialized: %w", op, err)
	}

	m, closeMailer, err := infra.Mailer(cfg, logger)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	subscriptionService := subscription.NewService(db, infra.PayPal(cfg, logger), cacheRedis, m, cfg.PayPalPlanID, logger)

	return &App{
		schedulerService: schedulerservice.NewService(db, subscriptionService, m, logger),
		cfg:              cfg.Scheduler,
		db:               db,
		cache:            cacheRedis,
		closeMailer:      closeMailer,
		logger:           logger,
	}, nil
}

// Run запускает задачи и ждёт их завершения после отмены ctx.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.schedulerService.RunTrialNotices(ctx, a.cfg.TrialNoticeInterval)
	}()
	go func() {
		defer wg.Done()
		a.schedulerService.RunReconcile(ctx, a.cfg.ReconcileInterval)
	}()

	<-ctx.Done()
	wg.Wait()
	a.logger.Info("shutting down scheduler service")

	a.closeMailer()
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
