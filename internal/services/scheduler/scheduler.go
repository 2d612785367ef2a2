// Package scheduler запускает периодические задачи: письма об окончании
// пробного периода и сверку подписок с платёжным провайдером.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/mailer"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// TrialRepository ищет бизнесы с заканчивающимся пробным периодом.
type TrialRepository interface {
	FindTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]*models.TrialNotice, error)
	MarkTrialNoticeSent(ctx context.Context, businessUID string) (bool, error)
}

// Reconciler сверяет подписки с провайдером.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// Service планировщик фоновых задач.
type Service struct {
	repo       TrialRepository
	reconciler Reconciler
	mailer     mailer.Mailer
	log        *slog.Logger
	now        func() time.Time
}

// NewService создаёт планировщик.
func NewService(repo TrialRepository, reconciler Reconciler, m mailer.Mailer, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		reconciler: reconciler,
		mailer:     m,
		log:        log,
		now:        time.Now,
	}
}

// NotifyTrialsEndingTomorrow ставит в очередь письма владельцам, у которых
// пробный период заканчивается завтра (по UTC). Возвращает число писем.
//
// Перед отправкой бизнес помечается в базе, поэтому перезапуск планировщика
// или второй экземпляр не отправят письмо повторно.
func (s *Service) NotifyTrialsEndingTomorrow(ctx context.Context) (int, error) {
	const op = "scheduler.NotifyTrialsEndingTomorrow"
	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.Add(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	notices, err := s.repo.FindTrialsEndingBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	sent := 0
	for _, n := range notices {
		claimed, err := s.repo.MarkTrialNoticeSent(ctx, n.BusinessUID)
		if err != nil {
			s.log.Error("failed to mark trial notice", slog.String("business_uid", n.BusinessUID), sl.Err(err))
			continue
		}
		if !claimed {
			continue
		}
		s.mailer.Enqueue(mailer.TrialEndingEmail(n.Email, n.FirstName, n.BusinessName, n.TrialEndDate))
		sent++
	}
	return sent, nil
}

// RunTrialNotices рассылает уведомления сразу и затем с периодом interval.
func (s *Service) RunTrialNotices(ctx context.Context, interval time.Duration) {
	every(ctx, interval, func() {
		count, err := s.NotifyTrialsEndingTomorrow(ctx)
		if err != nil {
			s.log.Error("failed to send trial notices", sl.Err(err))
			return
		}
		s.log.Info("trial notices queued", slog.Int("count", count))
	})
}

// RunReconcile сверяет подписки сразу и затем с периодом interval.
func (s *Service) RunReconcile(ctx context.Context, interval time.Duration) {
	every(ctx, interval, func() {
		changed, err := s.reconciler.Reconcile(ctx)
		if err != nil {
			s.log.Error("subscription reconciliation failed", sl.Err(err))
			return
		}
		s.log.Info("subscriptions reconciled", slog.Int("changed", changed))
	})
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	fn()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
