// Package subscription управляет подпиской бизнеса на размещение в каталоге.
//
// Состояние подписки меняется только по подтверждениям платёжного провайдера:
// ответу на исполнение или отмену соглашения, вебхукам и сверке с провайдером.
// Клиент лишь инициирует создание соглашения.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/direct-tree/internal/cache"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/mailer"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/providers/paypal"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

// Repository определяет методы хранилища подписок.
type Repository interface {
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
	GetBusiness(ctx context.Context, uid string) (*models.Business, error)
	GetBusinessByOwner(ctx context.Context, ownerUID string) (*models.Business, error)
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	GetOpenSubscription(ctx context.Context, accountUID string) (*models.Subscription, error)
	GetLatestSubscription(ctx context.Context, accountUID string) (*models.Subscription, error)
	GetSubscriptionByToken(ctx context.Context, token string) (*models.Subscription, error)
	GetSubscriptionByAgreement(ctx context.Context, agreementID string) (*models.Subscription, error)
	ListReconcilable(ctx context.Context) ([]*models.Subscription, error)
	TransitionSubscription(ctx context.Context, t repository.Transition) (*models.Subscription, error)
}

// PaymentProvider биллинговые соглашения у платёжного провайдера.
type PaymentProvider interface {
	CreateAgreement(ctx context.Context, businessName string, startAt time.Time) (*paypal.Agreement, error)
	ExecuteAgreement(ctx context.Context, token string) (*paypal.ExecutedAgreement, error)
	GetAgreement(ctx context.Context, agreementID string) (*paypal.ExecutedAgreement, error)
	CancelAgreement(ctx context.Context, agreementID, note string) error
}

// Invalidator сбрасывает закэшированную карточку бизнеса.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Service бизнес-логика подписок.
type Service struct {
	repo     Repository
	provider PaymentProvider
	cache    Invalidator
	mailer   mailer.Mailer
	planID   string
	log      *slog.Logger
	now      func() time.Time
}

// NewService создаёт сервис подписок.
func NewService(repo Repository, provider PaymentProvider, c Invalidator, m mailer.Mailer, planID string, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		cache:    c,
		mailer:   m,
		planID:   planID,
		log:      log,
		now:      time.Now,
	}
}

// minBillingDelay провайдер принимает только дату начала в будущем.
const minBillingDelay = 24 * time.Hour

// Create создаёт биллинговое соглашение для бизнеса владельца и сохраняет
// подписку в статусе trial с адресом одобрения. Наличие неотменённой подписки
// проверяется до обращения к провайдеру.
func (s *Service) Create(ctx context.Context, owner *models.Account) (*models.Subscription, error) {
	const op = "subscription.Create"
	if owner.Role != models.RoleBusinessOwner {
		return nil, models.ErrForbidden
	}

	_, err := s.repo.GetOpenSubscription(ctx, owner.UID)
	switch {
	case err == nil:
		return nil, models.ErrAlreadySubscribed
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	b, err := s.repo.GetBusinessByOwner(ctx, owner.UID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: business: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	startAt := b.TrialEndDate
	if earliest := s.now().UTC().Add(minBillingDelay); startAt.Before(earliest) {
		startAt = earliest
	}
	agreement, err := s.provider.CreateAgreement(ctx, b.Name, startAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub := &models.Subscription{
		AccountUID:    owner.UID,
		BusinessUID:   b.UID,
		PlanID:        s.planID,
		ProviderToken: agreement.Token,
		ApprovalURL:   agreement.ApprovalURL,
		Status:        models.SubscriptionTrial,
		Amount:        models.DefaultSubscriptionAmount,
		Currency:      models.DefaultCurrency,
		TrialEndDate:  b.TrialEndDate,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.Warn("concurrent subscription create, provider agreement left unexecuted",
				slog.String("account", owner.UID), slog.String("token", agreement.Token))
			return nil, models.ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription created", slog.Int64("id", sub.ID), slog.String("business", b.UID))
	return sub, nil
}

// Execute исполняет одобренное плательщиком соглашение. Подписка становится
// active, только если провайдер подтвердил активное соглашение.
func (s *Service) Execute(ctx context.Context, caller *models.Account, token string) (*models.Subscription, error) {
	const op = "subscription.Execute"
	sub, err := s.repo.GetSubscriptionByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.AccountUID != caller.UID {
		return nil, models.ErrForbidden
	}
	if !sub.Status.CanTransition(models.SubscriptionActive) {
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, sub.Status, models.SubscriptionActive, models.ErrInvalidTransition)
	}

	executed, err := s.provider.ExecuteAgreement(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	target := sub.Status
	if executed.State == paypal.StateActive {
		target = models.SubscriptionActive
	}
	updated, err := s.transition(ctx, sub, target, &executed.ID, executed.NextBillingDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if updated.Status == models.SubscriptionActive {
		s.notifyActivated(ctx, updated)
	}
	return updated, nil
}

// Cancel отменяет открытую подписку владельца. Если соглашение уже исполнено,
// сначала отменяет его у провайдера; при ошибке провайдера статус не меняется.
func (s *Service) Cancel(ctx context.Context, caller *models.Account) (*models.Subscription, error) {
	const op = "subscription.Cancel"
	sub, err := s.repo.GetOpenSubscription(ctx, caller.UID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if sub.ProviderAgreementID != nil {
		if err := s.provider.CancelAgreement(ctx, *sub.ProviderAgreementID, "Cancelled by business owner"); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	updated, err := s.transition(ctx, sub, models.SubscriptionCancelled, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Status возвращает последнюю подписку аккаунта из локального хранилища.
func (s *Service) Status(ctx context.Context, caller *models.Account) (*models.Subscription, error) {
	const op = "subscription.Status"
	sub, err := s.repo.GetLatestSubscription(ctx, caller.UID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// HandleWebhook применяет событие провайдера. Неизвестные события, чужие
// соглашения и недопустимые переходы пропускаются без ошибки.
func (s *Service) HandleWebhook(ctx context.Context, event *paypal.WebhookEvent) error {
	const op = "subscription.HandleWebhook"
	log := s.log.With(slog.String("event", event.ID), slog.String("type", event.EventType))

	target, ok := webhookTarget(event.EventType)
	if !ok {
		log.Debug("webhook event ignored")
		return nil
	}
	agreementID := event.AgreementID()
	sub, err := s.repo.GetSubscriptionByAgreement(ctx, agreementID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("webhook for unknown agreement", slog.String("agreement", agreementID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.applyIfLegal(ctx, log, sub, target, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Reconcile сверяет открытые подписки с провайдером и применяет допустимые
// переходы. Возвращает число изменённых подписок.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	const op = "subscription.Reconcile"
	subs, err := s.repo.ListReconcilable(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	changed := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			return changed, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		log := s.log.With(slog.Int64("subscription", sub.ID), slog.String("agreement", *sub.ProviderAgreementID))
		agreement, err := s.provider.GetAgreement(ctx, *sub.ProviderAgreementID)
		if err != nil {
			log.Error("failed to fetch agreement", sl.Err(err))
			continue
		}
		target, ok := stateTarget(agreement.State)
		if !ok {
			continue
		}
		applied, err := s.applyIfLegal(ctx, log, sub, target, agreement.NextBillingDate)
		if err != nil {
			log.Error("failed to apply reconciled state", sl.Err(err))
			continue
		}
		if applied {
			changed++
		}
	}
	return changed, nil
}

// applyIfLegal переводит подписку в target, если переход допустим.
// Повтор текущего статуса и недопустимые переходы не считаются ошибкой.
func (s *Service) applyIfLegal(ctx context.Context, log *slog.Logger, sub *models.Subscription, target models.SubscriptionStatus, nextBilling *time.Time) (bool, error) {
	if sub.Status == target {
		return false, nil
	}
	if !sub.Status.CanTransition(target) {
		log.Warn("ignoring illegal subscription transition",
			slog.String("from", string(sub.Status)), slog.String("to", string(target)))
		return false, nil
	}
	updated, err := s.transition(ctx, sub, target, nil, nextBilling)
	if errors.Is(err, models.ErrInvalidTransition) {
		log.Warn("subscription changed concurrently, skipping")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if updated.Status == models.SubscriptionActive && sub.Status == models.SubscriptionTrial {
		s.notifyActivated(ctx, updated)
	}
	return true, nil
}

func (s *Service) transition(ctx context.Context, sub *models.Subscription, target models.SubscriptionStatus, agreementID *string, nextBilling *time.Time) (*models.Subscription, error) {
	updated, err := s.repo.TransitionSubscription(ctx, repository.Transition{
		ID:              sub.ID,
		From:            sub.Status,
		To:              target,
		AgreementID:     agreementID,
		NextBillingDate: nextBilling,
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("status changed concurrently: %w", models.ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx, cache.BusinessKey(updated.BusinessUID)); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("business", updated.BusinessUID), sl.Err(err))
	}
	s.log.Info("subscription status changed", slog.Int64("id", updated.ID),
		slog.String("from", string(sub.Status)), slog.String("to", string(updated.Status)))
	return updated, nil
}

func (s *Service) notifyActivated(ctx context.Context, sub *models.Subscription) {
	account, err := s.repo.GetAccount(ctx, sub.AccountUID)
	if err != nil {
		s.log.Warn("skip activation email", slog.Int64("id", sub.ID), sl.Err(err))
		return
	}
	b, err := s.repo.GetBusiness(ctx, sub.BusinessUID)
	if err != nil {
		s.log.Warn("skip activation email", slog.Int64("id", sub.ID), sl.Err(err))
		return
	}
	s.mailer.Enqueue(mailer.SubscriptionActivatedEmail(account.Email, account.FirstName, b.Name))
}

func webhookTarget(eventType string) (models.SubscriptionStatus, bool) {
	switch eventType {
	case paypal.EventAgreementActivated, paypal.EventAgreementReactive, paypal.EventPaymentCompleted:
		return models.SubscriptionActive, true
	case paypal.EventAgreementSuspended, paypal.EventPaymentFailed:
		return models.SubscriptionPastDue, true
	case paypal.EventAgreementCancelled, paypal.EventAgreementExpired:
		return models.SubscriptionCancelled, true
	}
	return "", false
}

func stateTarget(state string) (models.SubscriptionStatus, bool) {
	switch state {
	case paypal.StateActive:
		return models.SubscriptionActive, true
	case paypal.StateSuspended:
		return models.SubscriptionPastDue, true
	case paypal.StateCancelled, paypal.StateExpired:
		return models.SubscriptionCancelled, true
	}
	return "", false
}
