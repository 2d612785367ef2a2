package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

const subscriptionColumns = `id, account_uid, business_uid, plan_id, provider_token, provider_agreement_id,
	approval_url, status, amount, currency, trial_end_date, next_billing_date, created_at, updated_at`

func scanSubscription(row scanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	if err := row.Scan(&sub.ID, &sub.AccountUID, &sub.BusinessUID, &sub.PlanID, &sub.ProviderToken,
		&sub.ProviderAgreementID, &sub.ApprovalURL, &sub.Status, &sub.Amount, &sub.Currency,
		&sub.TrialEndDate, &sub.NextBillingDate, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateSubscription сохраняет подписку. Вторая неотменённая подписка
// аккаунта нарушает частичный уникальный индекс и возвращает ErrDuplicate.
func (s *Storage) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	const op = "storage.CreateSubscription"
	query := `INSERT INTO subscriptions (account_uid, business_uid, plan_id, provider_token,
			      approval_url, status, amount, currency, trial_end_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id, created_at, updated_at`
	if err := s.DB.QueryRowContext(ctx, query,
		sub.AccountUID, sub.BusinessUID, sub.PlanID, sub.ProviderToken, sub.ApprovalURL,
		sub.Status, sub.Amount, sub.Currency, sub.TrialEndDate,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return wrap(op, err)
	}
	return nil
}

// GetOpenSubscription возвращает неотменённую подписку аккаунта.
func (s *Storage) GetOpenSubscription(ctx context.Context, accountUID string) (*models.Subscription, error) {
	const op = "storage.GetOpenSubscription"
	return s.getSubscription(ctx, op,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE account_uid = $1 AND status <> 'cancelled'`,
		accountUID)
}

// GetLatestSubscription возвращает последнюю подписку аккаунта в любом статусе.
func (s *Storage) GetLatestSubscription(ctx context.Context, accountUID string) (*models.Subscription, error) {
	const op = "storage.GetLatestSubscription"
	return s.getSubscription(ctx, op,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE account_uid = $1 ORDER BY id DESC LIMIT 1`,
		accountUID)
}

// GetSubscriptionByToken ищет подписку по токену одобрения.
func (s *Storage) GetSubscriptionByToken(ctx context.Context, token string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByToken"
	return s.getSubscription(ctx, op,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_token = $1`, token)
}

// GetSubscriptionByAgreement ищет подписку по идентификатору соглашения у провайдера.
func (s *Storage) GetSubscriptionByAgreement(ctx context.Context, agreementID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByAgreement"
	return s.getSubscription(ctx, op,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_agreement_id = $1`, agreementID)
}

func (s *Storage) getSubscription(ctx context.Context, op, query string, args ...any) (*models.Subscription, error) {
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// ListReconcilable возвращает неотменённые подписки с подтверждённым соглашением.
func (s *Storage) ListReconcilable(ctx context.Context) ([]*models.Subscription, error) {
	const op = "storage.ListReconcilable"
	rows, err := s.DB.QueryContext(ctx, `SELECT `+subscriptionColumns+`
			  FROM subscriptions
			  WHERE status <> 'cancelled' AND provider_agreement_id IS NOT NULL
			  ORDER BY id`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// Transition описывает условное изменение статуса подписки.
// Пустые AgreementID и NextBillingDate оставляют прежние значения.
type Transition struct {
	ID              int64
	From            models.SubscriptionStatus
	To              models.SubscriptionStatus
	AgreementID     *string
	NextBillingDate *time.Time
}

// TransitionSubscription применяет переход статуса, только если подписка всё ещё
// в статусе From, и в той же транзакции переносит новый статус в профиль бизнеса.
// Если статус успел измениться, возвращает ErrConflict.
func (s *Storage) TransitionSubscription(ctx context.Context, t Transition) (*models.Subscription, error) {
	const op = "storage.TransitionSubscription"
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `UPDATE subscriptions
			  SET status = $3,
			      provider_agreement_id = COALESCE($4, provider_agreement_id),
			      next_billing_date = COALESCE($5, next_billing_date),
			      updated_at = NOW()
			  WHERE id = $1 AND status = $2
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(tx.QueryRowContext(ctx, query, t.ID, t.From, t.To, t.AgreementID, t.NextBillingDate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrConflict)
	}
	if err != nil {
		return nil, wrap(op, err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE businesses SET subscription_status = $2, updated_at = NOW() WHERE uid = $1`,
		sub.BusinessUID, sub.Status); err != nil {
		return nil, wrap(op, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}
