package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus состояние подписки бизнеса.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionTrial:   {SubscriptionActive, SubscriptionCancelled},
	SubscriptionActive:  {SubscriptionPastDue, SubscriptionCancelled},
	SubscriptionPastDue: {SubscriptionActive, SubscriptionCancelled},
	// cancelled терминальное состояние
}

// CanTransition проверяет допустимость перехода из s в next.
func (s SubscriptionStatus) CanTransition(next SubscriptionStatus) bool {
	for _, allowed := range subscriptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal сообщает, что из состояния нет переходов.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionCancelled
}

// Subscription связывает аккаунт и бизнес с соглашением у платёжного провайдера.
type Subscription struct {
	ID                  int64              `json:"id"`
	AccountUID          string             `json:"user_id"`
	BusinessUID         string             `json:"business_id"`
	PlanID              string             `json:"plan_id"`
	ProviderToken       string             `json:"-"`
	ProviderAgreementID *string            `json:"paypal_subscription_id,omitempty"`
	ApprovalURL         string             `json:"approval_url,omitempty"`
	Status              SubscriptionStatus `json:"status"`
	Amount              decimal.Decimal    `json:"amount"`
	Currency            string             `json:"currency"`
	TrialEndDate        time.Time          `json:"trial_end_date"`
	NextBillingDate     *time.Time         `json:"next_billing_date,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// DefaultSubscriptionAmount ежемесячная стоимость подписки.
var DefaultSubscriptionAmount = decimal.RequireFromString("20.00")

// DefaultCurrency валюта подписки по умолчанию.
const DefaultCurrency = "USD"
