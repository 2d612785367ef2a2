package paypal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// SignatureHeader заголовок с HMAC-подписью тела вебхука.
const SignatureHeader = "X-Webhook-Signature"

// Типы событий биллинговых соглашений.
const (
	EventAgreementCreated   = "BILLING.SUBSCRIPTION.CREATED"
	EventAgreementActivated = "BILLING.SUBSCRIPTION.ACTIVATED"
	EventAgreementReactive  = "BILLING.SUBSCRIPTION.RE-ACTIVATED"
	EventAgreementSuspended = "BILLING.SUBSCRIPTION.SUSPENDED"
	EventAgreementCancelled = "BILLING.SUBSCRIPTION.CANCELLED"
	EventAgreementExpired   = "BILLING.SUBSCRIPTION.EXPIRED"
	EventPaymentFailed      = "BILLING.SUBSCRIPTION.PAYMENT.FAILED"
	EventPaymentCompleted   = "PAYMENT.SALE.COMPLETED"
)

// ErrBadSignature подпись вебхука не совпала.
var ErrBadSignature = errors.New("webhook signature mismatch")

// WebhookEvent событие, присланное PayPal.
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  webhookResource `json:"resource"`
}

type webhookResource struct {
	ID                 string `json:"id"`
	State              string `json:"state"`
	BillingAgreementID string `json:"billing_agreement_id"`
}

// AgreementID идентификатор соглашения, к которому относится событие.
// У платежей он лежит в billing_agreement_id, у соглашений в id.
func (e WebhookEvent) AgreementID() string {
	if e.Resource.BillingAgreementID != "" {
		return e.Resource.BillingAgreementID
	}
	return e.Resource.ID
}

// Sign считает hex(HMAC-SHA256(body)).
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook проверяет подпись и разбирает событие.
func VerifyWebhook(secret string, body []byte, signature string) (*WebhookEvent, error) {
	if secret == "" || !hmac.Equal([]byte(Sign(secret, body)), []byte(signature)) {
		return nil, ErrBadSignature
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if event.EventType == "" {
		return nil, errors.New("decode webhook: empty event_type")
	}
	return &event, nil
}
