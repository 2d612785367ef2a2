// Package paypal клиент REST API PayPal: биллинговые соглашения и разовые заказы.
package paypal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

const providerName = "paypal"

// Состояния соглашения, которые возвращает PayPal.
const (
	StateActive    = "Active"
	StatePending   = "Pending"
	StateSuspended = "Suspended"
	StateCancelled = "Cancelled"
	StateExpired   = "Expired"
)

// Config параметры клиента.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PlanID       string
	ReturnURL    string
	CancelURL    string
}

// Agreement результат создания биллингового соглашения.
type Agreement struct {
	Token       string
	ApprovalURL string
}

// ExecutedAgreement соглашение, подтверждённое плательщиком.
type ExecutedAgreement struct {
	ID              string
	State           string
	NextBillingDate *time.Time
}

// Order разовый заказ.
type Order struct {
	ID          string
	Status      string
	ApprovalURL string
}

// Client клиент PayPal с кэшированием OAuth-токена.
type Client struct {
	http *resty.Client
	cfg  Config
	log  *slog.Logger
	now  func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewClient создаёт клиент PayPal.
func NewClient(cfg Config, log *slog.Logger) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		http: http,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	var tok tokenResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tok).
		SetError(&apiErr).
		Post("/v1/oauth2/token")
	if err != nil {
		return "", fmt.Errorf("oauth token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("oauth token: status %d: %s", resp.StatusCode(), apiErr)
	}
	if tok.AccessToken == "" {
		return "", errors.New("oauth token: empty access token")
	}

	c.token = tok.AccessToken
	// обновляем токен за минуту до истечения
	c.expiresAt = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json"), nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, result any) error {
	req, err := c.request(ctx)
	if err != nil {
		return models.ProviderError(providerName, fmt.Errorf("%s: %w", op, err))
	}
	var apiErr errorResponse
	req.SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Error("paypal request failed", slog.String("op", op), sl.Err(err))
		return models.ProviderError(providerName, fmt.Errorf("%s: %w", op, err))
	}
	if resp.IsError() {
		c.log.Error("paypal returned error",
			slog.String("op", op),
			slog.Int("status_code", resp.StatusCode()),
			slog.String("error", apiErr.String()),
		)
		return models.ProviderError(providerName, fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), apiErr))
	}
	return nil
}

// CreateAgreement создаёт биллинговое соглашение по плану из конфига.
// Возвращает токен одобрения и адрес, куда нужно перенаправить плательщика.
func (c *Client) CreateAgreement(ctx context.Context, businessName string, startAt time.Time) (*Agreement, error) {
	const op = "paypal.CreateAgreement"
	body := agreementRequest{
		Name:        "The Direct Tree Business Listing",
		Description: "Monthly listing subscription for " + businessName,
		StartDate:   startAt.UTC().Format("2006-01-02T15:04:05Z"),
		Plan:        planRef{ID: c.cfg.PlanID},
		Payer:       payer{PaymentMethod: "paypal"},
	}

	var out agreementResponse
	if err := c.do(ctx, op, resty.MethodPost, "/v1/payments/billing-agreements", body, &out); err != nil {
		return nil, err
	}

	approvalURL := findLink(out.Links, "approval_url")
	if approvalURL == "" {
		return nil, models.ProviderError(providerName, fmt.Errorf("%s: approval_url missing", op))
	}
	token, err := tokenFromApprovalURL(approvalURL)
	if err != nil {
		return nil, models.ProviderError(providerName, fmt.Errorf("%s: %w", op, err))
	}
	return &Agreement{Token: token, ApprovalURL: approvalURL}, nil
}

// ExecuteAgreement подтверждает соглашение после одобрения плательщиком.
func (c *Client) ExecuteAgreement(ctx context.Context, token string) (*ExecutedAgreement, error) {
	const op = "paypal.ExecuteAgreement"
	var out agreementResponse
	path := "/v1/payments/billing-agreements/" + url.PathEscape(token) + "/agreement-execute"
	if err := c.do(ctx, op, resty.MethodPost, path, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &ExecutedAgreement{
		ID:              out.ID,
		State:           out.State,
		NextBillingDate: out.AgreementDetails.NextBillingDate,
	}, nil
}

// GetAgreement читает текущее состояние соглашения.
func (c *Client) GetAgreement(ctx context.Context, agreementID string) (*ExecutedAgreement, error) {
	const op = "paypal.GetAgreement"
	var out agreementResponse
	path := "/v1/payments/billing-agreements/" + url.PathEscape(agreementID)
	if err := c.do(ctx, op, resty.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &ExecutedAgreement{
		ID:              out.ID,
		State:           out.State,
		NextBillingDate: out.AgreementDetails.NextBillingDate,
	}, nil
}

// CancelAgreement отменяет соглашение.
func (c *Client) CancelAgreement(ctx context.Context, agreementID, note string) error {
	const op = "paypal.CancelAgreement"
	path := "/v1/payments/billing-agreements/" + url.PathEscape(agreementID) + "/cancel"
	return c.do(ctx, op, resty.MethodPost, path, stateDescriptor{Note: note}, nil)
}

// CreateOrder создаёт разовый заказ на оплату.
func (c *Client) CreateOrder(ctx context.Context, referenceID, description string, amount decimal.Decimal, currency string) (*Order, error) {
	const op = "paypal.CreateOrder"
	body := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: referenceID,
			Description: description,
			Amount:      orderAmount{CurrencyCode: currency, Value: amount.StringFixed(2)},
		}},
		ApplicationContext: applicationContext{ReturnURL: c.cfg.ReturnURL, CancelURL: c.cfg.CancelURL},
	}

	var out orderResponse
	if err := c.do(ctx, op, resty.MethodPost, "/v2/checkout/orders", body, &out); err != nil {
		return nil, err
	}
	return &Order{ID: out.ID, Status: out.Status, ApprovalURL: findLink(out.Links, "approve")}, nil
}

// CaptureOrder списывает средства по одобренному заказу.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	const op = "paypal.CaptureOrder"
	var out orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.do(ctx, op, resty.MethodPost, path, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &Order{ID: out.ID, Status: out.Status}, nil
}

func tokenFromApprovalURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse approval url: %w", err)
	}
	token := u.Query().Get("token")
	if token == "" {
		return "", errors.New("approval url has no token")
	}
	return token, nil
}
