// Package mailgun отправляет транзакционные письма через HTTP API Mailgun.
package mailgun

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// Config параметры клиента Mailgun.
type Config struct {
	BaseURL string
	APIKey  string
	Domain  string
	From    string
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Client реализует отправку писем через Mailgun.
type Client struct {
	http *resty.Client
	cfg  Config
	log  *slog.Logger
}

// NewClient создаёт клиент Mailgun.
func NewClient(cfg Config, log *slog.Logger) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetBasicAuth("api", cfg.APIKey)
	return &Client{http: http, cfg: cfg, log: log}
}

// Send отправляет письмо. Ошибка транспорта или ответ не 2xx
// оборачиваются в models.ErrProvider.
func (c *Client) Send(ctx context.Context, email models.Email) error {
	const op = "mailgun.Send"
	form := map[string]string{
		"from":    c.cfg.From,
		"to":      email.To,
		"subject": email.Subject,
		"text":    email.Text,
	}
	if email.HTML != "" {
		form["html"] = email.HTML
	}

	var out sendResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		Post("/v3/" + c.cfg.Domain + "/messages")
	if err != nil {
		return models.ProviderError("mailgun", fmt.Errorf("%s: %w", op, err))
	}
	if resp.IsError() {
		return models.ProviderError("mailgun", fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), strings.TrimSpace(resp.String())))
	}

	c.log.Info("email sent successfully", slog.String("to", email.To), slog.String("id", out.ID))
	return nil
}
