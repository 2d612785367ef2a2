// Package subscriptions реализует HTTP-обработчики платной подписки бизнеса
// и приём вебхуков платёжного провайдера.
//
// Клиент только инициирует подписку. Статус меняется по ответам провайдера:
// подтверждению соглашения, отмене и вебхукам.
package subscriptions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/direct-tree/internal/http/middlewarectx"
	"github.com/magabrotheeeer/direct-tree/internal/http/request"
	"github.com/magabrotheeeer/direct-tree/internal/http/response"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/providers/paypal"
)

const maxWebhookBody = 1 << 20

// Service описывает операции подписки.
type Service interface {
	Create(ctx context.Context, owner *models.Account) (*models.Subscription, error)
	Execute(ctx context.Context, caller *models.Account, token string) (*models.Subscription, error)
	Cancel(ctx context.Context, caller *models.Account) (*models.Subscription, error)
	Status(ctx context.Context, caller *models.Account) (*models.Subscription, error)
	HandleWebhook(ctx context.Context, event *paypal.WebhookEvent) error
}

// ExecuteRequest токен, который провайдер вернул на return_url.
type ExecuteRequest struct {
	Token string `json:"token" validate:"required"`
}

// Handler обработчики маршрутов подписки.
type Handler struct {
	log           *slog.Logger
	service       Service
	validate      *validator.Validate
	webhookSecret string
}

// New создаёт Handler. webhookSecret общий секрет подписи вебхуков.
func New(log *slog.Logger, service Service, webhookSecret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		validate:      validator.New(),
		webhookSecret: webhookSecret,
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Create godoc
// @Summary Оформить подписку
// @Description Создаёт биллинговое соглашение у провайдера и возвращает ссылку для подтверждения.
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.Subscription
// @Failure 403 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Подписка уже есть"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Router /subscriptions [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Create")

	owner, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	sub, err := h.service.Create(r.Context(), owner)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("subscription initiated", slog.Int64("id", sub.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(sub))
}

// Execute godoc
// @Summary Подтвердить подписку
// @Description Исполняет соглашение по токену, полученному после одобрения плательщиком.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExecuteRequest true "Токен провайдера"
// @Success 200 {object} models.Subscription
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход"
// @Failure 502 {object} response.ErrorResponse
// @Router /subscriptions/execute [post]
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Execute")

	caller, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ExecuteRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	sub, err := h.service.Execute(r.Context(), caller, req.Token)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("subscription executed", slog.Int64("id", sub.ID), slog.String("status", string(sub.Status)))
	render.JSON(w, r, response.OK(sub))
}

// Cancel godoc
// @Summary Отменить подписку
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Subscription
// @Failure 404 {object} response.ErrorResponse "Нет открытой подписки"
// @Failure 502 {object} response.ErrorResponse
// @Router /subscriptions/cancel [post]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Cancel")

	caller, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	sub, err := h.service.Cancel(r.Context(), caller)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("subscription cancelled", slog.Int64("id", sub.ID))
	render.JSON(w, r, response.OK(sub))
}

// Status godoc
// @Summary Состояние подписки
// @Description Читает только локальное состояние, провайдер не опрашивается.
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Subscription
// @Failure 404 {object} response.ErrorResponse
// @Router /subscriptions/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Status")

	caller, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	sub, err := h.service.Status(r.Context(), caller)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(sub))
}

// Webhook godoc
// @Summary Вебхук PayPal
// @Description Тело подписывается HMAC-SHA256 общим секретом, подпись в заголовке X-Webhook-Signature.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Router /webhooks/paypal [post]
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscriptions.Webhook")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.WriteStatus(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	event, err := paypal.VerifyWebhook(h.webhookSecret, body, r.Header.Get(paypal.SignatureHeader))
	if errors.Is(err, paypal.ErrBadSignature) {
		log.Warn("invalid or missing webhook signature")
		response.WriteStatus(w, r, http.StatusUnauthorized, "invalid signature")
		return
	}
	if err != nil {
		log.Info("failed to decode webhook", sl.Err(err))
		response.WriteStatus(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), event); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("webhook processed", slog.String("event", event.EventType), slog.String("agreement", event.AgreementID()))
	render.JSON(w, r, response.OK(nil))
}
