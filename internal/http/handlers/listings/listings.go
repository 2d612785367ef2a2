// Package listings реализует HTTP-обработчики объявлений о мероприятиях
// и аренде жилья, включая оплату публикации.
package listings

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/direct-tree/internal/http/middlewarectx"
	"github.com/magabrotheeeer/direct-tree/internal/http/request"
	"github.com/magabrotheeeer/direct-tree/internal/http/response"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/providers/paypal"
)

// Service описывает операции над объявлениями.
type Service interface {
	Create(ctx context.Context, caller *models.Account, kind models.ListingKind, in models.ListingInput) (*models.Listing, error)
	List(ctx context.Context, kind models.ListingKind, island string, skip, limit int) ([]*models.Listing, error)
	Pay(ctx context.Context, caller *models.Account, uid string) (*paypal.Order, error)
	Execute(ctx context.Context, caller *models.Account, uid, orderID string) (*models.Listing, error)
}

// ExecuteRequest идентификатор одобренного заказа.
type ExecuteRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

// OrderResponse заказ на оплату публикации.
type OrderResponse struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	ApprovalURL string `json:"approval_url"`
}

// Handler обработчики маршрутов объявлений.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Create возвращает обработчик создания объявления вида kind.
//
// @Summary Создать объявление
// @Description Мероприятие (/events) или аренда (/rentals). Владельцы бизнеса и администраторы.
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ListingInput true "Объявление"
// @Success 201 {object} models.Listing
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /events [post]
// @Router /rentals [post]
func (h *Handler) Create(kind models.ListingKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.logger(r, "handlers.listings.Create")

		caller, ok := middlewarectx.AccountFrom(r.Context())
		if !ok {
			response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		var in models.ListingInput
		if !request.DecodeJSON(w, r, log, h.validate, &in) {
			return
		}

		l, err := h.service.Create(r.Context(), caller, kind, in)
		if err != nil {
			response.WriteError(w, r, log, err)
			return
		}

		log.Info("listing created", slog.String("uid", l.UID), slog.String("kind", string(kind)))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.OK(l))
	}
}

// List возвращает обработчик публичного списка объявлений вида kind.
//
// @Summary Список объявлений
// @Tags Listings
// @Produce json
// @Param island query string false "Остров"
// @Param skip query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Success 200 {array} models.Listing
// @Router /events [get]
// @Router /rentals [get]
func (h *Handler) List(kind models.ListingKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.logger(r, "handlers.listings.List")

		skip, limit, err := request.Page(r)
		if err != nil {
			response.WriteStatus(w, r, http.StatusBadRequest, err.Error())
			return
		}
		list, err := h.service.List(r.Context(), kind, r.URL.Query().Get("island"), skip, limit)
		if err != nil {
			response.WriteError(w, r, log, err)
			return
		}
		render.JSON(w, r, response.OK(list))
	}
}

// Pay godoc
// @Summary Оплатить публикацию
// @Description Создаёт разовый заказ у провайдера и возвращает ссылку на оплату.
// @Tags Listings
// @Produce json
// @Security BearerAuth
// @Param id path string true "UID объявления"
// @Success 200 {object} OrderResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Уже оплачено"
// @Failure 502 {object} response.ErrorResponse
// @Router /listings/{id}/pay [post]
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.listings.Pay")

	caller, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	order, err := h.service.Pay(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("listing order created", slog.String("order", order.ID))
	render.JSON(w, r, response.OK(OrderResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		ApprovalURL: order.ApprovalURL,
	}))
}

// Execute godoc
// @Summary Подтвердить оплату публикации
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "UID объявления"
// @Param request body ExecuteRequest true "Заказ"
// @Success 200 {object} models.Listing
// @Failure 400 {object} response.ErrorResponse "Заказ не относится к объявлению"
// @Failure 502 {object} response.ErrorResponse
// @Router /listings/{id}/execute [post]
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.listings.Execute")

	caller, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ExecuteRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	l, err := h.service.Execute(r.Context(), caller, chi.URLParam(r, "id"), req.OrderID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("listing paid", slog.String("uid", l.UID))
	render.JSON(w, r, response.OK(l))
}
