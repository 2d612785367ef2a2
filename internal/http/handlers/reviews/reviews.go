// Package reviews реализует HTTP-обработчики отзывов о бизнесе.
package reviews

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
)

// Service описывает операции над отзывами.
type Service interface {
	Create(ctx context.Context, author *models.Account, in models.ReviewInput) (*models.Review, error)
	List(ctx context.Context, businessUID string, approvedOnly bool, skip, limit int) ([]*models.Review, error)
}

// Handler обработчики маршрутов отзывов.
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

// Create godoc
// @Summary Оставить отзыв
// @Description Отзыв публикуется после модерации. Ненормативная лексика маскируется.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ReviewInput true "Отзыв"
// @Success 201 {object} models.Review
// @Failure 404 {object} response.ErrorResponse "Бизнес не найден"
// @Failure 422 {object} response.ErrorResponse
// @Router /reviews [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reviews.Create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	author, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var in models.ReviewInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}

	review, err := h.service.Create(r.Context(), author, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("review created", slog.String("uid", review.UID), slog.String("business", review.BusinessUID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(review))
}

// List godoc
// @Summary Отзывы о бизнесе
// @Tags Reviews
// @Produce json
// @Param id path string true "UID профиля"
// @Param approved_only query bool false "Только одобренные, по умолчанию true"
// @Param skip query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Success 200 {array} models.Review
// @Router /businesses/{id}/reviews [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reviews.List"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	skip, limit, err := request.Page(r)
	if err != nil {
		response.WriteStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}
	approvedOnly, err := request.Bool(r, "approved_only", true)
	if err != nil {
		response.WriteStatus(w, r, http.StatusBadRequest, "approved_only must be a boolean")
		return
	}

	list, err := h.service.List(r.Context(), chi.URLParam(r, "id"), approvedOnly, skip, limit)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(list))
}
