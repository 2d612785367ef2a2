// Package admin реализует HTTP-обработчики модерации: очередь профилей
// и отзывов, одобрение, отклонение и блокировку, выдачу роли администратора.
// Маршруты закрыты проверкой роли admin на уровне роутера.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/direct-tree/internal/http/request"
	"github.com/magabrotheeeer/direct-tree/internal/http/response"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// BusinessModerator модерация профилей.
type BusinessModerator interface {
	Pending(ctx context.Context) ([]*models.Business, error)
	Approve(ctx context.Context, uid string) (*models.Business, error)
	Reject(ctx context.Context, uid string) (*models.Business, error)
	Suspend(ctx context.Context, uid string) (*models.Business, error)
}

// ReviewModerator модерация отзывов.
type ReviewModerator interface {
	Pending(ctx context.Context) ([]*models.Review, error)
	Approve(ctx context.Context, uid string) (*models.Review, error)
}

// Promoter выдаёт роль администратора.
type Promoter interface {
	Promote(ctx context.Context, email string) (*models.Account, error)
}

// PromoteRequest адрес учётной записи, которой выдаётся роль admin.
type PromoteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Handler обработчики административных маршрутов.
type Handler struct {
	log        *slog.Logger
	businesses BusinessModerator
	reviews    ReviewModerator
	accounts   Promoter
	validate   *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, businesses BusinessModerator, reviews ReviewModerator, accounts Promoter) *Handler {
	return &Handler{
		log:        log,
		businesses: businesses,
		reviews:    reviews,
		accounts:   accounts,
		validate:   validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// PendingBusinesses godoc
// @Summary Профили на модерации
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Business
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/businesses/pending [get]
func (h *Handler) PendingBusinesses(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.PendingBusinesses")

	list, err := h.businesses.Pending(r.Context())
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(list))
}

// ApproveBusiness godoc
// @Summary Одобрить профиль
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "UID профиля"
// @Success 200 {object} models.Business
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/businesses/{id}/approve [put]
func (h *Handler) ApproveBusiness(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "handlers.admin.ApproveBusiness", h.businesses.Approve)
}

// RejectBusiness godoc
// @Summary Отклонить профиль
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "UID профиля"
// @Success 200 {object} models.Business
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/businesses/{id}/reject [put]
func (h *Handler) RejectBusiness(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "handlers.admin.RejectBusiness", h.businesses.Reject)
}

// SuspendBusiness godoc
// @Summary Заблокировать профиль
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "UID профиля"
// @Success 200 {object} models.Business
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/businesses/{id}/suspend [put]
func (h *Handler) SuspendBusiness(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "handlers.admin.SuspendBusiness", h.businesses.Suspend)
}

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, op string, action func(context.Context, string) (*models.Business, error)) {
	log := h.logger(r, op)

	b, err := action(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("business moderated", slog.String("uid", b.UID), slog.String("status", string(b.Status)))
	render.JSON(w, r, response.OK(b))
}

// PendingReviews godoc
// @Summary Отзывы на модерации
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Review
// @Router /admin/reviews/pending [get]
func (h *Handler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.PendingReviews")

	list, err := h.reviews.Pending(r.Context())
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(list))
}

// ApproveReview godoc
// @Summary Одобрить отзыв
// @Description После одобрения пересчитывается рейтинг бизнеса.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "UID отзыва"
// @Success 200 {object} models.Review
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/reviews/{id}/approve [put]
func (h *Handler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.ApproveReview")

	review, err := h.reviews.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("review approved", slog.String("uid", review.UID))
	render.JSON(w, r, response.OK(review))
}

// Promote godoc
// @Summary Выдать роль администратора
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PromoteRequest true "Адрес учётной записи"
// @Success 200 {object} models.Account
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/accounts/promote [put]
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Promote")

	var req PromoteRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	account, err := h.accounts.Promote(r.Context(), req.Email)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("account promoted", slog.String("uid", account.UID))
	render.JSON(w, r, response.OK(account))
}
