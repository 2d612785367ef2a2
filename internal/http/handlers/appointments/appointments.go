// Package appointments реализует HTTP-обработчики записей на приём.
package appointments

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

// Service описывает операции над записями на приём.
type Service interface {
	Create(ctx context.Context, customer *models.Account, in models.AppointmentInput) (*models.Appointment, error)
	ListForBusiness(ctx context.Context, caller *models.Account, businessUID string) ([]*models.Appointment, error)
	UpdateStatus(ctx context.Context, caller *models.Account, uid string, next models.AppointmentStatus) (*models.Appointment, error)
}

// StatusRequest новый статус записи.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}

// Handler обработчики маршрутов записей на приём.
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

// Create godoc
// @Summary Записаться на приём
// @Description Только для покупателей. Бизнес должен принимать записи.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AppointmentInput true "Запись"
// @Success 201 {object} models.Appointment
// @Failure 400 {object} response.ErrorResponse "Бизнес не принимает записи"
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /appointments [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.appointments.Create")

	customer, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var in models.AppointmentInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}

	a, err := h.service.Create(r.Context(), customer, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("appointment created", slog.String("uid", a.UID), slog.String("business", a.BusinessUID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(a))
}

// List godoc
// @Summary Записи бизнеса
// @Description Только для владельца профиля.
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "UID профиля"
// @Success 200 {array} models.Appointment
// @Failure 403 {object} response.ErrorResponse
// @Router /businesses/{id}/appointments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.appointments.List")

	caller, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	list, err := h.service.ListForBusiness(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(list))
}

// UpdateStatus godoc
// @Summary Сменить статус записи
// @Description Владелец подтверждает, завершает или отменяет запись. Покупатель может только отменить свою.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "UID записи"
// @Param request body StatusRequest true "Новый статус"
// @Success 200 {object} models.Appointment
// @Failure 403 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход"
// @Router /appointments/{id}/status [patch]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.appointments.UpdateStatus")

	caller, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req StatusRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	a, err := h.service.UpdateStatus(r.Context(), caller, chi.URLParam(r, "id"), models.AppointmentStatus(req.Status))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("appointment status changed", slog.String("uid", a.UID), slog.String("status", string(a.Status)))
	render.JSON(w, r, response.OK(a))
}
