// Package businesses реализует HTTP-обработчики профилей бизнеса:
// создание, просмотр, каталог с фильтрами и загрузку фотографий.
package businesses

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/direct-tree/internal/http/middlewarectx"
	"github.com/magabrotheeeer/direct-tree/internal/http/request"
	"github.com/magabrotheeeer/direct-tree/internal/http/response"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// MaxPhotoSize предельный размер загружаемой фотографии.
const MaxPhotoSize = 10 << 20

// Service описывает операции над профилями бизнеса.
type Service interface {
	Create(ctx context.Context, owner *models.Account, in models.BusinessInput) (*models.Business, error)
	Get(ctx context.Context, uid string) (*models.Business, error)
	List(ctx context.Context, f models.BusinessFilter) ([]*models.Business, error)
	Mine(ctx context.Context, ownerUID string) (*models.Business, error)
	UploadPhoto(ctx context.Context, caller *models.Account, businessUID, filename string, file io.Reader) (*models.Business, error)
}

// Handler обработчики маршрутов профилей бизнеса.
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
// @Summary Создать профиль бизнеса
// @Description Профиль создаётся на модерации, с пробным периодом. Один профиль на владельца.
// @Tags Businesses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BusinessInput true "Профиль"
// @Success 201 {object} models.Business
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "У владельца уже есть профиль"
// @Failure 422 {object} response.ErrorResponse
// @Router /businesses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.businesses.Create")

	owner, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var in models.BusinessInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}

	b, err := h.service.Create(r.Context(), owner, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("business created", slog.String("uid", b.UID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(b))
}

// Get godoc
// @Summary Профиль бизнеса
// @Tags Businesses
// @Produce json
// @Param id path string true "UID профиля"
// @Success 200 {object} models.Business
// @Failure 404 {object} response.ErrorResponse
// @Router /businesses/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.businesses.Get")

	b, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(b))
}

// List godoc
// @Summary Каталог бизнесов
// @Description По умолчанию только одобренные профили.
// @Tags Businesses
// @Produce json
// @Param island query string false "Остров"
// @Param category query string false "Категория"
// @Param status query string false "Статус модерации"
// @Param skip query int false "Смещение"
// @Param limit query int false "Размер страницы, не больше 100"
// @Success 200 {array} models.Business
// @Failure 400 {object} response.ErrorResponse
// @Router /businesses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.businesses.List")

	skip, limit, err := request.Page(r)
	if err != nil {
		response.WriteStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	list, err := h.service.List(r.Context(), models.BusinessFilter{
		Island:   q.Get("island"),
		Category: q.Get("category"),
		Status:   models.ModerationStatus(q.Get("status")),
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(list))
}

// Mine godoc
// @Summary Профиль текущего владельца
// @Tags Businesses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Business
// @Failure 404 {object} response.ErrorResponse
// @Router /businesses/mine [get]
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.businesses.Mine")

	owner, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	b, err := h.service.Mine(r.Context(), owner.UID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK(b))
}

// UploadPhoto godoc
// @Summary Загрузить фотографию
// @Description multipart/form-data, поле file. Только владелец профиля.
// @Tags Businesses
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "UID профиля"
// @Param file formData file true "Изображение"
// @Success 200 {object} models.Business
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse "Хостинг изображений недоступен"
// @Router /businesses/{id}/photos [post]
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.businesses.UploadPhoto")

	caller, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPhotoSize)
	if err := r.ParseMultipartForm(MaxPhotoSize); err != nil {
		log.Info("failed to parse multipart form", sl.Err(err))
		response.WriteStatus(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.WriteStatus(w, r, http.StatusBadRequest, "field file is a required field")
		return
	}
	defer file.Close()

	b, err := h.service.UploadPhoto(r.Context(), caller, chi.URLParam(r, "id"), header.Filename, file)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("photo uploaded", slog.String("business", b.UID), slog.Int("photos", len(b.Photos)))
	render.JSON(w, r, response.OK(b))
}
