// Package accounts реализует HTTP-обработчики учётных записей: регистрацию,
// подтверждение email, повторную отправку письма, вход и профиль текущего
// пользователя.
package accounts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/direct-tree/internal/http/middlewarectx"
	"github.com/magabrotheeeer/direct-tree/internal/http/request"
	"github.com/magabrotheeeer/direct-tree/internal/http/response"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/services/auth"
)

// Service описывает операции над учётными записями, нужные обработчикам.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (*models.Account, error)
	Verify(ctx context.Context, token string) (*models.Account, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (string, *models.Account, error)
}

// RegisterRequest входные данные регистрации.
type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=6,max=72"`
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Role      string  `json:"role,omitempty"`
}

// LoginRequest учётные данные для входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// EmailRequest запрос с одним адресом почты.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginResponse токен доступа и учётная запись.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	Account     *models.Account `json:"user"`
}

// Handler обработчики маршрутов учётных записей.
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

// Register godoc
// @Summary Регистрация
// @Description Создаёт неподтверждённую учётную запись и отправляет письмо со ссылкой подтверждения.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Данные регистрации"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Email уже зарегистрирован"
// @Failure 422 {object} response.ErrorResponse
// @Router /register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.accounts.Register")

	var req RegisterRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	account, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
		Profile: models.Profile{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		},
	})
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("account registered", slog.String("uid", account.UID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK(map[string]any{
		"message": "Registration successful. Please check your email to verify your account.",
		"user_id": account.UID,
	}))
}

// Verify godoc
// @Summary Подтверждение email
// @Tags Accounts
// @Produce json
// @Param token query string true "Токен из письма"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверный или использованный токен"
// @Router /verify-email [get]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.accounts.Verify")

	token := r.URL.Query().Get("token")
	if token == "" {
		response.WriteStatus(w, r, http.StatusBadRequest, "token is required")
		return
	}

	account, err := h.service.Verify(r.Context(), token)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("email verified", slog.String("uid", account.UID))
	render.JSON(w, r, response.OK(map[string]any{
		"message": "Email verified successfully",
	}))
}

// ResendVerification godoc
// @Summary Повторная отправка письма подтверждения
// @Description Отвечает одинаково, есть такой адрес или нет.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Адрес"
// @Success 202 {object} response.Response
// @Router /resend-verification [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.accounts.ResendVerification")

	var req EmailRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}
	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, response.OK(map[string]any{
		"message": "If the account exists and is not verified, a new email has been sent.",
	}))
}

// Login godoc
// @Summary Вход
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Учётные данные"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} response.ErrorResponse "Неверные учётные данные"
// @Failure 403 {object} response.ErrorResponse "Email не подтверждён"
// @Router /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.accounts.Login")

	var req LoginRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	token, account, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("login success", slog.String("uid", account.UID))
	render.JSON(w, r, response.OK(LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Account:     account,
	}))
}

// Me godoc
// @Summary Текущая учётная запись
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Account
// @Failure 401 {object} response.ErrorResponse
// @Router /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := middlewarectx.AccountFrom(r.Context())
	if !ok {
		response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	render.JSON(w, r, response.OK(account))
}
