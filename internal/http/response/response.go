// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков и сопоставления ошибок
// предметной области со статусами HTTP.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: "OK" или "Error".
// Поле Error: текст ошибки (при неуспехе).
// Поле Data: данные ответа (при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OK возвращает успешный Response с переданными данными.
func OK(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response на основе ошибок валидатора.
// Каждое нарушение превращается в читаемый текст, тексты объединяются через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "url":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid url", err.Field()))
		case "min", "max", "gt", "lte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is out of range", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// FromError сопоставляет ошибку со статусом HTTP и публичным сообщением.
// Внутренние подробности неизвестных ошибок наружу не попадают.
func FromError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, models.ErrDuplicateEmail):
		return http.StatusConflict, models.ErrDuplicateEmail.Error()
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, models.ErrInvalidCredentials.Error()
	case errors.Is(err, models.ErrNotVerified):
		return http.StatusForbidden, models.ErrNotVerified.Error()
	case errors.Is(err, models.ErrInvalidToken):
		return http.StatusBadRequest, models.ErrInvalidToken.Error()
	case errors.Is(err, models.ErrTokenExpired):
		return http.StatusUnauthorized, models.ErrTokenExpired.Error()
	case errors.Is(err, models.ErrTokenInvalid):
		return http.StatusUnauthorized, models.ErrTokenInvalid.Error()
	case errors.Is(err, models.ErrAccountNotFound):
		return http.StatusUnauthorized, models.ErrAccountNotFound.Error()
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, models.ErrForbidden.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, models.ErrNotFound.Error()
	case errors.Is(err, models.ErrAlreadySubscribed):
		return http.StatusConflict, "subscription already exists"
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict, models.ErrAlreadyExists.Error()
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, models.ErrInvalidTransition.Error()
	case errors.Is(err, models.ErrProvider):
		return http.StatusBadGateway, "payment or media provider is unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}

// validationMessage отрезает от текста ошибки префиксы операций.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, models.ErrValidation.Error()); i >= 0 {
		return msg[i:]
	}
	return msg
}

// WriteError пишет ошибку в ответ. Ошибки 5xx логируются как Error, остальные как Info.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := FromError(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Int("status", status), sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}

// WriteStatus пишет ошибку с явным статусом.
func WriteStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}
