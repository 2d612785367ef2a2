// Package request разбирает входные данные HTTP-запросов: JSON-тело с валидацией
// и параметры постраничной выборки.
package request

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/direct-tree/internal/http/response"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
)

// DecodeJSON читает тело запроса в dst и проверяет его валидатором.
// При ошибке сам пишет ответ (400 или 422) и возвращает false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.WriteStatus(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			log.Info("validation failed", sl.Err(err))
			response.WriteStatus(w, r, http.StatusBadRequest, "invalid request body")
			return false
		}
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return false
	}
	return true
}

// Page читает skip и limit из строки запроса. Отсутствующие значения равны нулю,
// значения по умолчанию подставляют сервисы.
func Page(r *http.Request) (skip, limit int, err error) {
	q := r.URL.Query()
	if v := q.Get("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil || skip < 0 {
			return 0, 0, errors.New("skip must be a non-negative integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errors.New("limit must be a non-negative integer")
		}
	}
	return skip, limit, nil
}

// Bool читает булев параметр строки запроса, def если параметра нет.
func Bool(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}
