// Package health проверка готовности API.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/direct-tree/internal/http/response"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
)

// Pinger проверяет доступность зависимости.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler отвечает 200, если база данных доступна, иначе 503.
type Handler struct {
	log *slog.Logger
	db  Pinger
}

// New создаёт Handler.
func New(log *slog.Logger, db Pinger) *Handler {
	return &Handler{
		log: log,
		db:  db,
	}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Error("database is unavailable", slog.String("op", op), sl.Err(err))
		response.WriteStatus(w, r, http.StatusServiceUnavailable, "database is unavailable")
		return
	}
	render.JSON(w, r, response.OK(map[string]any{
		"status":  "ok",
		"message": "The Direct Tree API",
	}))
}
