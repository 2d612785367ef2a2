// Package middlewarectx содержит HTTP middleware: проверку bearer-токена,
// ролевой доступ, ограничение частоты запросов и метрики.
//
// JWTMiddleware проверяет токен в заголовке Authorization, перечитывает
// учётную запись и кладёт её в контекст запроса. Обработчики достают её
// через AccountFrom.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/direct-tree/internal/http/response"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// AccountKey ключ учётной записи в контексте.
const AccountKey Key = "account"

// Authenticator проверяет токен и возвращает учётную запись.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Account, error)
}

// WithAccount кладёт учётную запись в контекст.
func WithAccount(ctx context.Context, account *models.Account) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

// AccountFrom достаёт учётную запись из контекста.
func AccountFrom(ctx context.Context) (*models.Account, bool) {
	account, ok := ctx.Value(AccountKey).(*models.Account)
	return account, ok && account != nil
}

// JWTMiddleware возвращает middleware, который пропускает только запросы
// с действующим bearer-токеном. Иначе отвечает 401.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Info("missing or invalid authorization header")
				response.WriteStatus(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			account, err := auth.Authenticate(r.Context(), tokenStr)
			if err != nil {
				status, msg := response.FromError(err)
				if status != http.StatusInternalServerError {
					status = http.StatusUnauthorized
				}
				log.Info("authentication failed", slog.String("reason", err.Error()))
				response.WriteStatus(w, r, status, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// RequireRole пропускает только учётные записи с одной из ролей. Иначе 403.
func RequireRole(log *slog.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := AccountFrom(r.Context())
			if !ok {
				response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			if !slices.Contains(roles, account.Role) {
				log.Info("role check failed",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("account", account.UID),
					slog.String("role", string(account.Role)))
				response.WriteStatus(w, r, http.StatusForbidden, models.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireActive дополнительно проверяет, что учётная запись подтверждена и активна.
// Токен деактивированной записи сам по себе не отзывается.
func RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFrom(r.Context())
		if !ok {
			response.WriteStatus(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if !account.CanLogin() {
			response.WriteStatus(w, r, http.StatusForbidden, models.ErrNotVerified.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
