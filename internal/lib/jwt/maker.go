// Package jwt реализует выпуск и проверку подписанных JWT токенов сессии.
//
// Токен несёт идентификатор аккаунта (sub) и его роль, подписывается HS256
// и живёт tokenTTL (по умолчанию 30 дней). Отзыв токенов не поддерживается.
package jwt

import (
	"time"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken выпускает токен для аккаунта с указанной ролью.
	GenerateToken(accountUID string, role models.Role) (string, error)
	// ParseToken проверяет подпись и срок действия, возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
