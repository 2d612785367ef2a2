package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// CustomClaims описывает данные, хранящиеся в JWT.
type CustomClaims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AccountUID возвращает идентификатор аккаунта из subject.
func (c *CustomClaims) AccountUID() string {
	return c.Subject
}

// GenerateToken создает JWT токен для аккаунта, подписывая его секретным ключом.
func (j *MakerImpl) GenerateToken(accountUID string, role models.Role) (string, error) {
	const op = "jwt.GenerateToken"
	now := j.now()
	claims := CustomClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// ParseToken парсит JWT токен, проверяет подпись и срок действия.
//
// Истёкший токен возвращает models.ErrTokenExpired, любой другой дефект даёт
// models.ErrTokenInvalid.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%s: %w: %s", op, models.ErrTokenInvalid, err.Error())
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrTokenInvalid)
	}
	return claims, nil
}
