// Package password реализует хеширование и проверку паролей bcrypt.
//
// Открытый пароль никогда не сохраняется: в хранилище попадает только
// результат Hash, соль генерируется bcrypt для каждого вызова.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch возвращается, когда пароль не соответствует хэшу.
var ErrMismatch = errors.New("password mismatch")

// Hash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func Hash(plain string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сравнивает bcrypt‑хэш с введённым паролем.
//
// Несовпадение возвращает ErrMismatch, повреждённый хэш даёт обёрнутую ошибку bcrypt.
func Compare(hash, plain string) error {
	const op = "password.Compare"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
