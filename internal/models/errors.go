package models

import (
	"errors"
	"fmt"
)

// Ошибки предметной области. HTTP-слой сопоставляет их со статусами ответа.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account is not verified")
	ErrInvalidToken       = errors.New("invalid verification token")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrAccountNotFound    = errors.New("account not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrProvider           = errors.New("provider error")

	// ErrAlreadySubscribed частный случай ErrAlreadyExists.
	ErrAlreadySubscribed = fmt.Errorf("%w: subscription already exists", ErrAlreadyExists)
)

// ProviderError оборачивает ошибку внешнего провайдера так,
// что errors.Is(err, ErrProvider) возвращает true.
func ProviderError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProvider, provider, err)
}

// ValidationError формирует ошибку валидации с пояснением.
func ValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
