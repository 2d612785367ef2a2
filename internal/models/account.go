// Package models содержит доменные структуры справочника: учётные записи,
// профили бизнеса, подписки, отзывы, записи на приём и объявления.
// Структуры используются в бизнес‑логике, хранилище и HTTP‑слое.
package models

import "time"

// Role роль учётной записи.
type Role string

const (
	// RoleCustomer обычный покупатель.
	RoleCustomer Role = "customer"
	// RoleBusinessOwner владелец бизнеса.
	RoleBusinessOwner Role = "business_owner"
	// RoleAdmin администратор, модерирует контент.
	RoleAdmin Role = "admin"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleBusinessOwner, RoleAdmin:
		return true
	}
	return false
}

// Account представляет зарегистрированную учётную запись.
type Account struct {
	UID               string    `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Phone             *string   `json:"phone,omitempty"`
	Role              Role      `json:"role"`
	IsVerified        bool      `json:"is_verified"`
	IsActive          bool      `json:"is_active"`
	VerificationToken *string   `json:"-"` // одноразовый, обнуляется после подтверждения
	CreatedAt         time.Time `json:"created_at"`
}

// CanLogin аккаунт подтверждён и активен.
func (a *Account) CanLogin() bool {
	return a.IsActive && a.IsVerified
}

// Profile данные профиля, передаваемые при регистрации.
type Profile struct {
	FirstName string
	LastName  string
	Phone     *string
}
