package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingKind тип объявления.
type ListingKind string

const (
	ListingEvent  ListingKind = "event"
	ListingRental ListingKind = "rental"
)

// Listing мероприятие или аренда жилья, публикуемые владельцами бизнеса.
// Публикация оплачивается разовым платежом через провайдера.
type Listing struct {
	UID               string          `json:"id"`
	Kind              ListingKind     `json:"kind"`
	OwnerUID          string          `json:"owner_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Island            string          `json:"island"`
	Location          string          `json:"location"`
	StartsAt          *time.Time      `json:"starts_at,omitempty"`
	AvailableFrom     *time.Time      `json:"available_from,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency"`
	IsPaid            bool            `json:"is_paid"`
	ProviderPaymentID *string         `json:"payment_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ListingInput данные для создания объявления.
type ListingInput struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Description   string          `json:"description" validate:"required"`
	Island        string          `json:"island" validate:"required"`
	Location      string          `json:"location" validate:"required"`
	StartsAt      *time.Time      `json:"starts_at,omitempty"`
	AvailableFrom *time.Time      `json:"available_from,omitempty"`
	Price         decimal.Decimal `json:"price"`
}

// ListingFee стоимость публикации объявления.
var ListingFee = decimal.RequireFromString("10.00")
