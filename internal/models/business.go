package models

import "time"

// ModerationStatus статус модерации профиля бизнеса.
type ModerationStatus string

const (
	ModerationPending   ModerationStatus = "pending"
	ModerationApproved  ModerationStatus = "approved"
	ModerationRejected  ModerationStatus = "rejected"
	ModerationSuspended ModerationStatus = "suspended"
)

// Valid сообщает, известен ли статус.
func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected, ModerationSuspended:
		return true
	}
	return false
}

// Business профиль бизнеса. Публично виден только в статусе approved.
type Business struct {
	UID                 string             `json:"id"`
	OwnerUID            string             `json:"user_id"`
	Name                string             `json:"business_name"`
	Description         string             `json:"description"`
	Category            string             `json:"category"`
	Island              string             `json:"island"`
	Address             string             `json:"address"`
	Phone               string             `json:"phone"`
	Email               string             `json:"email"`
	Website             *string            `json:"website,omitempty"`
	BusinessHours       map[string]string  `json:"business_hours"`
	Services            []string           `json:"services"`
	Photos              []string           `json:"photos"`
	LicenseNumber       string             `json:"license_number"`
	Status              ModerationStatus   `json:"status"`
	SubscriptionStatus  SubscriptionStatus `json:"subscription_status"`
	TrialEndDate        time.Time          `json:"trial_end_date"`
	RatingAverage       float64            `json:"rating_average"`
	RatingCount         int                `json:"rating_count"`
	AcceptsAppointments bool               `json:"accepts_appointments"`
	AppointmentDuration int                `json:"appointment_duration"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// BusinessInput данные для создания профиля бизнеса.
type BusinessInput struct {
	Name                string            `json:"business_name" validate:"required,max=200"`
	Description         string            `json:"description" validate:"required"`
	Category            string            `json:"category" validate:"required"`
	Island              string            `json:"island" validate:"required"`
	Address             string            `json:"address" validate:"required"`
	Phone               string            `json:"phone" validate:"required"`
	Email               string            `json:"email" validate:"required,email"`
	Website             *string           `json:"website,omitempty" validate:"omitempty,url"`
	BusinessHours       map[string]string `json:"business_hours"`
	Services            []string          `json:"services"`
	LicenseNumber       string            `json:"license_number" validate:"required"`
	AcceptsAppointments bool              `json:"accepts_appointments"`
	AppointmentDuration int               `json:"appointment_duration" validate:"omitempty,gt=0,lte=480"`
}

// BusinessFilter параметры выборки списка бизнесов.
type BusinessFilter struct {
	Island   string
	Category string
	Status   ModerationStatus // пустой статус означает "любой"
	Skip     int
	Limit    int
}

// DefaultAppointmentDuration длительность приёма по умолчанию, в минутах.
const DefaultAppointmentDuration = 60
