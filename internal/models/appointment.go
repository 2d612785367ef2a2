package models

import "time"

// AppointmentStatus статус записи на приём.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// CanTransition проверяет допустимость смены статуса записи.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	switch s {
	case AppointmentPending:
		return next == AppointmentConfirmed || next == AppointmentCancelled
	case AppointmentConfirmed:
		return next == AppointmentCompleted || next == AppointmentCancelled
	}
	return false
}

// Appointment запись клиента на приём в бизнес.
type Appointment struct {
	UID             string            `json:"id"`
	BusinessUID     string            `json:"business_id"`
	CustomerUID     string            `json:"customer_id"`
	AppointmentDate time.Time         `json:"appointment_date"`
	Duration        int               `json:"duration"`
	Service         string            `json:"service"`
	Notes           *string           `json:"notes,omitempty"`
	Status          AppointmentStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}

// AppointmentInput данные для создания записи.
type AppointmentInput struct {
	BusinessUID     string    `json:"business_id" validate:"required"`
	AppointmentDate time.Time `json:"appointment_date" validate:"required"`
	Service         string    `json:"service" validate:"required"`
	Notes           *string   `json:"notes,omitempty"`
}
