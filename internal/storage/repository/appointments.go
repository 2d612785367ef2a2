package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

const appointmentColumns = `uid, business_uid, customer_uid, appointment_date, duration, service,
	notes, status, created_at`

func scanAppointment(row scanner) (*models.Appointment, error) {
	a := &models.Appointment{}
	if err := row.Scan(&a.UID, &a.BusinessUID, &a.CustomerUID, &a.AppointmentDate, &a.Duration,
		&a.Service, &a.Notes, &a.Status, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAppointment сохраняет запись на приём.
func (s *Storage) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	const op = "storage.CreateAppointment"
	query := `INSERT INTO appointments (uid, business_uid, customer_uid, appointment_date, duration,
			      service, notes, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING created_at`
	if err := s.DB.QueryRowContext(ctx, query,
		a.UID, a.BusinessUID, a.CustomerUID, a.AppointmentDate, a.Duration,
		a.Service, a.Notes, a.Status).Scan(&a.CreatedAt); err != nil {
		return wrap(op, err)
	}
	return nil
}

// GetAppointment возвращает запись по UID.
func (s *Storage) GetAppointment(ctx context.Context, uid string) (*models.Appointment, error) {
	const op = "storage.GetAppointment"
	a, err := scanAppointment(s.DB.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE uid = $1`, uid))
	if err != nil {
		return nil, wrap(op, err)
	}
	return a, nil
}

// ListAppointments возвращает записи бизнеса по дате приёма.
func (s *Storage) ListAppointments(ctx context.Context, businessUID string) ([]*models.Appointment, error) {
	const op = "storage.ListAppointments"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE business_uid = $1 ORDER BY appointment_date`,
		businessUID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	result := make([]*models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// TransitionAppointment меняет статус записи с from на to.
// Если статус уже не from, возвращает ErrConflict.
func (s *Storage) TransitionAppointment(ctx context.Context, uid string, from, to models.AppointmentStatus) (*models.Appointment, error) {
	const op = "storage.TransitionAppointment"
	query := `UPDATE appointments SET status = $3 WHERE uid = $1 AND status = $2 RETURNING ` + appointmentColumns
	a, err := scanAppointment(s.DB.QueryRowContext(ctx, query, uid, from, to))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrConflict)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return a, nil
}
