// Package appointment реализует запись клиентов на приём.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

// Repository определяет методы хранилища записей.
type Repository interface {
	GetBusiness(ctx context.Context, uid string) (*models.Business, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, uid string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, businessUID string) ([]*models.Appointment, error)
	TransitionAppointment(ctx context.Context, uid string, from, to models.AppointmentStatus) (*models.Appointment, error)
}

// Service бизнес-логика записей на приём.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создаёт сервис записей.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create записывает клиента на приём. Длительность берётся из профиля бизнеса.
func (s *Service) Create(ctx context.Context, customer *models.Account, in models.AppointmentInput) (*models.Appointment, error) {
	const op = "appointment.Create"
	if customer.Role != models.RoleCustomer {
		return nil, fmt.Errorf("%s: only customers can book appointments: %w", op, models.ErrForbidden)
	}
	b, err := s.business(ctx, op, in.BusinessUID)
	if err != nil {
		return nil, err
	}
	if !b.AcceptsAppointments {
		return nil, models.ValidationError("this business does not accept appointments")
	}

	a := &models.Appointment{
		UID:             uuid.NewString(),
		BusinessUID:     b.UID,
		CustomerUID:     customer.UID,
		AppointmentDate: in.AppointmentDate,
		Duration:        b.AppointmentDuration,
		Service:         in.Service,
		Notes:           in.Notes,
		Status:          models.AppointmentPending,
	}
	if err := s.repo.CreateAppointment(ctx, a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("appointment booked", slog.String("uid", a.UID), slog.String("business", b.UID))
	return a, nil
}

// ListForBusiness возвращает записи бизнеса. Доступно только владельцу.
func (s *Service) ListForBusiness(ctx context.Context, caller *models.Account, businessUID string) ([]*models.Appointment, error) {
	const op = "appointment.ListForBusiness"
	b, err := s.business(ctx, op, businessUID)
	if err != nil {
		return nil, err
	}
	if b.OwnerUID != caller.UID {
		return nil, models.ErrForbidden
	}
	list, err := s.repo.ListAppointments(ctx, businessUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// UpdateStatus меняет статус записи. Владелец бизнеса подтверждает,
// завершает или отменяет запись, клиент может только отменить свою.
func (s *Service) UpdateStatus(ctx context.Context, caller *models.Account, uid string, next models.AppointmentStatus) (*models.Appointment, error) {
	const op = "appointment.UpdateStatus"
	a, err := s.repo.GetAppointment(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if a.CustomerUID != caller.UID || next != models.AppointmentCancelled {
		b, err := s.business(ctx, op, a.BusinessUID)
		if err != nil {
			return nil, err
		}
		if b.OwnerUID != caller.UID {
			return nil, models.ErrForbidden
		}
	}

	if !a.Status.CanTransition(next) {
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, a.Status, next, models.ErrInvalidTransition)
	}
	updated, err := s.repo.TransitionAppointment(ctx, uid, a.Status, next)
	if errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("%s: status changed concurrently: %w", op, models.ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s *Service) business(ctx context.Context, op, uid string) (*models.Business, error) {
	b, err := s.repo.GetBusiness(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: business: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}
