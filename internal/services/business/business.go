// Package business реализует профили бизнесов: создание владельцем,
// публичный каталог, загрузку фотографий и модерацию администратором.
package business

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/direct-tree/internal/cache"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/mailer"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Repository определяет методы хранилища профилей.
type Repository interface {
	CreateBusiness(ctx context.Context, b *models.Business) error
	GetBusiness(ctx context.Context, uid string) (*models.Business, error)
	GetBusinessByOwner(ctx context.Context, ownerUID string) (*models.Business, error)
	ListBusinesses(ctx context.Context, f models.BusinessFilter) ([]*models.Business, error)
	SetBusinessStatus(ctx context.Context, uid string, status models.ModerationStatus) (*models.Business, error)
	AddBusinessPhoto(ctx context.Context, uid, url string) (*models.Business, error)
}

// Cache описывает методы для кэширования карточек.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// ImageStore загружает изображения и возвращает их публичный URL.
type ImageStore interface {
	Upload(ctx context.Context, subfolder, filename string, file io.Reader) (string, error)
}

// Service бизнес-логика профилей.
type Service struct {
	repo        Repository
	cache       Cache
	images      ImageStore
	mailer      mailer.Mailer
	trialPeriod time.Duration
	log         *slog.Logger
	now         func() time.Time
}

// NewService создаёт сервис профилей.
func NewService(repo Repository, c Cache, images ImageStore, m mailer.Mailer, trialPeriod time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		cache:       c,
		images:      images,
		mailer:      m,
		trialPeriod: trialPeriod,
		log:         log,
		now:         time.Now,
	}
}

// Create создаёт профиль владельца на модерации с пробным периодом.
// У владельца может быть только один профиль.
func (s *Service) Create(ctx context.Context, owner *models.Account, in models.BusinessInput) (*models.Business, error) {
	const op = "business.Create"
	if owner.Role != models.RoleBusinessOwner {
		return nil, models.ErrForbidden
	}
	if !models.IsIsland(in.Island) {
		return nil, models.ValidationError("unknown island " + in.Island)
	}
	if !models.IsCategory(in.Category) {
		return nil, models.ValidationError("unknown category " + in.Category)
	}

	_, err := s.repo.GetBusinessByOwner(ctx, owner.UID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: owner already has a business: %w", op, models.ErrAlreadyExists)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	duration := in.AppointmentDuration
	if duration == 0 {
		duration = models.DefaultAppointmentDuration
	}
	services := in.Services
	if services == nil {
		services = []string{}
	}
	b := &models.Business{
		UID:                 uuid.NewString(),
		OwnerUID:            owner.UID,
		Name:                in.Name,
		Description:         in.Description,
		Category:            in.Category,
		Island:              in.Island,
		Address:             in.Address,
		Phone:               in.Phone,
		Email:               in.Email,
		Website:             in.Website,
		BusinessHours:       in.BusinessHours,
		Services:            services,
		Photos:              []string{},
		LicenseNumber:       in.LicenseNumber,
		Status:              models.ModerationPending,
		SubscriptionStatus:  models.SubscriptionTrial,
		TrialEndDate:        s.now().UTC().Add(s.trialPeriod),
		AcceptsAppointments: in.AcceptsAppointments,
		AppointmentDuration: duration,
	}
	if err := s.repo.CreateBusiness(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%s: owner already has a business: %w", op, models.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("business created", slog.String("uid", b.UID), slog.String("owner", owner.UID))
	return b, nil
}

// Get возвращает профиль по UID в любом статусе, сначала из кэша.
func (s *Service) Get(ctx context.Context, uid string) (*models.Business, error) {
	const op = "business.Get"
	key := cache.BusinessKey(uid)
	var cached models.Business
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read business from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	b, err := s.repo.GetBusiness(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, key, b, 0); err != nil {
		s.log.Warn("failed to cache business", slog.String("key", key), sl.Err(err))
	}
	return b, nil
}

// List возвращает профили по фильтру. По умолчанию только одобренные,
// статус подписки на видимость не влияет.
func (s *Service) List(ctx context.Context, f models.BusinessFilter) ([]*models.Business, error) {
	const op = "business.List"
	if f.Status == "" {
		f.Status = models.ModerationApproved
	}
	if !f.Status.Valid() {
		return nil, models.ValidationError("unknown status " + string(f.Status))
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	list, err := s.repo.ListBusinesses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Pending возвращает профили, ожидающие модерации.
func (s *Service) Pending(ctx context.Context) ([]*models.Business, error) {
	return s.List(ctx, models.BusinessFilter{Status: models.ModerationPending, Limit: maxListLimit})
}

// Mine возвращает профиль владельца.
func (s *Service) Mine(ctx context.Context, ownerUID string) (*models.Business, error) {
	const op = "business.Mine"
	b, err := s.repo.GetBusinessByOwner(ctx, ownerUID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// UploadPhoto загружает фотографию и добавляет её URL в профиль.
// Загружать может только владелец профиля.
func (s *Service) UploadPhoto(ctx context.Context, caller *models.Account, businessUID, filename string, file io.Reader) (*models.Business, error) {
	const op = "business.UploadPhoto"
	b, err := s.repo.GetBusiness(ctx, businessUID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if b.OwnerUID != caller.UID {
		return nil, models.ErrForbidden
	}

	url, err := s.images.Upload(ctx, "businesses/"+b.UID, filename, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := s.repo.AddBusinessPhoto(ctx, b.UID, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, b.UID)
	return updated, nil
}

// Approve публикует профиль в каталоге.
func (s *Service) Approve(ctx context.Context, uid string) (*models.Business, error) {
	return s.moderate(ctx, uid, models.ModerationApproved)
}

// Reject отклоняет профиль.
func (s *Service) Reject(ctx context.Context, uid string) (*models.Business, error) {
	return s.moderate(ctx, uid, models.ModerationRejected)
}

// Suspend снимает профиль с публикации.
func (s *Service) Suspend(ctx context.Context, uid string) (*models.Business, error) {
	return s.moderate(ctx, uid, models.ModerationSuspended)
}

func (s *Service) moderate(ctx context.Context, uid string, status models.ModerationStatus) (*models.Business, error) {
	const op = "business.moderate"
	b, err := s.repo.SetBusinessStatus(ctx, uid, status)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, uid)
	s.mailer.Enqueue(mailer.BusinessStatusEmail(b.Email, b.Name, status))
	s.log.Info("business moderated", slog.String("uid", uid), slog.String("status", string(status)))
	return b, nil
}

func (s *Service) invalidate(ctx context.Context, uid string) {
	key := cache.BusinessKey(uid)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", key), sl.Err(err))
	}
}
