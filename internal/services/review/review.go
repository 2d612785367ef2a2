// Package review реализует отзывы о бизнесах и пересчёт рейтинга.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/direct-tree/internal/cache"
	"github.com/magabrotheeeer/direct-tree/internal/lib/profanity"
	"github.com/magabrotheeeer/direct-tree/internal/lib/rating"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Repository определяет методы хранилища отзывов.
type Repository interface {
	GetBusiness(ctx context.Context, uid string) (*models.Business, error)
	CreateReview(ctx context.Context, r *models.Review) error
	ListReviews(ctx context.Context, businessUID string, approvedOnly bool, skip, limit int) ([]*models.Review, error)
	ListPendingReviews(ctx context.Context) ([]*models.Review, error)
	ApproveReview(ctx context.Context, uid string) (*models.Review, error)
	ApprovedRatings(ctx context.Context, businessUID string) ([]int, error)
	UpdateBusinessRating(ctx context.Context, uid string, average float64, count int) error
}

// Invalidator сбрасывает закэшированную карточку бизнеса.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Service бизнес-логика отзывов.
type Service struct {
	repo   Repository
	cache  Invalidator
	filter *profanity.Filter
	log    *slog.Logger
}

// NewService создаёт сервис отзывов.
func NewService(repo Repository, c Invalidator, filter *profanity.Filter, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, filter: filter, log: log}
}

// Create сохраняет отзыв на модерацию с замаскированной бранью.
// У анонимного отзыва нет ссылки на автора, остаётся только отображаемое имя.
func (s *Service) Create(ctx context.Context, author *models.Account, in models.ReviewInput) (*models.Review, error) {
	const op = "review.Create"
	if in.Rating < 1 || in.Rating > 5 {
		return nil, models.ValidationError("rating must be between 1 and 5")
	}
	if strings.TrimSpace(in.Comment) == "" {
		return nil, models.ValidationError("comment is required")
	}
	if _, err := s.repo.GetBusiness(ctx, in.BusinessUID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: business: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r := &models.Review{
		UID:          uuid.NewString(),
		BusinessUID:  in.BusinessUID,
		CustomerName: in.CustomerName,
		Rating:       in.Rating,
		Comment:      s.filter.Mask(in.Comment),
		IsAnonymous:  in.IsAnonymous,
	}
	if !in.IsAnonymous {
		uid := author.UID
		r.AccountUID = &uid
	}
	if err := s.repo.CreateReview(ctx, r); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.recalculate(ctx, r.BusinessUID)
	return r, nil
}

// List возвращает отзывы бизнеса, по умолчанию только одобренные.
func (s *Service) List(ctx context.Context, businessUID string, approvedOnly bool, skip, limit int) ([]*models.Review, error) {
	const op = "review.List"
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := s.repo.ListReviews(ctx, businessUID, approvedOnly, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Pending возвращает отзывы, ожидающие модерации.
func (s *Service) Pending(ctx context.Context) ([]*models.Review, error) {
	const op = "review.Pending"
	list, err := s.repo.ListPendingReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Approve одобряет отзыв и пересчитывает рейтинг бизнеса.
func (s *Service) Approve(ctx context.Context, uid string) (*models.Review, error) {
	const op = "review.Approve"
	r, err := s.repo.ApproveReview(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.recalculate(ctx, r.BusinessUID)
	return r, nil
}

// recalculate обновляет рейтинг по одобренным отзывам. Без одобренных
// отзывов рейтинг не трогается. Ошибка только логируется: отзыв уже сохранён.
func (s *Service) recalculate(ctx context.Context, businessUID string) {
	log := s.log.With(slog.String("business", businessUID))
	ratings, err := s.repo.ApprovedRatings(ctx, businessUID)
	if err != nil {
		log.Error("failed to load ratings", sl.Err(err))
		return
	}
	if len(ratings) == 0 {
		return
	}
	summary := rating.Average(ratings)
	if err := s.repo.UpdateBusinessRating(ctx, businessUID, summary.Average, summary.Count); err != nil {
		log.Error("failed to update rating", sl.Err(err))
		return
	}
	if err := s.cache.Invalidate(ctx, cache.BusinessKey(businessUID)); err != nil {
		log.Warn("failed to invalidate cache", sl.Err(err))
	}
}
