// Package listing реализует платные объявления: мероприятия и аренду жилья.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/providers/paypal"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Repository определяет методы хранилища объявлений.
type Repository interface {
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, uid string) (*models.Listing, error)
	ListListings(ctx context.Context, kind models.ListingKind, island string, skip, limit int) ([]*models.Listing, error)
	SetListingPayment(ctx context.Context, uid, paymentID string) error
	MarkListingPaid(ctx context.Context, uid, paymentID string) (*models.Listing, error)
}

// PaymentProvider разовые заказы у платёжного провайдера.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, referenceID, description string, amount decimal.Decimal, currency string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

// Service бизнес-логика объявлений.
type Service struct {
	repo     Repository
	provider PaymentProvider
	log      *slog.Logger
}

// NewService создаёт сервис объявлений.
func NewService(repo Repository, provider PaymentProvider, log *slog.Logger) *Service {
	return &Service{repo: repo, provider: provider, log: log}
}

// Create сохраняет неоплаченное объявление владельца бизнеса или администратора.
func (s *Service) Create(ctx context.Context, caller *models.Account, kind models.ListingKind, in models.ListingInput) (*models.Listing, error) {
	const op = "listing.Create"
	if caller.Role != models.RoleBusinessOwner && caller.Role != models.RoleAdmin {
		return nil, models.ErrForbidden
	}
	if !models.IsIsland(in.Island) {
		return nil, models.ValidationError("unknown island " + in.Island)
	}
	if in.Price.IsNegative() {
		return nil, models.ValidationError("price must not be negative")
	}
	switch kind {
	case models.ListingEvent:
		if in.StartsAt == nil {
			return nil, models.ValidationError("starts_at is required for events")
		}
	case models.ListingRental:
		if in.AvailableFrom == nil {
			return nil, models.ValidationError("available_from is required for rentals")
		}
	default:
		return nil, models.ValidationError("unknown listing kind " + string(kind))
	}

	l := &models.Listing{
		UID:           uuid.NewString(),
		Kind:          kind,
		OwnerUID:      caller.UID,
		Title:         in.Title,
		Description:   in.Description,
		Island:        in.Island,
		Location:      in.Location,
		StartsAt:      in.StartsAt,
		AvailableFrom: in.AvailableFrom,
		Price:         in.Price,
		Currency:      models.DefaultCurrency,
	}
	if err := s.repo.CreateListing(ctx, l); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("listing created", slog.String("uid", l.UID), slog.String("kind", string(kind)))
	return l, nil
}

// List возвращает объявления одного типа, опционально по острову.
func (s *Service) List(ctx context.Context, kind models.ListingKind, island string, skip, limit int) ([]*models.Listing, error) {
	const op = "listing.List"
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := s.repo.ListListings(ctx, kind, island, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Pay создаёт у провайдера заказ на оплату публикации и возвращает его.
// Платить может только автор объявления.
func (s *Service) Pay(ctx context.Context, caller *models.Account, uid string) (*paypal.Order, error) {
	const op = "listing.Pay"
	l, err := s.owned(ctx, op, caller, uid)
	if err != nil {
		return nil, err
	}
	if l.IsPaid {
		return nil, fmt.Errorf("%s: listing already paid: %w", op, models.ErrAlreadyExists)
	}

	order, err := s.provider.CreateOrder(ctx, l.UID, "Listing fee: "+l.Title, models.ListingFee, models.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.SetListingPayment(ctx, l.UID, order.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

// Execute списывает оплату по одобренному заказу и публикует объявление.
func (s *Service) Execute(ctx context.Context, caller *models.Account, uid, orderID string) (*models.Listing, error) {
	const op = "listing.Execute"
	l, err := s.owned(ctx, op, caller, uid)
	if err != nil {
		return nil, err
	}
	if l.ProviderPaymentID == nil || *l.ProviderPaymentID != orderID {
		return nil, models.ValidationError("order does not belong to this listing")
	}
	if l.IsPaid {
		return l, nil
	}

	if _, err := s.provider.CaptureOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	paid, err := s.repo.MarkListingPaid(ctx, uid, orderID)
	if errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("listing paid", slog.String("uid", uid), slog.String("order", orderID))
	return paid, nil
}

func (s *Service) owned(ctx context.Context, op string, caller *models.Account, uid string) (*models.Listing, error) {
	l, err := s.repo.GetListing(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if l.OwnerUID != caller.UID {
		return nil, models.ErrForbidden
	}
	return l, nil
}
