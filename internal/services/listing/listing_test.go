package listing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/providers/paypal"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateListing(ctx context.Context, l *models.Listing) error {
	return m.Called(ctx, l).Error(0)
}

func (m *RepoMock) GetListing(ctx context.Context, uid string) (*models.Listing, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *RepoMock) ListListings(ctx context.Context, kind models.ListingKind, island string, skip, limit int) ([]*models.Listing, error) {
	args := m.Called(ctx, kind, island, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Listing), args.Error(1)
}

func (m *RepoMock) SetListingPayment(ctx context.Context, uid, paymentID string) error {
	return m.Called(ctx, uid, paymentID).Error(0)
}

func (m *RepoMock) MarkListingPaid(ctx context.Context, uid, paymentID string) (*models.Listing, error) {
	args := m.Called(ctx, uid, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

type ProviderMock struct{ mock.Mock }

func (m *ProviderMock) CreateOrder(ctx context.Context, referenceID, description string, amount decimal.Decimal, currency string) (*paypal.Order, error) {
	args := m.Called(ctx, referenceID, description, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Order), args.Error(1)
}

func (m *ProviderMock) CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Order), args.Error(1)
}

var (
	owner    = &models.Account{UID: "owner-1", Role: models.RoleBusinessOwner}
	customer = &models.Account{UID: "cust-1", Role: models.RoleCustomer}
)

func newService() (*Service, *RepoMock, *ProviderMock) {
	repo, provider := new(RepoMock), new(ProviderMock)
	return NewService(repo, provider, sl.Discard()), repo, provider
}

func orderID(s string) *string { return &s }

func TestService_Create(t *testing.T) {
	svc, repo, _ := newService()
	starts := time.Date(2026, 7, 10, 20, 0, 0, 0, time.UTC)
	repo.On("CreateListing", mock.Anything, mock.MatchedBy(func(l *models.Listing) bool {
		return l.Kind == models.ListingEvent && !l.IsPaid && l.Currency == "USD" && l.OwnerUID == "owner-1"
	})).Return(nil)

	l, err := svc.Create(context.Background(), owner, models.ListingEvent, models.ListingInput{
		Title: "Junkanoo", Description: "Parade", Island: "New Providence", Location: "Bay Street",
		StartsAt: &starts, Price: decimal.RequireFromString("25.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, &starts, l.StartsAt)
}

func TestService_Create_Rejects(t *testing.T) {
	svc, repo, _ := newService()
	now := time.Now()
	valid := models.ListingInput{Title: "Villa", Island: "Exuma", AvailableFrom: &now}

	_, err := svc.Create(context.Background(), customer, models.ListingRental, valid)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.Create(context.Background(), owner, models.ListingEvent, valid)
	assert.ErrorIs(t, err, models.ErrValidation, "events need starts_at")

	bad := valid
	bad.Island = "Atlantis"
	_, err = svc.Create(context.Background(), owner, models.ListingRental, bad)
	assert.ErrorIs(t, err, models.ErrValidation)

	bad = valid
	bad.Price = decimal.NewFromInt(-1)
	_, err = svc.Create(context.Background(), owner, models.ListingRental, bad)
	assert.ErrorIs(t, err, models.ErrValidation)

	repo.AssertNotCalled(t, "CreateListing", mock.Anything, mock.Anything)
}

func TestService_Pay(t *testing.T) {
	svc, repo, provider := newService()
	repo.On("GetListing", mock.Anything, "l1").Return(&models.Listing{UID: "l1", OwnerUID: "owner-1", Title: "Villa"}, nil)
	provider.On("CreateOrder", mock.Anything, "l1", "Listing fee: Villa", models.ListingFee, "USD").
		Return(&paypal.Order{ID: "ORDER-1", Status: "CREATED", ApprovalURL: "https://paypal.test/checkout"}, nil)
	repo.On("SetListingPayment", mock.Anything, "l1", "ORDER-1").Return(nil).Once()

	order, err := svc.Pay(context.Background(), owner, "l1")
	require.NoError(t, err)
	assert.Equal(t, "https://paypal.test/checkout", order.ApprovalURL)
	repo.AssertExpectations(t)
}

func TestService_Pay_Rejects(t *testing.T) {
	svc, repo, provider := newService()
	repo.On("GetListing", mock.Anything, "paid").Return(&models.Listing{UID: "paid", OwnerUID: "owner-1", IsPaid: true}, nil)
	repo.On("GetListing", mock.Anything, "other").Return(&models.Listing{UID: "other", OwnerUID: "owner-9"}, nil)
	repo.On("GetListing", mock.Anything, "ghost").Return(nil, errors.Join(errors.New("storage"), repository.ErrNotFound))

	_, err := svc.Pay(context.Background(), owner, "paid")
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
	_, err = svc.Pay(context.Background(), owner, "other")
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.Pay(context.Background(), owner, "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)

	provider.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Execute(t *testing.T) {
	svc, repo, provider := newService()
	repo.On("GetListing", mock.Anything, "l1").
		Return(&models.Listing{UID: "l1", OwnerUID: "owner-1", ProviderPaymentID: orderID("ORDER-1")}, nil)
	provider.On("CaptureOrder", mock.Anything, "ORDER-1").Return(&paypal.Order{ID: "ORDER-1", Status: "COMPLETED"}, nil)
	repo.On("MarkListingPaid", mock.Anything, "l1", "ORDER-1").
		Return(&models.Listing{UID: "l1", IsPaid: true}, nil)

	l, err := svc.Execute(context.Background(), owner, "l1", "ORDER-1")
	require.NoError(t, err)
	assert.True(t, l.IsPaid)

	_, err = svc.Execute(context.Background(), owner, "l1", "ORDER-2")
	assert.ErrorIs(t, err, models.ErrValidation)
	provider.AssertNumberOfCalls(t, "CaptureOrder", 1)
}

func TestService_Execute_ProviderFailure(t *testing.T) {
	svc, repo, provider := newService()
	repo.On("GetListing", mock.Anything, "l1").
		Return(&models.Listing{UID: "l1", OwnerUID: "owner-1", ProviderPaymentID: orderID("ORDER-1")}, nil)
	provider.On("CaptureOrder", mock.Anything, "ORDER-1").Return(nil, models.ProviderError("paypal", errors.New("declined")))

	_, err := svc.Execute(context.Background(), owner, "l1", "ORDER-1")
	assert.ErrorIs(t, err, models.ErrProvider)
	repo.AssertNotCalled(t, "MarkListingPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_List(t *testing.T) {
	svc, repo, _ := newService()
	repo.On("ListListings", mock.Anything, models.ListingRental, "Exuma", 0, defaultListLimit).
		Return([]*models.Listing{{UID: "l1"}}, nil)

	list, err := svc.List(context.Background(), models.ListingRental, "Exuma", -1, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
