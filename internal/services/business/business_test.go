package business

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateBusiness(ctx context.Context, b *models.Business) error {
	return m.Called(ctx, b).Error(0)
}

func (m *RepoMock) GetBusiness(ctx context.Context, uid string) (*models.Business, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *RepoMock) GetBusinessByOwner(ctx context.Context, ownerUID string) (*models.Business, error) {
	args := m.Called(ctx, ownerUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *RepoMock) ListBusinesses(ctx context.Context, f models.BusinessFilter) ([]*models.Business, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Business), args.Error(1)
}

func (m *RepoMock) SetBusinessStatus(ctx context.Context, uid string, status models.ModerationStatus) (*models.Business, error) {
	args := m.Called(ctx, uid, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *RepoMock) AddBusinessPhoto(ctx context.Context, uid, url string) (*models.Business, error) {
	args := m.Called(ctx, uid, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type ImageStoreMock struct{ mock.Mock }

func (m *ImageStoreMock) Upload(ctx context.Context, subfolder, filename string, file io.Reader) (string, error) {
	args := m.Called(ctx, subfolder, filename, file)
	return args.String(0), args.Error(1)
}

type mailerSpy struct{ sent []models.Email }

func (m *mailerSpy) Enqueue(email models.Email) { m.sent = append(m.sent, email) }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	repo   *RepoMock
	cache  *CacheMock
	images *ImageStoreMock
	mail   *mailerSpy
}

func newFixture() *fixture {
	f := &fixture{repo: new(RepoMock), cache: new(CacheMock), images: new(ImageStoreMock), mail: &mailerSpy{}}
	f.svc = NewService(f.repo, f.cache, f.images, f.mail, 7*24*time.Hour, sl.Discard())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func notFound() error {
	return errors.Join(errors.New("storage"), repository.ErrNotFound)
}

func validInput() models.BusinessInput {
	return models.BusinessInput{
		Name:          "Conch Shack",
		Description:   "Fresh conch salad",
		Category:      "Restaurant",
		Island:        "New Providence",
		Address:       "Arawak Cay",
		Phone:         "+1 242 555 0100",
		Email:         "hello@conch.bs",
		LicenseNumber: "LIC-1",
	}
}

var owner = &models.Account{UID: "owner-1", Role: models.RoleBusinessOwner}

func TestService_Create(t *testing.T) {
	f := newFixture()
	f.repo.On("GetBusinessByOwner", mock.Anything, "owner-1").Return(nil, notFound())
	f.repo.On("CreateBusiness", mock.Anything, mock.MatchedBy(func(b *models.Business) bool {
		return b.OwnerUID == "owner-1" &&
			b.Status == models.ModerationPending &&
			b.SubscriptionStatus == models.SubscriptionTrial &&
			b.TrialEndDate.Equal(fixedNow.Add(7*24*time.Hour)) &&
			b.AppointmentDuration == models.DefaultAppointmentDuration
	})).Return(nil)

	b, err := f.svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, b.UID)
	assert.Equal(t, []string{}, b.Photos)
	f.repo.AssertExpectations(t)
}

func TestService_Create_OnePerOwner(t *testing.T) {
	f := newFixture()
	f.repo.On("GetBusinessByOwner", mock.Anything, "owner-1").Return(&models.Business{UID: "b1"}, nil).Once()

	_, err := f.svc.Create(context.Background(), owner, validInput())
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	f.repo.On("GetBusinessByOwner", mock.Anything, "owner-1").Return(nil, notFound()).Once()
	f.repo.On("CreateBusiness", mock.Anything, mock.Anything).
		Return(errors.Join(errors.New("storage.CreateBusiness"), repository.ErrDuplicate)).Once()

	_, err = f.svc.Create(context.Background(), owner, validInput())
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
}

func TestService_Create_Rejects(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), &models.Account{UID: "c1", Role: models.RoleCustomer}, validInput())
	assert.ErrorIs(t, err, models.ErrForbidden)

	in := validInput()
	in.Island = "Atlantis"
	_, err = f.svc.Create(context.Background(), owner, in)
	assert.ErrorIs(t, err, models.ErrValidation)

	in = validInput()
	in.Category = "Piracy"
	_, err = f.svc.Create(context.Background(), owner, in)
	assert.ErrorIs(t, err, models.ErrValidation)

	f.repo.AssertNotCalled(t, "CreateBusiness", mock.Anything, mock.Anything)
}

func TestService_Get_UsesCache(t *testing.T) {
	f := newFixture()
	f.cache.On("Get", mock.Anything, "business:b1", mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.Business) = models.Business{UID: "b1", Name: "Cached"}
		}).Return(true, nil)

	b, err := f.svc.Get(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "Cached", b.Name)
	f.repo.AssertNotCalled(t, "GetBusiness", mock.Anything, mock.Anything)
}

func TestService_Get_CacheMissAndFailure(t *testing.T) {
	f := newFixture()
	f.cache.On("Get", mock.Anything, "business:b1", mock.Anything).Return(false, errors.New("redis down"))
	f.repo.On("GetBusiness", mock.Anything, "b1").Return(&models.Business{UID: "b1"}, nil)
	f.cache.On("Set", mock.Anything, "business:b1", mock.Anything, time.Duration(0)).Return(errors.New("redis down"))

	b, err := f.svc.Get(context.Background(), "b1")
	require.NoError(t, err, "cache failures never fail a read")
	assert.Equal(t, "b1", b.UID)

	f.cache.On("Get", mock.Anything, "business:missing", mock.Anything).Return(false, nil)
	f.repo.On("GetBusiness", mock.Anything, "missing").Return(nil, notFound())
	_, err = f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_List_Defaults(t *testing.T) {
	f := newFixture()
	f.repo.On("ListBusinesses", mock.Anything, models.BusinessFilter{
		Status: models.ModerationApproved, Island: "Exuma", Limit: defaultListLimit,
	}).Return([]*models.Business{{UID: "b1"}}, nil).Once()
	f.repo.On("ListBusinesses", mock.Anything, models.BusinessFilter{
		Status: models.ModerationApproved, Limit: maxListLimit, Skip: 0,
	}).Return([]*models.Business{}, nil).Once()

	list, err := f.svc.List(context.Background(), models.BusinessFilter{Island: "Exuma"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.List(context.Background(), models.BusinessFilter{Limit: 1000, Skip: -5})
	require.NoError(t, err)

	_, err = f.svc.List(context.Background(), models.BusinessFilter{Status: "hidden"})
	assert.ErrorIs(t, err, models.ErrValidation)
	f.repo.AssertExpectations(t)
}

func TestService_UploadPhoto(t *testing.T) {
	f := newFixture()
	biz := &models.Business{UID: "b1", OwnerUID: "owner-1"}
	f.repo.On("GetBusiness", mock.Anything, "b1").Return(biz, nil)
	f.images.On("Upload", mock.Anything, "businesses/b1", "front.jpg", mock.Anything).
		Return("https://img.test/front.jpg", nil).Once()
	f.repo.On("AddBusinessPhoto", mock.Anything, "b1", "https://img.test/front.jpg").
		Return(&models.Business{UID: "b1", Photos: []string{"https://img.test/front.jpg"}}, nil)
	f.cache.On("Invalidate", mock.Anything, "business:b1").Return(nil)

	b, err := f.svc.UploadPhoto(context.Background(), owner, "b1", "front.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.test/front.jpg"}, b.Photos)

	stranger := &models.Account{UID: "owner-2", Role: models.RoleBusinessOwner}
	_, err = f.svc.UploadPhoto(context.Background(), stranger, "b1", "x.jpg", strings.NewReader("jpeg"))
	assert.ErrorIs(t, err, models.ErrForbidden)
	f.images.AssertNumberOfCalls(t, "Upload", 1)
}

func TestService_UploadPhoto_ProviderFailure(t *testing.T) {
	f := newFixture()
	f.repo.On("GetBusiness", mock.Anything, "b1").Return(&models.Business{UID: "b1", OwnerUID: "owner-1"}, nil)
	f.images.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", models.ProviderError("cloudinary", errors.New("status 500")))

	_, err := f.svc.UploadPhoto(context.Background(), owner, "b1", "x.jpg", strings.NewReader("jpeg"))
	assert.ErrorIs(t, err, models.ErrProvider)
	f.repo.AssertNotCalled(t, "AddBusinessPhoto", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Moderation(t *testing.T) {
	tests := []struct {
		name   string
		call   func(s *Service) (*models.Business, error)
		status models.ModerationStatus
	}{
		{"approve", func(s *Service) (*models.Business, error) { return s.Approve(context.Background(), "b1") }, models.ModerationApproved},
		{"reject", func(s *Service) (*models.Business, error) { return s.Reject(context.Background(), "b1") }, models.ModerationRejected},
		{"suspend", func(s *Service) (*models.Business, error) { return s.Suspend(context.Background(), "b1") }, models.ModerationSuspended},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.repo.On("SetBusinessStatus", mock.Anything, "b1", tt.status).
				Return(&models.Business{UID: "b1", Name: "Conch Shack", Email: "hello@conch.bs", Status: tt.status}, nil)
			f.cache.On("Invalidate", mock.Anything, "business:b1").Return(nil).Once()

			b, err := tt.call(f.svc)
			require.NoError(t, err)
			assert.Equal(t, tt.status, b.Status)
			require.Len(t, f.mail.sent, 1)
			assert.Equal(t, "hello@conch.bs", f.mail.sent[0].To)
			f.cache.AssertExpectations(t)
		})
	}
}

func TestService_Moderation_NotFound(t *testing.T) {
	f := newFixture()
	f.repo.On("SetBusinessStatus", mock.Anything, "nope", models.ModerationApproved).Return(nil, notFound())

	_, err := f.svc.Approve(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, f.mail.sent)
}
