package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/providers/paypal"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
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

func (m *RepoMock) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *RepoMock) subscription(args mock.Arguments) (*models.Subscription, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) GetOpenSubscription(ctx context.Context, accountUID string) (*models.Subscription, error) {
	return m.subscription(m.Called(ctx, accountUID))
}

func (m *RepoMock) GetLatestSubscription(ctx context.Context, accountUID string) (*models.Subscription, error) {
	return m.subscription(m.Called(ctx, accountUID))
}

func (m *RepoMock) GetSubscriptionByToken(ctx context.Context, token string) (*models.Subscription, error) {
	return m.subscription(m.Called(ctx, token))
}

func (m *RepoMock) GetSubscriptionByAgreement(ctx context.Context, agreementID string) (*models.Subscription, error) {
	return m.subscription(m.Called(ctx, agreementID))
}

func (m *RepoMock) ListReconcilable(ctx context.Context) ([]*models.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *RepoMock) TransitionSubscription(ctx context.Context, t repository.Transition) (*models.Subscription, error) {
	return m.subscription(m.Called(ctx, t))
}

type ProviderMock struct{ mock.Mock }

func (m *ProviderMock) CreateAgreement(ctx context.Context, businessName string, startAt time.Time) (*paypal.Agreement, error) {
	args := m.Called(ctx, businessName, startAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Agreement), args.Error(1)
}

func (m *ProviderMock) ExecuteAgreement(ctx context.Context, token string) (*paypal.ExecutedAgreement, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.ExecutedAgreement), args.Error(1)
}

func (m *ProviderMock) GetAgreement(ctx context.Context, agreementID string) (*paypal.ExecutedAgreement, error) {
	args := m.Called(ctx, agreementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.ExecutedAgreement), args.Error(1)
}

func (m *ProviderMock) CancelAgreement(ctx context.Context, agreementID, note string) error {
	return m.Called(ctx, agreementID, note).Error(0)
}

type nopCache struct{}

func (nopCache) Invalidate(context.Context, string) error { return nil }

type mailerSpy struct{ sent []models.Email }

func (m *mailerSpy) Enqueue(email models.Email) { m.sent = append(m.sent, email) }

var (
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	owner    = &models.Account{UID: "owner-1", Email: "owner@conch.bs", FirstName: "Ann", Role: models.RoleBusinessOwner}
	biz      = &models.Business{UID: "b1", OwnerUID: "owner-1", Name: "Conch Shack", TrialEndDate: fixedNow.Add(7 * 24 * time.Hour)}
)

type fixture struct {
	svc      *Service
	repo     *RepoMock
	provider *ProviderMock
	mail     *mailerSpy
}

func newFixture() *fixture {
	f := &fixture{repo: new(RepoMock), provider: new(ProviderMock), mail: &mailerSpy{}}
	f.svc = NewService(f.repo, f.provider, nopCache{}, f.mail, "P-PLAN", sl.Discard())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func notFound() error {
	return errors.Join(errors.New("storage"), repository.ErrNotFound)
}

func agreementID(s string) *string { return &s }

func TestService_Create(t *testing.T) {
	f := newFixture()
	f.repo.On("GetOpenSubscription", mock.Anything, "owner-1").Return(nil, notFound())
	f.repo.On("GetBusinessByOwner", mock.Anything, "owner-1").Return(biz, nil)
	f.provider.On("CreateAgreement", mock.Anything, "Conch Shack", biz.TrialEndDate).
		Return(&paypal.Agreement{Token: "EC-1", ApprovalURL: "https://paypal.test/approve?token=EC-1"}, nil)
	f.repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.Status == models.SubscriptionTrial &&
			s.ProviderToken == "EC-1" &&
			s.PlanID == "P-PLAN" &&
			s.Amount.Equal(models.DefaultSubscriptionAmount) &&
			s.Currency == "USD"
	})).Return(nil)

	sub, err := f.svc.Create(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "https://paypal.test/approve?token=EC-1", sub.ApprovalURL)
	f.repo.AssertExpectations(t)
	f.provider.AssertExpectations(t)
}

func TestService_Create_BillingStartsInFutureAfterTrial(t *testing.T) {
	f := newFixture()
	expired := &models.Business{UID: "b1", Name: "Conch Shack", TrialEndDate: fixedNow.Add(-time.Hour)}
	f.repo.On("GetOpenSubscription", mock.Anything, "owner-1").Return(nil, notFound())
	f.repo.On("GetBusinessByOwner", mock.Anything, "owner-1").Return(expired, nil)
	f.provider.On("CreateAgreement", mock.Anything, "Conch Shack", fixedNow.Add(minBillingDelay)).
		Return(&paypal.Agreement{Token: "EC-2"}, nil)
	f.repo.On("CreateSubscription", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Create(context.Background(), owner)
	require.NoError(t, err)
	f.provider.AssertExpectations(t)
}

func TestService_Create_AlreadySubscribedBeforeProvider(t *testing.T) {
	f := newFixture()
	f.repo.On("GetOpenSubscription", mock.Anything, "owner-1").
		Return(&models.Subscription{ID: 1, Status: models.SubscriptionActive}, nil)

	_, err := f.svc.Create(context.Background(), owner)
	assert.ErrorIs(t, err, models.ErrAlreadySubscribed)
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
	f.provider.AssertNotCalled(t, "CreateAgreement", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Create_ProviderFailureLeavesNoRecord(t *testing.T) {
	f := newFixture()
	f.repo.On("GetOpenSubscription", mock.Anything, "owner-1").Return(nil, notFound())
	f.repo.On("GetBusinessByOwner", mock.Anything, "owner-1").Return(biz, nil)
	f.provider.On("CreateAgreement", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, models.ProviderError("paypal", errors.New("status 503")))

	_, err := f.svc.Create(context.Background(), owner)
	assert.ErrorIs(t, err, models.ErrProvider)
	f.repo.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
}

func TestService_Create_Rejects(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), &models.Account{UID: "c1", Role: models.RoleCustomer})
	assert.ErrorIs(t, err, models.ErrForbidden)

	f.repo.On("GetOpenSubscription", mock.Anything, "owner-1").Return(nil, notFound())
	f.repo.On("GetBusinessByOwner", mock.Anything, "owner-1").Return(nil, notFound())
	_, err = f.svc.Create(context.Background(), owner)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_Execute_Activates(t *testing.T) {
	f := newFixture()
	next := fixedNow.AddDate(0, 1, 0)
	trial := &models.Subscription{ID: 7, AccountUID: "owner-1", BusinessUID: "b1", Status: models.SubscriptionTrial}
	f.repo.On("GetSubscriptionByToken", mock.Anything, "EC-1").Return(trial, nil)
	f.provider.On("ExecuteAgreement", mock.Anything, "EC-1").
		Return(&paypal.ExecutedAgreement{ID: "I-AGR", State: paypal.StateActive, NextBillingDate: &next}, nil)
	f.repo.On("TransitionSubscription", mock.Anything, repository.Transition{
		ID: 7, From: models.SubscriptionTrial, To: models.SubscriptionActive,
		AgreementID: agreementID("I-AGR"), NextBillingDate: &next,
	}).Return(&models.Subscription{ID: 7, AccountUID: "owner-1", BusinessUID: "b1",
		Status: models.SubscriptionActive, ProviderAgreementID: agreementID("I-AGR")}, nil)
	f.repo.On("GetAccount", mock.Anything, "owner-1").Return(owner, nil)
	f.repo.On("GetBusiness", mock.Anything, "b1").Return(biz, nil)

	sub, err := f.svc.Execute(context.Background(), owner, "EC-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "owner@conch.bs", f.mail.sent[0].To)
}

func TestService_Execute_Errors(t *testing.T) {
	t.Run("foreign token", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetSubscriptionByToken", mock.Anything, "EC-1").
			Return(&models.Subscription{ID: 7, AccountUID: "someone-else", Status: models.SubscriptionTrial}, nil)
		_, err := f.svc.Execute(context.Background(), owner, "EC-1")
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
	t.Run("cancelled is terminal", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetSubscriptionByToken", mock.Anything, "EC-1").
			Return(&models.Subscription{ID: 7, AccountUID: "owner-1", Status: models.SubscriptionCancelled}, nil)
		_, err := f.svc.Execute(context.Background(), owner, "EC-1")
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		f.provider.AssertNotCalled(t, "ExecuteAgreement", mock.Anything, mock.Anything)
	})
	t.Run("provider failure leaves state untouched", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetSubscriptionByToken", mock.Anything, "EC-1").
			Return(&models.Subscription{ID: 7, AccountUID: "owner-1", Status: models.SubscriptionTrial}, nil)
		f.provider.On("ExecuteAgreement", mock.Anything, "EC-1").
			Return(nil, models.ProviderError("paypal", errors.New("timeout")))
		_, err := f.svc.Execute(context.Background(), owner, "EC-1")
		assert.ErrorIs(t, err, models.ErrProvider)
		f.repo.AssertNotCalled(t, "TransitionSubscription", mock.Anything, mock.Anything)
	})
	t.Run("unknown token", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetSubscriptionByToken", mock.Anything, "nope").Return(nil, notFound())
		_, err := f.svc.Execute(context.Background(), owner, "nope")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestService_Cancel(t *testing.T) {
	f := newFixture()
	active := &models.Subscription{ID: 7, AccountUID: "owner-1", BusinessUID: "b1",
		Status: models.SubscriptionActive, ProviderAgreementID: agreementID("I-AGR")}
	f.repo.On("GetOpenSubscription", mock.Anything, "owner-1").Return(active, nil)
	f.provider.On("CancelAgreement", mock.Anything, "I-AGR", mock.Anything).Return(nil)
	f.repo.On("TransitionSubscription", mock.Anything, repository.Transition{
		ID: 7, From: models.SubscriptionActive, To: models.SubscriptionCancelled,
	}).Return(&models.Subscription{ID: 7, BusinessUID: "b1", Status: models.SubscriptionCancelled}, nil)

	sub, err := f.svc.Cancel(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)
}

func TestService_Cancel_ProviderFailure(t *testing.T) {
	f := newFixture()
	f.repo.On("GetOpenSubscription", mock.Anything, "owner-1").Return(&models.Subscription{
		ID: 7, Status: models.SubscriptionActive, ProviderAgreementID: agreementID("I-AGR")}, nil)
	f.provider.On("CancelAgreement", mock.Anything, "I-AGR", mock.Anything).
		Return(models.ProviderError("paypal", errors.New("status 500")))

	_, err := f.svc.Cancel(context.Background(), owner)
	assert.ErrorIs(t, err, models.ErrProvider)
	f.repo.AssertNotCalled(t, "TransitionSubscription", mock.Anything, mock.Anything)
}

func TestService_Cancel_UnexecutedTrialSkipsProvider(t *testing.T) {
	f := newFixture()
	f.repo.On("GetOpenSubscription", mock.Anything, "owner-1").
		Return(&models.Subscription{ID: 7, BusinessUID: "b1", Status: models.SubscriptionTrial}, nil)
	f.repo.On("TransitionSubscription", mock.Anything, mock.Anything).
		Return(&models.Subscription{ID: 7, BusinessUID: "b1", Status: models.SubscriptionCancelled}, nil)

	_, err := f.svc.Cancel(context.Background(), owner)
	require.NoError(t, err)
	f.provider.AssertNotCalled(t, "CancelAgreement", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Status_IsLocal(t *testing.T) {
	f := newFixture()
	f.repo.On("GetLatestSubscription", mock.Anything, "owner-1").
		Return(&models.Subscription{ID: 7, Status: models.SubscriptionPastDue}, nil)

	sub, err := f.svc.Status(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPastDue, sub.Status)
	f.provider.AssertNotCalled(t, "GetAgreement", mock.Anything, mock.Anything)
}

func TestService_HandleWebhook(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		current   models.SubscriptionStatus
		want      models.SubscriptionStatus
		applied   bool
	}{
		{"activated from trial", paypal.EventAgreementActivated, models.SubscriptionTrial, models.SubscriptionActive, true},
		{"payment failed", paypal.EventPaymentFailed, models.SubscriptionActive, models.SubscriptionPastDue, true},
		{"payment recovers", paypal.EventPaymentCompleted, models.SubscriptionPastDue, models.SubscriptionActive, true},
		{"suspended", paypal.EventAgreementSuspended, models.SubscriptionActive, models.SubscriptionPastDue, true},
		{"cancelled", paypal.EventAgreementCancelled, models.SubscriptionPastDue, models.SubscriptionCancelled, true},
		{"expired", paypal.EventAgreementExpired, models.SubscriptionActive, models.SubscriptionCancelled, true},
		{"illegal trial to past_due ignored", paypal.EventPaymentFailed, models.SubscriptionTrial, "", false},
		{"terminal ignored", paypal.EventAgreementActivated, models.SubscriptionCancelled, "", false},
		{"duplicate delivery ignored", paypal.EventAgreementActivated, models.SubscriptionActive, "", false},
		{"created event ignored", paypal.EventAgreementCreated, models.SubscriptionTrial, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			sub := &models.Subscription{ID: 7, AccountUID: "owner-1", BusinessUID: "b1", Status: tt.current}
			f.repo.On("GetSubscriptionByAgreement", mock.Anything, "I-AGR").Return(sub, nil)
			f.repo.On("TransitionSubscription", mock.Anything, repository.Transition{ID: 7, From: tt.current, To: tt.want}).
				Return(&models.Subscription{ID: 7, AccountUID: "owner-1", BusinessUID: "b1", Status: tt.want}, nil)
			f.repo.On("GetAccount", mock.Anything, "owner-1").Return(owner, nil)
			f.repo.On("GetBusiness", mock.Anything, "b1").Return(biz, nil)

			event := &paypal.WebhookEvent{ID: "WH-1", EventType: tt.eventType}
			event.Resource.ID = "I-AGR"
			require.NoError(t, f.svc.HandleWebhook(context.Background(), event))

			if tt.applied {
				f.repo.AssertCalled(t, "TransitionSubscription", mock.Anything, mock.Anything)
			} else {
				f.repo.AssertNotCalled(t, "TransitionSubscription", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestService_HandleWebhook_UnknownAgreement(t *testing.T) {
	f := newFixture()
	f.repo.On("GetSubscriptionByAgreement", mock.Anything, "I-OTHER").Return(nil, notFound())

	event := &paypal.WebhookEvent{ID: "WH-2", EventType: paypal.EventAgreementCancelled}
	event.Resource.ID = "I-OTHER"
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), event))
}

func TestService_Reconcile(t *testing.T) {
	f := newFixture()
	subs := []*models.Subscription{
		{ID: 1, BusinessUID: "b1", Status: models.SubscriptionActive, ProviderAgreementID: agreementID("I-1")},
		{ID: 2, BusinessUID: "b2", Status: models.SubscriptionActive, ProviderAgreementID: agreementID("I-2")},
		{ID: 3, BusinessUID: "b3", Status: models.SubscriptionPastDue, ProviderAgreementID: agreementID("I-3")},
		{ID: 4, BusinessUID: "b4", Status: models.SubscriptionTrial, ProviderAgreementID: agreementID("I-4")},
	}
	f.repo.On("ListReconcilable", mock.Anything).Return(subs, nil)
	f.provider.On("GetAgreement", mock.Anything, "I-1").Return(&paypal.ExecutedAgreement{ID: "I-1", State: paypal.StateSuspended}, nil)
	f.provider.On("GetAgreement", mock.Anything, "I-2").Return(&paypal.ExecutedAgreement{ID: "I-2", State: paypal.StateActive}, nil)
	f.provider.On("GetAgreement", mock.Anything, "I-3").Return(nil, models.ProviderError("paypal", errors.New("boom")))
	f.provider.On("GetAgreement", mock.Anything, "I-4").Return(&paypal.ExecutedAgreement{ID: "I-4", State: paypal.StateSuspended}, nil)
	f.repo.On("TransitionSubscription", mock.Anything, repository.Transition{ID: 1, From: models.SubscriptionActive, To: models.SubscriptionPastDue}).
		Return(&models.Subscription{ID: 1, BusinessUID: "b1", Status: models.SubscriptionPastDue}, nil).Once()

	changed, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	f.repo.AssertNumberOfCalls(t, "TransitionSubscription", 1)
}

func TestService_Reconcile_ConcurrentChangeSkipped(t *testing.T) {
	f := newFixture()
	f.repo.On("ListReconcilable", mock.Anything).Return([]*models.Subscription{
		{ID: 1, BusinessUID: "b1", Status: models.SubscriptionActive, ProviderAgreementID: agreementID("I-1")},
	}, nil)
	f.provider.On("GetAgreement", mock.Anything, "I-1").Return(&paypal.ExecutedAgreement{State: paypal.StateCancelled}, nil)
	f.repo.On("TransitionSubscription", mock.Anything, mock.Anything).
		Return(nil, errors.Join(errors.New("storage.TransitionSubscription"), repository.ErrConflict))

	changed, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changed)
}
