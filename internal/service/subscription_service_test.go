package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/payment"
)

type checkoutMock struct{ mock.Mock }

func (m *checkoutMock) CreateSession(ctx context.Context, userID string) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *checkoutMock) ParseWebhook(payload []byte, signature string) (payment.CardPaymentEvent, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(payment.CardPaymentEvent), args.Error(1)
}

type subscriptionFixture struct {
	users    memUsers
	checkout *checkoutMock
	metrics  *countingMetrics
	service  *SubscriptionService
	events   *[]events.Event
}

func newSubscriptionFixture(checkout CheckoutProvider) *subscriptionFixture {
	store := newMemStore()
	users := memUsers{store}
	metrics := &countingMetrics{}
	dispatcher := events.NewInMemoryDispatcher()
	published := []events.Event{}
	dispatcher.Subscribe(events.EventSubscriptionActivated, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	gate := payment.NewGate(payment.GateDependencies{
		Users:      users,
		OnActivate: NewActivationListener(dispatcher, metrics, nil),
	})
	f := &subscriptionFixture{users: users, metrics: metrics, events: &published}
	if m, ok := checkout.(*checkoutMock); ok {
		f.checkout = m
	}
	f.service = NewSubscriptionService(SubscriptionDependencies{
		UserRepo: users,
		Gate:     gate,
		Checkout: checkout,
		Bitcoin:  config.BitcoinConfig{Address: "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh", Price: 0.001},
		Clock:    func() time.Time { return time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC) },
	})
	return f
}

func (f *subscriptionFixture) addUser(t *testing.T, u domain.User) string {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &u))
	return u.ID
}

func TestSubscriptionCheck(t *testing.T) {
	f := newSubscriptionFixture(nil)
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	tests := []struct {
		name string
		user domain.User
		want SubscriptionStatus
	}{
		{"never posted", domain.User{Username: "a"}, SubscriptionStatus{}},
		{"posted today", domain.User{Username: "b", LastPostDate: &today, PostCount: 1}, SubscriptionStatus{LimitReached: true}},
		{"posted yesterday", domain.User{Username: "c", LastPostDate: &yesterday, PostCount: 1}, SubscriptionStatus{}},
		{"subscribed", domain.User{Username: "d", LastPostDate: &today, PostCount: 3, SubscriptionActive: true}, SubscriptionStatus{SubscriptionActive: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := f.addUser(t, tt.user)
			got, err := f.service.Check(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := f.service.Check(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestVerifyBitcoin(t *testing.T) {
	f := newSubscriptionFixture(nil)
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := f.addUser(t, domain.User{Username: "btc", LastPostDate: &today, PostCount: 1})

	assert.ErrorIs(t, f.service.VerifyBitcoin(context.Background(), id, ""), domain.ErrTransactionIDRequired)
	assert.ErrorIs(t, f.service.VerifyBitcoin(context.Background(), id, "short"), domain.ErrInvalidReference)

	require.NoError(t, f.service.VerifyBitcoin(context.Background(), id, "abc123xyz9"))
	u, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, u.SubscriptionActive)
	assert.Zero(t, u.PostCount)
	assert.Equal(t, []domain.PaymentSource{domain.PaymentSourceCrypto}, f.metrics.activations)
	require.Len(t, *f.events, 1)
	assert.Equal(t, id, (*f.events)[0].UserID)

	assert.ErrorIs(t, f.service.VerifyBitcoin(context.Background(), id, "abc123xyz9"), domain.ErrAlreadySubscribed)

	info := f.service.BitcoinInfo()
	assert.Equal(t, "BTC", info.Currency)
	assert.InDelta(t, 0.001, info.Amount, 1e-12)
}

func TestHandleWebhook(t *testing.T) {
	checkout := &checkoutMock{}
	f := newSubscriptionFixture(checkout)
	id := f.addUser(t, domain.User{Username: "card"})

	checkout.On("ParseWebhook", []byte("ok"), "sig").
		Return(payment.CardPaymentEvent{Type: payment.CheckoutCompletedEvent, ClientReferenceID: id}, nil).Twice()
	checkout.On("ParseWebhook", []byte("bad"), "sig").
		Return(payment.CardPaymentEvent{}, payment.ErrInvalidSignature).Once()

	outcome, err := f.service.HandleWebhook(context.Background(), []byte("ok"), "sig")
	require.NoError(t, err)
	assert.Equal(t, payment.CardActivated, outcome)

	outcome, err = f.service.HandleWebhook(context.Background(), []byte("ok"), "sig")
	require.NoError(t, err)
	assert.Equal(t, payment.CardAlreadyActive, outcome)

	_, err = f.service.HandleWebhook(context.Background(), []byte("bad"), "sig")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	assert.Equal(t, []domain.PaymentSource{domain.PaymentSourceCard}, f.metrics.activations)
	checkout.AssertExpectations(t)
}

func TestCreateSession(t *testing.T) {
	checkout := &checkoutMock{}
	f := newSubscriptionFixture(checkout)
	id := f.addUser(t, domain.User{Username: "buyer"})

	checkout.On("CreateSession", mock.Anything, id).
		Return(&payment.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil).Once()

	sess, err := f.service.CreateSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)

	_, err = f.service.CreateSession(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	checkout.AssertExpectations(t)

	disabled := newSubscriptionFixture(nil)
	_, err = disabled.service.CreateSession(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrCardPaymentsDisabled)
	_, err = disabled.service.HandleWebhook(context.Background(), nil, "")
	assert.ErrorIs(t, err, domain.ErrCardPaymentsDisabled)
}
