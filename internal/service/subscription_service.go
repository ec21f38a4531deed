package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/entitlement"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/payment"
	"github.com/spec-kit/blog-service/internal/repository"
)

// CheckoutProvider opens card checkouts and verifies processor callbacks.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, userID string) (*payment.CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (payment.CardPaymentEvent, error)
}

// SubscriptionMetrics receives activations.
type SubscriptionMetrics interface {
	SubscriptionActivated(source domain.PaymentSource)
}

// SubscriptionStatus is the caller's entitlement snapshot.
type SubscriptionStatus struct {
	LimitReached       bool
	SubscriptionActive bool
}

// BitcoinInfo holds the static crypto payment instructions.
type BitcoinInfo struct {
	Address  string
	Amount   float64
	Currency string
}

// SubscriptionService exposes entitlement status and the payment entry points.
type SubscriptionService struct {
	users     repository.UserRepository
	evaluator *entitlement.Evaluator
	gate      *payment.Gate
	checkout  CheckoutProvider
	bitcoin   config.BitcoinConfig
	logger    *zap.Logger
	now       func() time.Time
}

// SubscriptionDependencies bundles collaborators for the subscription service.
type SubscriptionDependencies struct {
	UserRepo  repository.UserRepository
	Evaluator *entitlement.Evaluator
	Gate      *payment.Gate
	Checkout  CheckoutProvider
	Bitcoin   config.BitcoinConfig
	Logger    *zap.Logger
	Clock     func() time.Time
}

// NewSubscriptionService constructs the service. Checkout may be nil when card payments are not configured.
func NewSubscriptionService(deps SubscriptionDependencies) *SubscriptionService {
	s := &SubscriptionService{
		users:     deps.UserRepo,
		evaluator: deps.Evaluator,
		gate:      deps.Gate,
		checkout:  deps.Checkout,
		bitcoin:   deps.Bitcoin,
		logger:    deps.Logger,
		now:       deps.Clock,
	}
	if s.evaluator == nil {
		s.evaluator = entitlement.NewEvaluator(entitlement.DefaultDailyPosts)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Check reports whether userID may post today and whether they are subscribed.
func (s *SubscriptionService) Check(ctx context.Context, userID string) (SubscriptionStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return SubscriptionStatus{}, err
	}
	return SubscriptionStatus{
		LimitReached:       s.evaluator.LimitReached(*user, s.now()),
		SubscriptionActive: user.SubscriptionActive,
	}, nil
}

// CreateSession opens a card checkout for userID.
func (s *SubscriptionService) CreateSession(ctx context.Context, userID string) (*payment.CheckoutSession, error) {
	if s.checkout == nil {
		return nil, domain.ErrCardPaymentsDisabled
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.checkout.CreateSession(ctx, userID)
}

// HandleWebhook verifies a processor callback and forwards it to the card path.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) (payment.CardOutcome, error) {
	if s.checkout == nil {
		return "", domain.ErrCardPaymentsDisabled
	}
	event, err := s.checkout.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.logger.Warn("webhook rejected", zap.Error(err))
			return "", domain.ErrInvalidSignature
		}
		return "", err
	}
	return s.gate.ConfirmCardPayment(ctx, event)
}

// BitcoinInfo returns where and how much to pay.
func (s *SubscriptionService) BitcoinInfo() BitcoinInfo {
	return BitcoinInfo{Address: s.bitcoin.Address, Amount: s.bitcoin.Price, Currency: "BTC"}
}

// VerifyBitcoin runs the crypto confirmation path for userID.
func (s *SubscriptionService) VerifyBitcoin(ctx context.Context, userID, transactionID string) error {
	return s.gate.ConfirmCryptoPayment(ctx, transactionID, userID)
}

// NewActivationListener reports activations to metrics and the event bus.
func NewActivationListener(dispatcher events.Dispatcher, metrics SubscriptionMetrics, logger *zap.Logger) payment.ActivationListener {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, user *domain.User, source domain.PaymentSource) {
		metrics.SubscriptionActivated(source)
		if dispatcher == nil {
			return
		}
		event := events.New(events.EventSubscriptionActivated, user.ID, "",
			events.SubscriptionActivatedPayload{Source: source})
		if err := dispatcher.Publish(ctx, event); err != nil {
			logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
}
