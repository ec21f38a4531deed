// Package payment turns external payment assertions into subscription activations.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/lock"
)

// CheckoutCompletedEvent is the only card event type that activates a subscription.
const CheckoutCompletedEvent = "checkout.session.completed"

// UserStore is the slice of the user repository the gate needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// CardPaymentEvent is a verified event from the card processor.
type CardPaymentEvent struct {
	Type              string
	SessionID         string
	ClientReferenceID string
}

// CardOutcome reports what a card confirmation did.
type CardOutcome string

const (
	CardActivated     CardOutcome = "activated"
	CardAlreadyActive CardOutcome = "already_active"
	CardIgnored       CardOutcome = "ignored"
)

// ActivationListener is notified after a subscription is switched on.
type ActivationListener func(ctx context.Context, user *domain.User, source domain.PaymentSource)

// Gate validates payment assertions and flips UserAccount.subscriptionActive.
type Gate struct {
	users    UserStore
	locker   lock.Locker
	verifier TransactionVerifier
	logger   *zap.Logger
	onActive ActivationListener
}

// GateDependencies bundles collaborators for the gate.
type GateDependencies struct {
	Users      UserStore
	Locker     lock.Locker
	Verifier   TransactionVerifier
	Logger     *zap.Logger
	OnActivate ActivationListener
}

// NewGate constructs the gate.
func NewGate(deps GateDependencies) *Gate {
	g := &Gate{
		users:    deps.Users,
		locker:   deps.Locker,
		verifier: deps.Verifier,
		logger:   deps.Logger,
		onActive: deps.OnActivate,
	}
	if g.locker == nil {
		g.locker = lock.NewKeyedMutex()
	}
	if g.verifier == nil {
		g.verifier = NewReferencePolicy(DefaultMinReferenceLength)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// ConfirmCardPayment activates the user referenced by a completed checkout.
// Unknown event types, missing references and unknown users are ignored.
// Re-confirming an active subscription is a no-op.
func (g *Gate) ConfirmCardPayment(ctx context.Context, event CardPaymentEvent) (CardOutcome, error) {
	if event.Type != CheckoutCompletedEvent {
		return CardIgnored, nil
	}
	userID := strings.TrimSpace(event.ClientReferenceID)
	if userID == "" {
		g.logger.Warn("checkout completed without client reference", zap.String("session_id", event.SessionID))
		return CardIgnored, nil
	}

	unlock, err := g.locker.Lock(ctx, lock.UserKey(userID))
	if err != nil {
		return "", fmt.Errorf("lock user %s: %w", userID, err)
	}
	defer unlock()

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			g.logger.Warn("checkout completed for unknown user", zap.String("user_id", userID))
			return CardIgnored, nil
		}
		return "", err
	}
	if user.SubscriptionActive {
		return CardAlreadyActive, nil
	}

	user.SubscriptionActive = true
	if err := g.users.Update(ctx, user); err != nil {
		return "", err
	}
	g.activated(ctx, user, domain.PaymentSourceCard)
	return CardActivated, nil
}

// ConfirmCryptoPayment verifies a transaction reference and activates userID.
// On success the daily post counter is reset as well.
func (g *Gate) ConfirmCryptoPayment(ctx context.Context, referenceID, userID string) error {
	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return domain.ErrTransactionIDRequired
	}

	unlock, err := g.locker.Lock(ctx, lock.UserKey(userID))
	if err != nil {
		return fmt.Errorf("lock user %s: %w", userID, err)
	}
	defer unlock()

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.SubscriptionActive {
		return domain.ErrAlreadySubscribed
	}

	ok, err := g.verifier.Verify(ctx, referenceID, user.ID)
	if err != nil {
		return fmt.Errorf("verify transaction: %w", err)
	}
	if !ok {
		return domain.ErrInvalidReference
	}

	user.SubscriptionActive = true
	user.PostCount = 0
	if err := g.users.Update(ctx, user); err != nil {
		return err
	}
	g.activated(ctx, user, domain.PaymentSourceCrypto)
	return nil
}

func (g *Gate) activated(ctx context.Context, user *domain.User, source domain.PaymentSource) {
	g.logger.Info("subscription activated",
		zap.String("user_id", user.ID),
		zap.String("source", string(source)))
	if g.onActive != nil {
		g.onActive(ctx, user, source)
	}
}
