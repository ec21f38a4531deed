package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// ErrInvalidSignature is returned when a webhook payload fails signature verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutSession is the subset of a Stripe checkout session returned to clients.
type CheckoutSession struct {
	ID  string
	URL string
}

// StripeConfig carries the processor credentials and redirect targets.
type StripeConfig struct {
	SecretKey     string
	PriceID       string
	WebhookSecret string
	AppURL        string
}

// StripeCheckout creates subscription checkout sessions and parses webhooks.
type StripeCheckout struct {
	api           *client.API
	priceID       string
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewStripeCheckout builds a client-scoped Stripe adapter; it never touches the package-level stripe.Key.
func NewStripeCheckout(cfg StripeConfig) *StripeCheckout {
	appURL := strings.TrimRight(cfg.AppURL, "/")
	return &StripeCheckout{
		api:           client.New(cfg.SecretKey, nil),
		priceID:       cfg.PriceID,
		webhookSecret: cfg.WebhookSecret,
		successURL:    appURL + "/success",
		cancelURL:     appURL + "/cancel",
	}
}

// CreateSession opens a subscription checkout whose client reference is userID.
func (s *StripeCheckout) CreateSession(ctx context.Context, userID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the card event.
func (s *StripeCheckout) ParseWebhook(payload []byte, signature string) (CardPaymentEvent, error) {
	return ParseStripeWebhook(payload, signature, s.webhookSecret)
}

// ParseStripeWebhook verifies payload against secret and maps it to a CardPaymentEvent.
// Events other than checkout completion carry only their type.
func ParseStripeWebhook(payload []byte, signature, secret string) (CardPaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return CardPaymentEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := CardPaymentEvent{Type: string(event.Type)}
	if out.Type != CheckoutCompletedEvent || event.Data == nil {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return CardPaymentEvent{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = sess.ID
	out.ClientReferenceID = sess.ClientReferenceID
	return out, nil
}
