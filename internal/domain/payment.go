package domain

// PaymentSource identifies how a subscription payment was asserted.
type PaymentSource string

const (
	PaymentSourceCard   PaymentSource = "card"
	PaymentSourceCrypto PaymentSource = "crypto"
)

// SubscriptionPaymentEvent is the transient assertion passed to the confirmation gate. It is never persisted.
type SubscriptionPaymentEvent struct {
	Source       PaymentSource
	ReferenceID  string
	TargetUserID string
}
