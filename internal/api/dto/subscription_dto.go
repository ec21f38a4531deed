package dto

// SubscriptionStatusResponse is returned by GET /api/subscription/check.
type SubscriptionStatusResponse struct {
	LimitReached       bool `json:"limitReached"`
	SubscriptionActive bool `json:"subscriptionActive"`
}

// CheckoutSessionResponse is returned by POST /api/subscription/create-session.
type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// BitcoinInfoResponse holds crypto payment instructions.
type BitcoinInfoResponse struct {
	Address  string  `json:"address"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// BitcoinVerifyRequest is the body of POST /api/subscription/bitcoin/verify.
// Emptiness is checked by the payment path so its error code is preserved.
type BitcoinVerifyRequest struct {
	TransactionID string `json:"transactionId" validate:"max=256"`
}

// BitcoinVerifyResponse confirms activation.
type BitcoinVerifyResponse struct {
	Message            string `json:"message"`
	SubscriptionActive bool   `json:"subscriptionActive"`
}

// WebhookResponse acknowledges a processor callback.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}
