package payment

import (
	"context"
	"strings"
)

// DefaultMinReferenceLength is the shortest transaction id accepted by ReferencePolicy.
const DefaultMinReferenceLength = 10

// TransactionVerifier confirms that a crypto transaction pays for userID's subscription.
type TransactionVerifier interface {
	Verify(ctx context.Context, transactionID, userID string) (bool, error)
}

// ReferencePolicy accepts any transaction id of sufficient length. It does not
// query a blockchain; an indexer-backed verifier can replace it without changing the Gate.
type ReferencePolicy struct {
	MinLength int
}

// NewReferencePolicy returns a policy with the given minimum length.
func NewReferencePolicy(minLength int) ReferencePolicy {
	if minLength <= 0 {
		minLength = DefaultMinReferenceLength
	}
	return ReferencePolicy{MinLength: minLength}
}

// Verify implements TransactionVerifier.
func (p ReferencePolicy) Verify(_ context.Context, transactionID, _ string) (bool, error) {
	id := strings.TrimSpace(transactionID)
	if id == "" {
		return false, nil
	}
	return len(id) >= p.MinLength, nil
}
