package gateway

import (
	"context"

	"github.com/tieiiikw/Laampay/internal/core/domain"
)

// InitiateResult is the provider's answer to a payment initiation: a
// reference for later correlation, the provider's initial status word, and
// the checkout handle the client continues with.
type InitiateResult struct {
	ProviderRef string
	Status      string
	CheckoutURL string
}

// PaymentGateway wraps the external provider's payment-initiation call.
// The orchestrator depends on nothing else about the provider.
type PaymentGateway interface {
	Initiate(ctx context.Context, tx *domain.Transaction) (*InitiateResult, error)
}
