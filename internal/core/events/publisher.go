package events

import (
	"context"
	"time"

	"github.com/tieiiikw/Laampay/internal/core/domain"
)

// TransactionCompleted is emitted when a transaction reaches a terminal
// state. Downstream consumers (reporting, notifications) key off it.
type TransactionCompleted struct {
	TransactionID string        `json:"transaction_id"`
	AccountID     string        `json:"account_id"`
	Kind          domain.TxKind `json:"kind"`
	Status        string        `json:"status"`
	Amount        int64         `json:"amount"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// Publisher delivers domain events to whatever broker is configured.
type Publisher interface {
	Publish(ctx context.Context, event TransactionCompleted) error
	Close() error
}

// NoopPublisher is the default when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, TransactionCompleted) error { return nil }
func (NoopPublisher) Close() error                                        { return nil }
