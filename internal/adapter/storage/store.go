package storage

import (
	"context"

	"github.com/tieiiikw/Laampay/internal/core/domain"
)

// LedgerStore holds account balances and transaction records. Two
// implementations share this contract: memory (the in-process reference) and
// postgres (durable). The orchestrator never cares which one it has.
type LedgerStore interface {
	// EnsureAccount returns the account, creating a zero-balance one on
	// first reference. Idempotent, no error condition beyond I/O.
	EnsureAccount(ctx context.Context, accountID string) (*domain.Account, error)

	// CreateTransaction allocates the record and appends it to the owning
	// account's list. Rejects with domain.ErrInvalidAmount if amount <= 0.
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error

	// CreateWithdrawal atomically checks the balance, deducts amount, and
	// creates a processing-state withdrawal. The check and the deduction
	// are one critical section per account: two concurrent withdrawals can
	// never both pass the check against a stale balance. Rejects with
	// domain.ErrInvalidAmount or domain.ErrInsufficientFunds.
	CreateWithdrawal(ctx context.Context, accountID string, amount int64, meta domain.TxMeta) (*domain.Transaction, error)

	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, accountID string) ([]*domain.Transaction, error)
	GetBalance(ctx context.Context, accountID string) (int64, error)

	// MutateBalance atomically adds delta to the account balance and
	// returns the new value. No lower bound is enforced here; withdrawal
	// reservation goes through CreateWithdrawal instead.
	MutateBalance(ctx context.Context, accountID string, delta int64) (int64, error)

	// SetProviderResult records the provider reference, checkout URL and
	// post-initiation status on a transaction the orchestrator still owns.
	SetProviderResult(ctx context.Context, id, providerRef, checkoutURL string, status domain.TxStatus) error

	// SetTransactionStatus is a compare-and-set: it succeeds only from a
	// non-terminal state and returns domain.ErrAlreadyTerminal otherwise.
	// Duplicate callbacks race harmlessly because the loser gets the
	// sentinel and mutates nothing.
	SetTransactionStatus(ctx context.Context, id string, status domain.TxStatus) error
}

// KeyStore persists merchant API key hashes.
type KeyStore interface {
	SaveAPIKey(ctx context.Context, accountID, keyHash string) error
	AccountIDForKeyHash(ctx context.Context, keyHash string) (string, bool, error)
}

// IdempotencyStore caches responses for replayed Idempotency-Key headers.
type IdempotencyStore interface {
	LookupIdempotencyKey(ctx context.Context, key string) (status int, body []byte, ok bool, err error)
	SaveIdempotencyKey(ctx context.Context, key string, status int, body []byte) error
}
