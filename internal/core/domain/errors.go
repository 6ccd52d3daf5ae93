package domain

import "errors"

// Sentinel errors for the failure taxonomy. Handlers match these with
// errors.Is to pick a transport status; everything else is internal.
var (
	// ErrInvalidInput covers missing or malformed client-supplied fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAmount is returned by the store when a transaction is
	// created with a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds rejects a withdrawal exceeding the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrGateway wraps a failed payment-initiation call. The deposit is
	// marked failed and the client may retry.
	ErrGateway = errors.New("payment gateway failure")

	// ErrInvalidSignature rejects a callback that failed authentication.
	ErrInvalidSignature = errors.New("invalid callback signature")

	// ErrTransactionNotFound is the store's not-found result.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAlreadyTerminal signals a status transition attempted on a
	// transaction that is already completed or failed. This is the
	// idempotency backstop for duplicate callback delivery.
	ErrAlreadyTerminal = errors.New("transaction already in terminal state")
)
