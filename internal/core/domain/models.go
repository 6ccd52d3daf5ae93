package domain

import (
	"strings"
	"time"
)

// TxKind is the direction of a money movement relative to the wallet.
type TxKind string

const (
	KindDeposit  TxKind = "deposit"
	KindWithdraw TxKind = "withdraw"
)

// TxStatus is the lifecycle state of a transaction.
//
// Deposits move created -> pending -> completed | failed.
// Withdrawals move processing -> completed (funds are deducted at creation,
// there is no reversal path in this system).
type TxStatus string

const (
	StatusCreated    TxStatus = "created"
	StatusPending    TxStatus = "pending"
	StatusProcessing TxStatus = "processing"
	StatusCompleted  TxStatus = "completed"
	StatusFailed     TxStatus = "failed"
)

// IsTerminal reports whether no further transition is permitted.
func (s TxStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// NormalizeProviderStatus lower-cases a provider-reported status and maps
// anything outside our own state machine to pending. Providers echo their own
// vocabulary ("PENDING", "AWAITING_PAYMENT", ...) at initiation time.
func NormalizeProviderStatus(raw string) TxStatus {
	s := TxStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusCreated, StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return s
	default:
		return StatusPending
	}
}

// Account represents a user's wallet. Accounts are created lazily on first
// reference and never deleted. Balance is held in minor units.
type Account struct {
	ID             string    `json:"id"`
	Balance        int64     `json:"balance"`
	TransactionIDs []string  `json:"transaction_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// TxMeta carries kind-specific auxiliary data: phone for deposits, bank
// descriptors for withdrawals, and the provider's reference once known.
type TxMeta struct {
	Phone       string `json:"phone,omitempty"`
	Bank        string `json:"bank,omitempty"`
	BankAccount string `json:"bank_account,omitempty"`
	ProviderRef string `json:"provider_ref,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// Transaction is a single ledger record. Amount is fixed at creation and the
// id doubles as the correlation key echoed back by the provider.
type Transaction struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Kind      TxKind    `json:"kind"`
	Amount    int64     `json:"amount"`
	Status    TxStatus  `json:"status"`
	Meta      TxMeta    `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
}
