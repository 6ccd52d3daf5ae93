// Package payments drives the transaction lifecycle: it creates pending
// transactions, hands them to the payment gateway, reconciles verified
// provider callbacks against the ledger, and completes withdrawals after
// their processing delay.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tieiiikw/Laampay/internal/adapter/gateway"
	"github.com/tieiiikw/Laampay/internal/adapter/storage"
	"github.com/tieiiikw/Laampay/internal/core/domain"
	"github.com/tieiiikw/Laampay/internal/core/events"
	"github.com/tieiiikw/Laampay/internal/core/notifications"
	"github.com/tieiiikw/Laampay/internal/core/security"
	"github.com/tieiiikw/Laampay/internal/core/worker"
	"github.com/tieiiikw/Laampay/internal/metrics"
)

// Config carries the orchestrator's tunables.
type Config struct {
	// WithdrawDelay is how long a withdrawal sits in processing before the
	// simulated bank leg completes it.
	WithdrawDelay time.Duration

	// WebhookURL, when set, receives signed terminal-state notifications.
	WebhookURL    string
	WebhookSecret string
}

type Service struct {
	store     storage.LedgerStore
	gateway   gateway.PaymentGateway
	verifier  *security.Verifier
	scheduler *worker.Scheduler
	publisher events.Publisher
	metrics   metrics.Collector
	cfg       Config
}

func NewService(
	store storage.LedgerStore,
	gw gateway.PaymentGateway,
	verifier *security.Verifier,
	scheduler *worker.Scheduler,
	publisher events.Publisher,
	collector metrics.Collector,
	cfg Config,
) *Service {
	if cfg.WithdrawDelay <= 0 {
		cfg.WithdrawDelay = 5 * time.Second
	}
	return &Service{
		store:     store,
		gateway:   gw,
		verifier:  verifier,
		scheduler: scheduler,
		publisher: publisher,
		metrics:   collector,
		cfg:       cfg,
	}
}

// Wallet is the read model for an account.
type Wallet struct {
	AccountID    string                `json:"account_id"`
	Balance      int64                 `json:"balance"`
	Transactions []*domain.Transaction `json:"transactions"`
}

// GetWallet returns the balance and transaction history. Read-only; the
// account is created lazily if this is its first reference.
func (s *Service) GetWallet(ctx context.Context, accountID string) (*Wallet, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidInput)
	}

	acc, err := s.store.EnsureAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	txs, err := s.store.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &Wallet{AccountID: acc.ID, Balance: acc.Balance, Transactions: txs}, nil
}

// DepositResult hands the client the correlation id and the provider's
// checkout handle to continue the payment flow.
type DepositResult struct {
	TransactionID string `json:"transaction_id"`
	CheckoutURL   string `json:"checkout_url,omitempty"`
}

// Deposit creates a pending deposit and initiates it with the provider.
// The balance is untouched here: deposits only credit on a verified
// callback. No account lock is held across the gateway call.
func (s *Service) Deposit(ctx context.Context, accountID, phone string, amount int64) (*DepositResult, error) {
	if accountID == "" || phone == "" {
		return nil, fmt.Errorf("%w: account id and phone are required", domain.ErrInvalidInput)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, domain.ErrInvalidAmount)
	}

	if _, err := s.store.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		AccountID: accountID,
		Kind:      domain.KindDeposit,
		Amount:    amount,
		Status:    domain.StatusCreated,
		Meta:      domain.TxMeta{Phone: phone},
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	// The transaction is single-owner while in created: nothing else
	// touches it until the provider has seen it.
	result, err := s.gateway.Initiate(ctx, tx)
	if err != nil {
		slog.Error("payment initiation failed", "transaction_id", tx.ID, "error", err)
		if setErr := s.store.SetTransactionStatus(ctx, tx.ID, domain.StatusFailed); setErr != nil {
			slog.Error("could not mark transaction failed", "transaction_id", tx.ID, "error", setErr)
		}
		s.metrics.TransactionFailed(string(domain.KindDeposit))
		return nil, err
	}

	status := domain.NormalizeProviderStatus(result.Status)
	if err := s.store.SetProviderResult(ctx, tx.ID, result.ProviderRef, result.CheckoutURL, status); err != nil {
		return nil, err
	}

	slog.Info("deposit initiated",
		"transaction_id", tx.ID,
		"account_id", accountID,
		"amount", amount,
		"provider_ref", result.ProviderRef,
		"status", status,
	)

	return &DepositResult{TransactionID: tx.ID, CheckoutURL: result.CheckoutURL}, nil
}

// WithdrawResult carries the correlation id of the reserved withdrawal.
type WithdrawResult struct {
	TransactionID string `json:"transaction_id"`
}

// Withdraw reserves the amount immediately (optimistic deduction) and
// schedules the bank-leg completion. The insufficient-funds check and the
// deduction are one atomic store operation, so concurrent withdrawals can
// never overdraw.
func (s *Service) Withdraw(ctx context.Context, accountID, bank, bankAccount string, amount int64) (*WithdrawResult, error) {
	if accountID == "" || bank == "" || bankAccount == "" {
		return nil, fmt.Errorf("%w: account id, bank and bank account are required", domain.ErrInvalidInput)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, domain.ErrInvalidAmount)
	}

	if _, err := s.store.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	tx, err := s.store.CreateWithdrawal(ctx, accountID, amount, domain.TxMeta{
		Bank:        bank,
		BankAccount: bankAccount,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("withdrawal reserved",
		"transaction_id", tx.ID,
		"account_id", accountID,
		"amount", amount,
		"bank", bank,
	)

	s.scheduler.Arm(tx.ID, s.cfg.WithdrawDelay, func() {
		s.completeWithdrawal(tx.ID)
	})

	return &WithdrawResult{TransactionID: tx.ID}, nil
}

// completeWithdrawal is the deferred bank leg. The funds were already
// deducted at reservation time, so the only work left is the status
// transition, routed through the same compare-and-set as every other path.
func (s *Service) completeWithdrawal(txID string) {
	ctx := context.Background()

	err := s.store.SetTransactionStatus(ctx, txID, domain.StatusCompleted)
	switch {
	case err == nil:
	case isAlreadyTerminal(err):
		slog.Debug("withdrawal already terminal, completion skipped", "transaction_id", txID)
		return
	default:
		slog.Error("withdrawal completion failed", "transaction_id", txID, "error", err)
		return
	}

	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		slog.Error("completed withdrawal vanished", "transaction_id", txID, "error", err)
		return
	}

	slog.Info("withdrawal completed", "transaction_id", txID, "account_id", tx.AccountID)
	s.emitTerminal(ctx, tx, domain.StatusCompleted, tx.Amount)
}

// emitTerminal fans a terminal transition out to metrics, the event bus and
// the merchant webhook. None of these can fail the transition itself.
func (s *Service) emitTerminal(ctx context.Context, tx *domain.Transaction, status domain.TxStatus, amount int64) {
	if status == domain.StatusCompleted {
		s.metrics.TransactionCompleted(string(tx.Kind))
	} else {
		s.metrics.TransactionFailed(string(tx.Kind))
	}

	event := events.TransactionCompleted{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Kind:          tx.Kind,
		Status:        string(status),
		Amount:        amount,
		OccurredAt:    time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Error("event publish failed", "transaction_id", tx.ID, "error", err)
	}

	if s.cfg.WebhookURL == "" {
		return
	}

	eventName := "payment.succeeded"
	if status == domain.StatusFailed {
		eventName = "payment.failed"
	}
	payload := map[string]interface{}{
		"event": eventName,
		"data": map[string]interface{}{
			"transaction_id": tx.ID,
			"account_id":     tx.AccountID,
			"kind":           tx.Kind,
			"amount":         amount,
			"currency":       domain.DefaultCurrency,
			"timestamp":      time.Now(),
		},
	}
	go func() {
		if err := notifications.SendWebhook(s.cfg.WebhookURL, payload, s.cfg.WebhookSecret); err != nil {
			slog.Error("merchant webhook failed", "transaction_id", tx.ID, "error", err)
		}
	}()
}
