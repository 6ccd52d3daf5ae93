package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tieiiikw/Laampay/internal/core/domain"
)

// CallbackOutcome tells the transport layer how to answer the provider.
// Everything except a rejection is acknowledged with success so the
// provider's retry loop stops.
type CallbackOutcome string

const (
	// OutcomeProcessed: the callback was authenticated and applied.
	OutcomeProcessed CallbackOutcome = "processed"
	// OutcomeDuplicate: the transaction was already terminal; acknowledged
	// without re-mutating anything.
	OutcomeDuplicate CallbackOutcome = "duplicate"
	// OutcomeUnknown: no transaction matches the correlation id, e.g. a
	// callback for a record a fresh store never held. Acknowledged as a
	// no-op.
	OutcomeUnknown CallbackOutcome = "unknown"
	// OutcomeIgnored: the transaction's state machine has no transition for
	// the reported status, e.g. a failure report for a withdrawal.
	// Acknowledged as a no-op.
	OutcomeIgnored CallbackOutcome = "ignored"
)

type CallbackResult struct {
	Outcome       CallbackOutcome `json:"outcome"`
	TransactionID string          `json:"transaction_id"`
	Status        domain.TxStatus `json:"status,omitempty"`
}

// callbackPayload is what we trust after the signature gate. The provider
// echoes our transaction id as orderId.
type callbackPayload struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
}

func (p callbackPayload) correlationID() string {
	if p.OrderID != "" {
		return p.OrderID
	}
	return p.TransactionID
}

// HandleCallback reconciles an inbound provider notification.
//
// The raw bytes are verified before anything is parsed: re-encoding the
// payload would change the byte sequence and break a legitimate signature.
// Only domain.ErrInvalidSignature and domain.ErrInvalidInput are returned
// as errors; duplicates and unknown correlation ids are successful no-ops.
func (s *Service) HandleCallback(ctx context.Context, rawBody []byte, signatureToken string) (*CallbackResult, error) {
	if !s.verifier.Verify(rawBody, signatureToken) {
		s.metrics.CallbackRejected()
		slog.Warn("callback rejected at signature gate")
		return nil, domain.ErrInvalidSignature
	}
	s.metrics.CallbackVerified()

	var payload callbackPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed callback payload", domain.ErrInvalidInput)
	}

	correlationID := payload.correlationID()
	if correlationID == "" {
		return nil, fmt.Errorf("%w: callback missing correlation id", domain.ErrInvalidInput)
	}

	tx, err := s.store.GetTransaction(ctx, correlationID)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		slog.Warn("callback for unknown transaction", "correlation_id", correlationID)
		return &CallbackResult{Outcome: OutcomeUnknown, TransactionID: correlationID}, nil
	}
	if err != nil {
		return nil, err
	}

	target := domain.StatusFailed
	if isProviderSuccess(payload.Status) {
		target = domain.StatusCompleted
	}

	// Withdrawals only move processing -> completed: the funds were deducted
	// at reservation and there is no reversal path. A non-success report for
	// one is acknowledged without touching the state machine.
	if tx.Kind == domain.KindWithdraw && target == domain.StatusFailed {
		slog.Warn("ignoring non-success callback for withdrawal",
			"transaction_id", tx.ID,
			"provider_status", payload.Status,
		)
		return &CallbackResult{Outcome: OutcomeIgnored, TransactionID: tx.ID, Status: tx.Status}, nil
	}

	if err := s.store.SetTransactionStatus(ctx, tx.ID, target); err != nil {
		if isAlreadyTerminal(err) {
			s.metrics.CallbackDuplicate()
			slog.Debug("duplicate callback acknowledged", "transaction_id", tx.ID)
			return &CallbackResult{Outcome: OutcomeDuplicate, TransactionID: tx.ID, Status: tx.Status}, nil
		}
		return nil, err
	}

	if tx.Kind == domain.KindWithdraw {
		// The deferred completion is redundant now.
		s.scheduler.Cancel(tx.ID)
	}

	credited := int64(0)
	if target == domain.StatusCompleted && tx.Kind == domain.KindDeposit {
		// The CAS above is the exactly-once gate: only the winning
		// transition reaches this credit.
		amount := payload.Amount
		if amount <= 0 {
			amount = tx.Amount
		}
		credited = amount
		if _, err := s.store.MutateBalance(ctx, tx.AccountID, amount); err != nil {
			return nil, err
		}
	}

	slog.Info("callback applied",
		"transaction_id", tx.ID,
		"account_id", tx.AccountID,
		"status", target,
		"credited", credited,
	)

	eventAmount := tx.Amount
	if credited > 0 {
		eventAmount = credited
	}
	s.emitTerminal(ctx, tx, target, eventAmount)

	return &CallbackResult{Outcome: OutcomeProcessed, TransactionID: tx.ID, Status: target}, nil
}

func isProviderSuccess(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS", "SUCCESSFUL", "COMPLETED", "PAID":
		return true
	default:
		return false
	}
}

func isAlreadyTerminal(err error) bool {
	return errors.Is(err, domain.ErrAlreadyTerminal)
}
