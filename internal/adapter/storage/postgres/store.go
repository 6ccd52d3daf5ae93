// Package postgres is the durable ledger store. Per-account atomicity comes
// from row locks (SELECT ... FOR UPDATE) and guarded UPDATEs instead of the
// in-process mutexes the memory store uses; the contract is identical.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tieiiikw/Laampay/internal/adapter/storage"
	"github.com/tieiiikw/Laampay/internal/core/domain"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	const query = `
		INSERT INTO accounts (id, balance)
		VALUES ($1, 0)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, balance, created_at`

	var acc domain.Account
	if err := s.db.QueryRow(ctx, query, accountID).Scan(&acc.ID, &acc.Balance, &acc.CreatedAt); err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	return &acc, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	if _, err := s.EnsureAccount(ctx, tx.AccountID); err != nil {
		return err
	}

	const query = `
		INSERT INTO transactions (id, account_id, kind, amount, status, phone, bank, bank_account, provider_ref, checkout_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.Exec(ctx, query,
		tx.ID, tx.AccountID, string(tx.Kind), tx.Amount, string(tx.Status),
		tx.Meta.Phone, tx.Meta.Bank, tx.Meta.BankAccount, tx.Meta.ProviderRef, tx.Meta.CheckoutURL,
		tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *Store) CreateWithdrawal(ctx context.Context, accountID string, amount int64, meta domain.TxMeta) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	if _, err := s.EnsureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	dbTx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback(ctx)

	// Row lock holds the balance steady across the check and the deduction.
	var balance int64
	if err := dbTx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&balance); err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}

	if amount > balance {
		return nil, domain.ErrInsufficientFunds
	}

	if _, err := dbTx.Exec(ctx, `UPDATE accounts SET balance = balance - $1 WHERE id = $2`, amount, accountID); err != nil {
		return nil, fmt.Errorf("deduct balance: %w", err)
	}

	tx := &domain.Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      domain.KindWithdraw,
		Amount:    amount,
		Status:    domain.StatusProcessing,
		Meta:      meta,
		CreatedAt: time.Now(),
	}

	const insert = `
		INSERT INTO transactions (id, account_id, kind, amount, status, phone, bank, bank_account, provider_ref, checkout_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = dbTx.Exec(ctx, insert,
		tx.ID, tx.AccountID, string(tx.Kind), tx.Amount, string(tx.Status),
		tx.Meta.Phone, tx.Meta.Bank, tx.Meta.BankAccount, tx.Meta.ProviderRef, tx.Meta.CheckoutURL,
		tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	const query = `
		SELECT id, account_id, kind, amount, status, phone, bank, bank_account, provider_ref, checkout_url, created_at
		FROM transactions WHERE id = $1`

	tx, err := scanTransaction(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	const query = `
		SELECT id, account_id, kind, amount, status, phone, bank, bank_account, provider_ref, checkout_url, created_at
		FROM transactions WHERE account_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) GetBalance(ctx context.Context, accountID string) (int64, error) {
	acc, err := s.EnsureAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

func (s *Store) MutateBalance(ctx context.Context, accountID string, delta int64) (int64, error) {
	var balance int64
	err := s.db.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		delta, accountID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("mutate balance: %w", err)
	}
	return balance, nil
}

func (s *Store) SetProviderResult(ctx context.Context, id, providerRef, checkoutURL string, status domain.TxStatus) error {
	const query = `
		UPDATE transactions
		SET provider_ref = $2, checkout_url = $3, status = $4
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`

	tag, err := s.db.Exec(ctx, query, id, providerRef, checkoutURL, string(status))
	if err != nil {
		return fmt.Errorf("set provider result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrTerminal(ctx, id)
	}
	return nil
}

func (s *Store) SetTransactionStatus(ctx context.Context, id string, status domain.TxStatus) error {
	// Guarded UPDATE is the compare-and-set: zero rows means the record is
	// gone or already terminal.
	const query = `
		UPDATE transactions SET status = $2
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`

	tag, err := s.db.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("set transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrTerminal(ctx, id)
	}
	return nil
}

func (s *Store) missingOrTerminal(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT true FROM transactions WHERE id = $1`, id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTransactionNotFound
		}
		return err
	}
	return domain.ErrAlreadyTerminal
}

func (s *Store) SaveAPIKey(ctx context.Context, accountID, keyHash string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO api_keys (account_id, key_hash) VALUES ($1, $2)`,
		accountID, keyHash)
	if err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	return nil
}

func (s *Store) AccountIDForKeyHash(ctx context.Context, keyHash string) (string, bool, error) {
	var accountID string
	err := s.db.QueryRow(ctx,
		`SELECT account_id FROM api_keys WHERE key_hash = $1`, keyHash).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return accountID, true, nil
}

func (s *Store) LookupIdempotencyKey(ctx context.Context, key string) (int, []byte, bool, error) {
	var (
		status int
		body   []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT response_status, response_body FROM idempotency_keys WHERE key_id = $1`,
		key).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return status, body, true, nil
}

func (s *Store) SaveIdempotencyKey(ctx context.Context, key string, status int, body []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO idempotency_keys (key_id, response_status, response_body) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		key, status, body)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.Kind, &tx.Amount, &tx.Status,
		&tx.Meta.Phone, &tx.Meta.Bank, &tx.Meta.BankAccount, &tx.Meta.ProviderRef, &tx.Meta.CheckoutURL,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

var (
	_ storage.LedgerStore      = (*Store)(nil)
	_ storage.KeyStore         = (*Store)(nil)
	_ storage.IdempotencyStore = (*Store)(nil)
)
