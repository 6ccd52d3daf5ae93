// Package memory is the in-process reference implementation of the ledger
// store. It is safe for concurrent use: the catalog maps are guarded by one
// mutex, balance mutations by a per-account mutex so unrelated accounts
// never contend.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tieiiikw/Laampay/internal/adapter/storage"
	"github.com/tieiiikw/Laampay/internal/core/domain"
)

type Store struct {
	mu           sync.Mutex
	accounts     map[string]*domain.Account
	transactions map[string]*domain.Transaction

	accountMus map[string]*sync.Mutex
	accountsMu sync.Mutex // protects accountMus itself

	apiKeys         map[string]string // key hash -> account id
	idempotencyKeys map[string]cachedResponse
}

type cachedResponse struct {
	status int
	body   []byte
}

func NewStore() *Store {
	return &Store{
		accounts:        make(map[string]*domain.Account),
		transactions:    make(map[string]*domain.Transaction),
		accountMus:      make(map[string]*sync.Mutex),
		apiKeys:         make(map[string]string),
		idempotencyKeys: make(map[string]cachedResponse),
	}
}

func (s *Store) accountLock(accountID string) *sync.Mutex {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	if _, ok := s.accountMus[accountID]; !ok {
		s.accountMus[accountID] = &sync.Mutex{}
	}
	return s.accountMus[accountID]
}

func (s *Store) EnsureAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAccount(s.ensureLocked(accountID)), nil
}

func (s *Store) ensureLocked(accountID string) *domain.Account {
	acc, ok := s.accounts[accountID]
	if !ok {
		acc = &domain.Account{ID: accountID, CreatedAt: time.Now()}
		s.accounts[accountID] = acc
	}
	return acc
}

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.Amount <= 0 {
		return domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	acc := s.ensureLocked(tx.AccountID)
	acc.TransactionIDs = append(acc.TransactionIDs, tx.ID)
	// The store keeps its own copy; the caller's value stays a snapshot.
	s.transactions[tx.ID] = copyTx(tx)
	return nil
}

func (s *Store) CreateWithdrawal(ctx context.Context, accountID string, amount int64, meta domain.TxMeta) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	// Per-account lock makes check-then-deduct one critical section.
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.ensureLocked(accountID)
	if amount > acc.Balance {
		return nil, domain.ErrInsufficientFunds
	}
	acc.Balance -= amount

	tx := &domain.Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      domain.KindWithdraw,
		Amount:    amount,
		Status:    domain.StatusProcessing,
		Meta:      meta,
		CreatedAt: time.Now(),
	}
	acc.TransactionIDs = append(acc.TransactionIDs, tx.ID)
	s.transactions[tx.ID] = tx
	return copyTx(tx), nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return copyTx(tx), nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}

	out := make([]*domain.Transaction, 0, len(acc.TransactionIDs))
	for _, id := range acc.TransactionIDs {
		if tx, ok := s.transactions[id]; ok {
			out = append(out, copyTx(tx))
		}
	}
	return out, nil
}

func (s *Store) GetBalance(ctx context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(accountID).Balance, nil
}

func (s *Store) MutateBalance(ctx context.Context, accountID string, delta int64) (int64, error) {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.ensureLocked(accountID)
	acc.Balance += delta
	return acc.Balance, nil
}

func (s *Store) SetProviderResult(ctx context.Context, id, providerRef, checkoutURL string, status domain.TxStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if tx.Status.IsTerminal() {
		return domain.ErrAlreadyTerminal
	}

	tx.Meta.ProviderRef = providerRef
	tx.Meta.CheckoutURL = checkoutURL
	tx.Status = status
	return nil
}

func (s *Store) SetTransactionStatus(ctx context.Context, id string, status domain.TxStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if tx.Status.IsTerminal() {
		return domain.ErrAlreadyTerminal
	}

	tx.Status = status
	return nil
}

func (s *Store) SaveAPIKey(ctx context.Context, accountID, keyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[keyHash] = accountID
	return nil
}

func (s *Store) AccountIDForKeyHash(ctx context.Context, keyHash string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accountID, ok := s.apiKeys[keyHash]
	return accountID, ok, nil
}

func (s *Store) LookupIdempotencyKey(ctx context.Context, key string) (int, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.idempotencyKeys[key]
	if !ok {
		return 0, nil, false, nil
	}
	return cached.status, cached.body, true, nil
}

func (s *Store) SaveIdempotencyKey(ctx context.Context, key string, status int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.idempotencyKeys[key]; !ok {
		s.idempotencyKeys[key] = cachedResponse{status: status, body: append([]byte(nil), body...)}
	}
	return nil
}

// copyTx hands callers a snapshot so external code can't mutate ledger state.
func copyTx(tx *domain.Transaction) *domain.Transaction {
	cp := *tx
	return &cp
}

// copyAccount snapshots an account, TransactionIDs included. Callers never
// hold a pointer into live ledger state, so reads can't race balance writes.
func copyAccount(acc *domain.Account) *domain.Account {
	cp := *acc
	cp.TransactionIDs = append([]string(nil), acc.TransactionIDs...)
	return &cp
}

var (
	_ storage.LedgerStore      = (*Store)(nil)
	_ storage.KeyStore         = (*Store)(nil)
	_ storage.IdempotencyStore = (*Store)(nil)
)
