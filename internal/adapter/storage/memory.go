package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
)

// MemoryStore keeps accounts, transactions and orders in process memory.
// Thread-safe via RWMutex; values are copied in and out.
type MemoryStore struct {
	mu sync.RWMutex

	accounts map[string]*domain.Account
	byEmail  map[string]string

	txs       map[string]*domain.Transaction
	txByAcct  map[string][]string
	refundFor map[string]string

	orders      map[string]*domain.Order
	orderByAcct map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[string]*domain.Account),
		byEmail:     make(map[string]string),
		txs:         make(map[string]*domain.Transaction),
		txByAcct:    make(map[string][]string),
		refundFor:   make(map[string]string),
		orders:      make(map[string]*domain.Order),
		orderByAcct: make(map[string][]string),
	}
}

// --- accounts ---

func (s *MemoryStore) CreateAccount(ctx context.Context, acc *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[acc.Email]; ok {
		return domain.ErrEmailTaken
	}
	if _, ok := s.accounts[acc.ID]; ok {
		return fmt.Errorf("account %s already exists", acc.ID)
	}
	val := *acc
	val.CoinBalance = 0
	s.accounts[acc.ID] = &val
	s.byEmail[acc.Email] = acc.ID
	return nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	val := *acc
	return &val, nil
}

func (s *MemoryStore) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
	}
	return s.GetAccount(ctx, id)
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	if len(s.txByAcct[id]) > 0 {
		return fmt.Errorf("account %s has transactions", id)
	}
	delete(s.byEmail, acc.Email)
	delete(s.accounts, id)
	return nil
}

// --- ledger ---

func (s *MemoryStore) Append(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[tx.AccountID]
	if !ok {
		return fmt.Errorf("account %s: %w", tx.AccountID, domain.ErrNotFound)
	}
	if tx.Status == domain.TxCompleted {
		if acc.CoinBalance+tx.Amount < 0 {
			return domain.ErrInsufficientBalance
		}
		acc.CoinBalance += tx.Amount
	}

	val := *tx
	s.txs[tx.ID] = &val
	s.txByAcct[tx.AccountID] = append(s.txByAcct[tx.AccountID], tx.ID)
	if tx.RefundOf != "" {
		s.refundFor[tx.RefundOf] = tx.ID
	}
	return nil
}

func (s *MemoryStore) Settle(ctx context.Context, txID string, status domain.TransactionStatus, at time.Time) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", txID, domain.ErrNotFound)
	}
	if tx.Status != domain.TxPending || status == domain.TxPending {
		return nil, fmt.Errorf("transaction %s is %s: %w", txID, tx.Status, domain.ErrInvalidTransition)
	}
	if status == domain.TxCompleted {
		acc := s.accounts[tx.AccountID]
		if acc.CoinBalance+tx.Amount < 0 {
			return nil, domain.ErrInsufficientBalance
		}
		acc.CoinBalance += tx.Amount
	}
	tx.Status = status
	settled := at
	tx.SettledAt = &settled

	val := *tx
	return &val, nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", txID, domain.ErrNotFound)
	}
	val := *tx
	return &val, nil
}

func (s *MemoryStore) FindRefund(ctx context.Context, originalID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.refundFor[originalID]
	if !ok {
		return nil, nil
	}
	val := *s.txs[id]
	return &val, nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.txByAcct[accountID]
	out := make([]domain.Transaction, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *s.txs[ids[i]])
	}
	return out, nil
}

func (s *MemoryStore) Balance(ctx context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	return acc.CoinBalance, nil
}

// --- orders ---

func (s *MemoryStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	s.orders[o.ID] = copyOrder(o)
	s.orderByAcct[o.AccountID] = append(s.orderByAcct[o.AccountID], o.ID)
	return nil
}

func (s *MemoryStore) UpdateOrder(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; !ok {
		return fmt.Errorf("order %s: %w", o.ID, domain.ErrNotFound)
	}
	s.orders[o.ID] = copyOrder(o)
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return copyOrder(o), nil
}

func (s *MemoryStore) ListOrders(ctx context.Context, accountID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.orderByAcct[accountID]
	out := make([]domain.Order, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *copyOrder(s.orders[ids[i]]))
	}
	return out, nil
}

func copyOrder(o *domain.Order) *domain.Order {
	val := *o
	val.Items = append([]domain.CartItem(nil), o.Items...)
	return &val
}
