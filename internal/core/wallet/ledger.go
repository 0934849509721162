// Package wallet owns coin balances and the transaction history.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/keylock"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

const DefaultConfirmTimeout = 30 * time.Second

// Ledger mutates balances through a LedgerStore. Every balance change for an
// account runs under that account's lock.
type Ledger struct {
	store   ports.LedgerStore
	gateway ports.PaymentGateway
	events  ports.EventPublisher
	logger  *slog.Logger

	now            func() time.Time
	confirmTimeout time.Duration
	locks          *keylock.Map
	inflight       sync.WaitGroup

	tracer     trace.Tracer
	operations metric.Int64Counter
}

type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithConfirmTimeout bounds how long a top-up waits for the gateway callback.
func WithConfirmTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.confirmTimeout = d
		}
	}
}

func NewLedger(store ports.LedgerStore, gateway ports.PaymentGateway, events ports.EventPublisher, logger *slog.Logger, opts ...Option) *Ledger {
	if events == nil {
		events = ports.Discard
	}
	l := &Ledger{
		store:          store,
		gateway:        gateway,
		events:         events,
		logger:         logger.With("component", "wallet"),
		now:            time.Now,
		confirmTimeout: DefaultConfirmTimeout,
		locks:          keylock.New(),
		tracer:         otel.Tracer("maxen/wallet"),
	}
	for _, opt := range opts {
		opt(l)
	}

	counter, err := otel.Meter("maxen/wallet").Int64Counter("wallet.operations",
		metric.WithDescription("Wallet operations by kind and outcome"))
	if err != nil {
		l.logger.Warn("wallet metrics disabled", "error", err)
	}
	l.operations = counter
	return l
}

func (l *Ledger) record(ctx context.Context, op string, err error) {
	if l.operations == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	l.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (l *Ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	return l.store.Balance(ctx, accountID)
}

// History returns the account's transactions, most recent first.
func (l *Ledger) History(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	return l.store.ListTransactions(ctx, accountID)
}

func (l *Ledger) newTransaction(accountID string, kind domain.TransactionKind, amount int64, status domain.TransactionStatus, description string) *domain.Transaction {
	now := l.now()
	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		Status:      status,
		Description: description,
		CreatedAt:   now,
	}
	if status != domain.TxPending {
		tx.SettledAt = &now
	}
	return tx
}

// Charge deducts amount for a purchase. The balance check and the deduction
// happen as one step; a failed charge records nothing.
func (l *Ledger) Charge(ctx context.Context, accountID string, amount int64, description string) (tx *domain.Transaction, err error) {
	ctx, span := l.tracer.Start(ctx, "wallet.Charge", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.Int64("amount", amount),
	))
	defer func() {
		l.record(ctx, "charge", err)
		endSpan(span, err)
	}()

	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	unlock := l.locks.Lock(accountID)
	defer unlock()

	tx = l.newTransaction(accountID, domain.KindPurchase, -amount, domain.TxCompleted, description)
	if err := l.store.Append(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			l.logger.Warn("charge rejected - insufficient balance", "account_id", accountID, "amount", amount)
		}
		return nil, err
	}

	l.logger.Info("charge completed", "account_id", accountID, "amount", amount, "tx_id", tx.ID)
	return tx, nil
}

// GrantBonus credits free coins, e.g. the welcome bonus.
func (l *Ledger) GrantBonus(ctx context.Context, accountID string, amount int64, description string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	unlock := l.locks.Lock(accountID)
	defer unlock()

	tx := l.newTransaction(accountID, domain.KindBonus, amount, domain.TxCompleted, description)
	if err := l.store.Append(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Refund returns the coins of a completed purchase. A purchase is refunded at most once.
func (l *Ledger) Refund(ctx context.Context, accountID, originalTransactionID string) (tx *domain.Transaction, err error) {
	ctx, span := l.tracer.Start(ctx, "wallet.Refund", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("original.id", originalTransactionID),
	))
	defer func() {
		l.record(ctx, "refund", err)
		endSpan(span, err)
	}()

	original, err := l.store.GetTransaction(ctx, originalTransactionID)
	if err != nil {
		return nil, err
	}
	if original.AccountID != accountID {
		return nil, fmt.Errorf("transaction %s: %w", originalTransactionID, domain.ErrNotFound)
	}
	if original.Kind != domain.KindPurchase || original.Status != domain.TxCompleted {
		return nil, domain.ErrNotRefundable
	}

	unlock := l.locks.Lock(accountID)
	defer unlock()

	existing, err := l.store.FindRefund(ctx, original.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyRefunded
	}

	tx = l.newTransaction(accountID, domain.KindRefund, -original.Amount, domain.TxCompleted, "Refund: "+original.Description)
	tx.RefundOf = original.ID
	if err := l.store.Append(ctx, tx); err != nil {
		return nil, err
	}

	l.logger.Info("refund completed", "account_id", accountID, "amount", tx.Amount, "refund_of", original.ID)
	return tx, nil
}

// RefundOf returns the refund recorded against one of the account's
// purchases, or nil, nil when it has not been refunded.
func (l *Ledger) RefundOf(ctx context.Context, accountID, originalTransactionID string) (*domain.Transaction, error) {
	refund, err := l.store.FindRefund(ctx, originalTransactionID)
	if err != nil {
		return nil, err
	}
	if refund != nil && refund.AccountID != accountID {
		return nil, fmt.Errorf("transaction %s: %w", originalTransactionID, domain.ErrNotFound)
	}
	return refund, nil
}
