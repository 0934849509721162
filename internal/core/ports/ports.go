// Package ports declares the collaborators the domain services depend on.
// Adapters under internal/adapter implement them.
package ports

import (
	"context"
	"time"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
)

// Catalog is the read-only product source.
type Catalog interface {
	// GetProduct returns nil, nil when the id is unknown.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceLow  ProductSort = "price-low"
	SortPriceHigh ProductSort = "price-high"
	SortRating    ProductSort = "rating"
	SortPopular   ProductSort = "popular"
)

// ProductFilter narrows ListProducts. Empty fields match everything.
type ProductFilter struct {
	Search   string
	Category string // category slug
	Region   string
	Sort     ProductSort
}

// PaymentRequest is sent to the payment gateway for a top-up.
type PaymentRequest struct {
	TransactionID string
	AccountID     string
	Amount        int64
	Method        domain.PaymentMethod
}

// PaymentResult is delivered once through the gateway callback.
type PaymentResult struct {
	Approved  bool
	Reference string
	Reason    string
}

// PaymentGateway charges an external payment method. Charge returns once the
// request is accepted; done is invoked exactly once later with the outcome.
type PaymentGateway interface {
	Charge(ctx context.Context, req PaymentRequest, done func(PaymentResult)) error
}

// KeyValueStore is a small persistence port used for sessions and idempotency.
type KeyValueStore interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// AccountStore persists accounts. Balances are only changed through LedgerStore.
// Lookups of missing records return an error matching domain.ErrNotFound.
type AccountStore interface {
	CreateAccount(ctx context.Context, acc *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	// DeleteAccount removes an account that has no transactions yet.
	DeleteAccount(ctx context.Context, id string) error
}

// LedgerStore owns transactions and keeps Account.CoinBalance equal to the sum
// of completed transaction amounts.
type LedgerStore interface {
	// Append stores tx. A completed tx adjusts the balance in the same step and
	// fails with domain.ErrInsufficientBalance if the balance would go negative,
	// in which case nothing is stored.
	Append(ctx context.Context, tx *domain.Transaction) error
	// Settle moves a pending tx to completed or failed, crediting the balance on
	// completion. Settling a non-pending tx returns domain.ErrInvalidTransition.
	Settle(ctx context.Context, txID string, status domain.TransactionStatus, at time.Time) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error)
	// FindRefund returns the refund of originalID, or nil, nil.
	FindRefund(ctx context.Context, originalID string) (*domain.Transaction, error)
	// ListTransactions returns most-recent-first.
	ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error)
	Balance(ctx context.Context, accountID string) (int64, error)
}

// OrderStore persists orders. Missing orders match domain.ErrNotFound.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	UpdateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	// ListOrders returns most-recent-first.
	ListOrders(ctx context.Context, accountID string) ([]domain.Order, error)
}

// EventPublisher hands domain events to the notification pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, ev domain.Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev domain.Event) error {
	return f(ctx, ev)
}

// Discard drops every event.
var Discard EventPublisher = PublisherFunc(func(context.Context, domain.Event) error { return nil })

// Outbox queues webhook deliveries for the background worker.
type Outbox interface {
	Enqueue(ctx context.Context, url string, payload []byte) error
	// Claim takes the oldest due job, or returns nil, nil when none is due.
	// A claimed job is invisible to other claimers until retried.
	Claim(ctx context.Context, now time.Time) (*domain.WebhookJob, error)
	Complete(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, next time.Time) error
	Fail(ctx context.Context, id string) error
}
