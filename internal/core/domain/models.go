package domain

import (
	"time"
)

// WelcomeBonus is credited to every new account before any other operation.
const WelcomeBonus int64 = 100

// Account represents a shopper's identity and coin wallet
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	CoinBalance  int64     `json:"coin_balance"`
	Language     string    `json:"language"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type DeliveryType string

const (
	DeliveryInstant DeliveryType = "instant"
	DeliveryManual  DeliveryType = "manual"
)

// Category groups products in the catalog
type Category struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Slug        string `json:"slug" yaml:"slug"`
	Description string `json:"description" yaml:"description"`
}

// Product is an immutable catalog entry. Prices are in coins.
type Product struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	Description   string       `json:"description" yaml:"description"`
	Price         int64        `json:"price" yaml:"price"`
	OriginalPrice int64        `json:"original_price,omitempty" yaml:"original_price"`
	Category      Category     `json:"category" yaml:"-"`
	CategoryID    string       `json:"-" yaml:"category"`
	Region        string       `json:"region" yaml:"region"`
	Tags          []string     `json:"tags" yaml:"tags"`
	DeliveryType  DeliveryType `json:"delivery_type" yaml:"delivery_type"`
	InStock       bool         `json:"in_stock" yaml:"in_stock"`
	Featured      bool         `json:"featured" yaml:"featured"`
	Rating        float64      `json:"rating" yaml:"rating"`
	ReviewCount   int          `json:"review_count" yaml:"review_count"`
	AddedAt       time.Time    `json:"added_at" yaml:"added_at"`
}

// MaxQuantity caps the units of one product in a cart or order line.
const MaxQuantity = 999

// CartItem is one line of a cart. Product is a copy taken when the line was added.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns price × quantity for the line.
func (i CartItem) LineTotal() int64 {
	return i.Product.Price * int64(i.Quantity)
}

type TransactionKind string

const (
	KindTopUp    TransactionKind = "topup"
	KindPurchase TransactionKind = "purchase"
	KindRefund   TransactionKind = "refund"
	KindBonus    TransactionKind = "bonus"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is an append-only movement of coins. Purchases carry a negative
// amount; top-ups, refunds and bonuses are positive.
type Transaction struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"account_id"`
	Kind        TransactionKind   `json:"kind"`
	Amount      int64             `json:"amount"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
	Method      string            `json:"method,omitempty"`
	RefundOf    string            `json:"refund_of,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	SettledAt   *time.Time        `json:"settled_at,omitempty"`
}

// Order is the result of a successful checkout.
type Order struct {
	ID                  string       `json:"id"`
	AccountID           string       `json:"account_id"`
	Items               []CartItem   `json:"items"`
	Total               int64        `json:"total"`
	Status              OrderStatus  `json:"status"`
	PaymentMethod       string       `json:"payment_method"`
	DeliveryType        DeliveryType `json:"delivery_type"`
	ChargeTransactionID string       `json:"charge_transaction_id"`
	RefundTransactionID string       `json:"refund_transaction_id,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	CompletedAt         *time.Time   `json:"completed_at,omitempty"`
	CancelledAt         *time.Time   `json:"cancelled_at,omitempty"`
}

// Event is a domain notification handed to the outbox.
type Event struct {
	Type       string         `json:"event"`
	AccountID  string         `json:"account_id"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"timestamp"`
}

const (
	EventTopUpCompleted  = "topup.completed"
	EventTopUpFailed     = "topup.failed"
	EventOrderCompleted  = "order.completed"
	EventOrderProcessing = "order.processing"
	EventOrderCancelled  = "order.cancelled"
)

// WebhookJob is a queued webhook delivery.
type WebhookJob struct {
	ID        string
	URL       string
	Payload   []byte
	Attempts  int
	NextRunAt time.Time
	CreatedAt time.Time
}
