// Package order turns cart snapshots into paid orders and drives their status.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ibrahimkeyboad/maxen/internal/core/cart"
	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/keylock"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

// Wallet is the part of the wallet ledger checkout needs.
type Wallet interface {
	Charge(ctx context.Context, accountID string, amount int64, description string) (*domain.Transaction, error)
	Refund(ctx context.Context, accountID, originalTransactionID string) (*domain.Transaction, error)
	RefundOf(ctx context.Context, accountID, originalTransactionID string) (*domain.Transaction, error)
}

// Carts is the part of the cart ledger checkout needs.
type Carts interface {
	Clear(ctx context.Context, accountID string)
}

type Processor struct {
	catalog ports.Catalog
	carts   Carts
	wallet  Wallet
	orders  ports.OrderStore
	events  ports.EventPublisher
	logger  *slog.Logger
	now     func() time.Time

	orderLocks *keylock.Map

	tracer    trace.Tracer
	checkouts metric.Int64Counter
}

func NewProcessor(catalog ports.Catalog, carts Carts, wallet Wallet, orders ports.OrderStore, events ports.EventPublisher, logger *slog.Logger) *Processor {
	if events == nil {
		events = ports.Discard
	}
	p := &Processor{
		catalog:    catalog,
		carts:      carts,
		wallet:     wallet,
		orders:     orders,
		events:     events,
		logger:     logger.With("component", "order"),
		now:        time.Now,
		orderLocks: keylock.New(),
		tracer:     otel.Tracer("maxen/order"),
	}
	counter, err := otel.Meter("maxen/order").Int64Counter("order.checkouts",
		metric.WithDescription("Checkout attempts by outcome"))
	if err != nil {
		p.logger.Warn("order metrics disabled", "error", err)
	}
	p.checkouts = counter
	return p
}

// SetClock overrides time.Now; used by tests.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	default:
		return "error"
	}
}

// Checkout charges the wallet for the snapshot and records the order. It is
// all-or-nothing: on any failure no order exists and the balance is unchanged.
// The account's cart is cleared only on success.
func (p *Processor) Checkout(ctx context.Context, accountID string, snapshot []domain.CartItem, paymentMethod string) (o *domain.Order, err error) {
	ctx, span := p.tracer.Start(ctx, "order.Checkout", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.Int("items", len(snapshot)),
	))
	defer func() {
		if p.checkouts != nil {
			p.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", checkoutOutcome(err))))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if paymentMethod == "" {
		paymentMethod = domain.MethodCoins
	}

	// 1. Validate
	if len(snapshot) == 0 {
		return nil, &domain.CheckoutError{Err: domain.ErrEmptyCart}
	}
	delivery := domain.DeliveryInstant
	for _, item := range snapshot {
		current, err := p.catalog.GetProduct(ctx, item.Product.ID)
		if err != nil {
			return nil, fmt.Errorf("lookup product %s: %w", item.Product.ID, err)
		}
		if current == nil || !current.InStock {
			return nil, &domain.CheckoutError{Err: &domain.ProductUnavailableError{ProductID: item.Product.ID}}
		}
		if item.Product.DeliveryType == domain.DeliveryManual {
			delivery = domain.DeliveryManual
		}
	}

	// 2. Price from the snapshot
	total, err := cart.CheckedTotal(snapshot)
	if err != nil {
		return nil, &domain.CheckoutError{Err: err}
	}

	// 3. Charge
	charge, err := p.wallet.Charge(ctx, accountID, total, describe(snapshot))
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return nil, &domain.CheckoutError{Err: err}
		}
		return nil, fmt.Errorf("charge wallet: %w", err)
	}

	// 4. Create the order and move it past pending
	now := p.now()
	o = &domain.Order{
		ID:                  uuid.NewString(),
		AccountID:           accountID,
		Items:               append([]domain.CartItem(nil), snapshot...),
		Total:               total,
		Status:              domain.OrderPending,
		PaymentMethod:       paymentMethod,
		DeliveryType:        delivery,
		ChargeTransactionID: charge.ID,
		CreatedAt:           now,
	}
	next := domain.OrderCompleted
	if delivery == domain.DeliveryManual {
		next = domain.OrderProcessing
	}
	if err := transition(o, next, now); err != nil {
		return nil, err
	}

	if err := p.orders.CreateOrder(ctx, o); err != nil {
		// Compensate so the checkout leaves no trace.
		if _, refundErr := p.wallet.Refund(ctx, accountID, charge.ID); refundErr != nil {
			p.logger.Error("failed to refund charge after order write failure",
				"account_id", accountID, "tx_id", charge.ID, "error", refundErr)
		}
		return nil, fmt.Errorf("save order: %w", err)
	}

	// 5. Clear the cart
	p.carts.Clear(ctx, accountID)

	p.logger.Info("checkout completed", "account_id", accountID, "order_id", o.ID, "total", total, "status", o.Status)
	event := domain.EventOrderCompleted
	if o.Status == domain.OrderProcessing {
		event = domain.EventOrderProcessing
	}
	p.publish(ctx, event, o)
	return o, nil
}

func describe(items []domain.CartItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := item.Product.Name
		if name == "" {
			name = item.Product.ID
		}
		if item.Quantity > 1 {
			name = fmt.Sprintf("%s x%d", name, item.Quantity)
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func (p *Processor) publish(ctx context.Context, eventType string, o *domain.Order) {
	err := p.events.Publish(ctx, domain.Event{
		Type:      eventType,
		AccountID: o.AccountID,
		Data: map[string]any{
			"order_id":      o.ID,
			"total":         o.Total,
			"status":        string(o.Status),
			"delivery_type": string(o.DeliveryType),
		},
		OccurredAt: p.now(),
	})
	if err != nil {
		p.logger.Error("failed to publish order event", "order_id", o.ID, "event", eventType, "error", err)
	}
}

// Get returns an order owned by accountID.
func (p *Processor) Get(ctx context.Context, accountID, orderID string) (*domain.Order, error) {
	o, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.AccountID != accountID {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	return o, nil
}

// List returns the account's orders, most recent first.
func (p *Processor) List(ctx context.Context, accountID string) ([]domain.Order, error) {
	return p.orders.ListOrders(ctx, accountID)
}

// Cancel stops an order that is not yet completed and refunds its total.
// Retrying after a failed save reuses the refund already issued.
func (p *Processor) Cancel(ctx context.Context, accountID, orderID string) (*domain.Order, error) {
	unlock := p.orderLocks.Lock(orderID)
	defer unlock()

	o, err := p.Get(ctx, accountID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(domain.OrderCancelled) {
		return nil, fmt.Errorf("cancel %s order: %w", o.Status, domain.ErrInvalidTransition)
	}
	now := p.now()

	refund, err := p.wallet.Refund(ctx, accountID, o.ChargeTransactionID)
	if errors.Is(err, domain.ErrAlreadyRefunded) {
		refund, err = p.wallet.RefundOf(ctx, accountID, o.ChargeTransactionID)
		if err == nil && refund == nil {
			err = domain.ErrAlreadyRefunded
		}
	}
	if err != nil {
		return nil, fmt.Errorf("refund order %s: %w", orderID, err)
	}

	o.RefundTransactionID = refund.ID
	if err := transition(o, domain.OrderCancelled, now); err != nil {
		return nil, err
	}
	if err := p.orders.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	p.logger.Info("order cancelled", "account_id", accountID, "order_id", orderID, "refund", refund.Amount)
	p.publish(ctx, domain.EventOrderCancelled, o)
	return o, nil
}

// Fulfill completes a manual-delivery order once it has been delivered. An
// order whose charge was already refunded can only be cancelled.
func (p *Processor) Fulfill(ctx context.Context, orderID string) (*domain.Order, error) {
	unlock := p.orderLocks.Lock(orderID)
	defer unlock()

	o, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.OrderProcessing {
		return nil, fmt.Errorf("fulfill %s order: %w", o.Status, domain.ErrInvalidTransition)
	}
	refund, err := p.wallet.RefundOf(ctx, o.AccountID, o.ChargeTransactionID)
	if err != nil {
		return nil, fmt.Errorf("check refund of order %s: %w", orderID, err)
	}
	if refund != nil {
		return nil, fmt.Errorf("fulfill refunded order: %w", domain.ErrInvalidTransition)
	}
	if err := transition(o, domain.OrderCompleted, p.now()); err != nil {
		return nil, err
	}
	if err := p.orders.UpdateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	p.logger.Info("order fulfilled", "order_id", orderID)
	p.publish(ctx, domain.EventOrderCompleted, o)
	return o, nil
}

// transition moves o to status and stamps the matching timestamp.
func transition(o *domain.Order, to domain.OrderStatus, at time.Time) error {
	if !o.Status.CanTransition(to) {
		return fmt.Errorf("%s -> %s: %w", o.Status, to, domain.ErrInvalidTransition)
	}
	o.Status = to
	switch to {
	case domain.OrderCompleted:
		o.CompletedAt = &at
	case domain.OrderCancelled:
		o.CancelledAt = &at
	}
	return nil
}
