// Package cart keeps the per-account shopping carts.
package cart

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

type cart struct {
	items map[string]*domain.CartItem
	order []string // product ids in first-add order
}

func newCart() *cart {
	return &cart{items: make(map[string]*domain.CartItem)}
}

func (c *cart) remove(productID string) {
	delete(c.items, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Ledger aggregates selected products into line items, one cart per account.
type Ledger struct {
	catalog ports.Catalog

	mu    sync.Mutex
	carts map[string]*cart
}

func NewLedger(catalog ports.Catalog) *Ledger {
	return &Ledger{
		catalog: catalog,
		carts:   make(map[string]*cart),
	}
}

// Add puts quantity units of the product in the account's cart, merging with
// an existing line.
func (l *Ledger) Add(ctx context.Context, accountID, productID string, quantity int) error {
	if err := checkQuantity(quantity); err != nil {
		return err
	}

	product, err := l.catalog.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("lookup product %s: %w", productID, err)
	}
	if product == nil {
		return fmt.Errorf("%s: %w", productID, domain.ErrProductNotFound)
	}
	if !product.InStock {
		return &domain.ProductUnavailableError{ProductID: productID}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.carts[accountID]
	if !ok {
		c = newCart()
		l.carts[accountID] = c
	}
	if item, ok := c.items[productID]; ok {
		if err := checkQuantity(item.Quantity + quantity); err != nil {
			return err
		}
		item.Quantity += quantity
		return nil
	}
	c.items[productID] = &domain.CartItem{Product: *product, Quantity: quantity}
	c.order = append(c.order, productID)
	return nil
}

// Remove drops the line for productID.
func (l *Ledger) Remove(ctx context.Context, accountID, productID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.carts[accountID]
	if !ok || c.items[productID] == nil {
		return fmt.Errorf("%s not in cart: %w", productID, domain.ErrNotFound)
	}
	c.remove(productID)
	return nil
}

// SetQuantity replaces the quantity of an existing line. Zero removes it.
func (l *Ledger) SetQuantity(ctx context.Context, accountID, productID string, quantity int) error {
	if quantity == 0 {
		return l.Remove(ctx, accountID, productID)
	}
	if err := checkQuantity(quantity); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.carts[accountID]
	if !ok || c.items[productID] == nil {
		return fmt.Errorf("%s not in cart: %w", productID, domain.ErrNotFound)
	}
	c.items[productID].Quantity = quantity
	return nil
}

// Clear empties the account's cart.
func (l *Ledger) Clear(ctx context.Context, accountID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.carts, accountID)
}

// Reset discards the cart when the account's session changes.
func (l *Ledger) Reset(ctx context.Context, accountID string) {
	l.Clear(ctx, accountID)
}

// Snapshot returns a copy of the lines in first-add order.
func (l *Ledger) Snapshot(ctx context.Context, accountID string) []domain.CartItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.carts[accountID]
	if !ok {
		return []domain.CartItem{}
	}
	out := make([]domain.CartItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

// TotalItems sums the quantities of all lines.
func (l *Ledger) TotalItems(ctx context.Context, accountID string) int {
	total := 0
	for _, item := range l.Snapshot(ctx, accountID) {
		total += item.Quantity
	}
	return total
}

// TotalCost sums price × quantity in coins.
func (l *Ledger) TotalCost(ctx context.Context, accountID string) int64 {
	return Total(l.Snapshot(ctx, accountID))
}

// Total sums price × quantity over items.
func Total(items []domain.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// CheckedTotal is Total for untrusted lines: every quantity must be within
// 1..MaxQuantity and neither a line nor the sum may overflow int64.
func CheckedTotal(items []domain.CartItem) (int64, error) {
	var total int64
	for _, item := range items {
		if err := checkQuantity(item.Quantity); err != nil {
			return 0, err
		}
		price := item.Product.Price
		if price < 0 || price > math.MaxInt64/int64(item.Quantity) {
			return 0, fmt.Errorf("%w: %s line total out of range", domain.ErrInvalidQuantity, item.Product.ID)
		}
		line := price * int64(item.Quantity)
		if total > math.MaxInt64-line {
			return 0, fmt.Errorf("%w: cart total out of range", domain.ErrInvalidQuantity)
		}
		total += line
	}
	return total, nil
}

func checkQuantity(quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if quantity > domain.MaxQuantity {
		return fmt.Errorf("%w: at most %d per item", domain.ErrInvalidQuantity, domain.MaxQuantity)
	}
	return nil
}
