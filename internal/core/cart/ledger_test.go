package cart

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/maxen/internal/core/catalog"
	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	store, err := catalog.Default()
	require.NoError(t, err)
	return NewLedger(store)
}

func TestAddMergesLinesAndKeepsOrder(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Add(ctx, "acc-1", "pubg-uc-660", 1))
	require.NoError(t, l.Add(ctx, "acc-1", "fortnite-2800", 1))
	require.NoError(t, l.Add(ctx, "acc-1", "pubg-uc-660", 2))

	snap := l.Snapshot(ctx, "acc-1")
	require.Len(t, snap, 2)
	assert.Equal(t, "pubg-uc-660", snap[0].Product.ID)
	assert.Equal(t, 3, snap[0].Quantity)
	assert.Equal(t, "fortnite-2800", snap[1].Product.ID)

	assert.Equal(t, 4, l.TotalItems(ctx, "acc-1"))
	assert.Equal(t, int64(3*999+1999), l.TotalCost(ctx, "acc-1"))
}

func TestAddRejections(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	err := l.Add(ctx, "acc-1", "psn-gift-25", 1)
	var unavailable *domain.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "psn-gift-25", unavailable.ProductID)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)

	assert.ErrorIs(t, l.Add(ctx, "acc-1", "missing", 1), domain.ErrProductNotFound)
	assert.ErrorIs(t, l.Add(ctx, "acc-1", "pubg-uc-660", 0), domain.ErrInvalidQuantity)
	assert.Empty(t, l.Snapshot(ctx, "acc-1"))
}

func TestSetQuantity(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, "acc-1", "steam-gift-50", 1))

	require.NoError(t, l.SetQuantity(ctx, "acc-1", "steam-gift-50", 4))
	assert.Equal(t, 4, l.TotalItems(ctx, "acc-1"))

	assert.ErrorIs(t, l.SetQuantity(ctx, "acc-1", "steam-gift-50", -1), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, l.SetQuantity(ctx, "acc-1", "pubg-uc-660", 2), domain.ErrNotFound)

	require.NoError(t, l.SetQuantity(ctx, "acc-1", "steam-gift-50", 0))
	assert.Empty(t, l.Snapshot(ctx, "acc-1"))
	assert.ErrorIs(t, l.Remove(ctx, "acc-1", "steam-gift-50"), domain.ErrNotFound)
}

func TestCartsAreScopedPerAccount(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Add(ctx, "acc-1", "pubg-uc-660", 1))
	require.NoError(t, l.Add(ctx, "acc-2", "fortnite-2800", 1))

	l.Reset(ctx, "acc-1")
	assert.Empty(t, l.Snapshot(ctx, "acc-1"))
	assert.Len(t, l.Snapshot(ctx, "acc-2"), 1)

	l.Clear(ctx, "acc-2")
	assert.Zero(t, l.TotalCost(ctx, "acc-2"))
}

func TestSnapshotIsACopy(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, "acc-1", "pubg-uc-660", 1))

	snap := l.Snapshot(ctx, "acc-1")
	snap[0].Quantity = 99
	assert.Equal(t, 1, l.Snapshot(ctx, "acc-1")[0].Quantity)
}

func TestQuantityIsCapped(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	assert.ErrorIs(t, l.Add(ctx, "acc-1", "fortnite-2800", math.MaxInt), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, l.Add(ctx, "acc-1", "fortnite-2800", domain.MaxQuantity+1), domain.ErrInvalidQuantity)
	assert.Empty(t, l.Snapshot(ctx, "acc-1"))

	require.NoError(t, l.Add(ctx, "acc-1", "fortnite-2800", domain.MaxQuantity-1))
	assert.ErrorIs(t, l.Add(ctx, "acc-1", "fortnite-2800", 2), domain.ErrInvalidQuantity, "merged line over the cap")
	assert.Equal(t, domain.MaxQuantity-1, l.TotalItems(ctx, "acc-1"))

	require.NoError(t, l.Add(ctx, "acc-1", "fortnite-2800", 1))
	assert.Equal(t, domain.MaxQuantity, l.TotalItems(ctx, "acc-1"))

	assert.ErrorIs(t, l.SetQuantity(ctx, "acc-1", "fortnite-2800", domain.MaxQuantity+1), domain.ErrInvalidQuantity)
	assert.Equal(t, int64(1999*domain.MaxQuantity), l.TotalCost(ctx, "acc-1"))
}

func TestCheckedTotal(t *testing.T) {
	line := func(price int64, qty int) domain.CartItem {
		return domain.CartItem{Product: domain.Product{ID: "p", Price: price}, Quantity: qty}
	}

	total, err := CheckedTotal([]domain.CartItem{line(1999, 2), line(999, 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(4997), total)

	tests := map[string][]domain.CartItem{
		"zero quantity":     {line(1999, 0)},
		"quantity over cap": {line(1999, math.MaxInt)},
		"line overflows":    {line(math.MaxInt64/2, 3)},
		"sum overflows":     {line(math.MaxInt64/2, 1), line(math.MaxInt64/2, 1), line(10, 1)},
		"negative price":    {line(-5, 1)},
	}
	for name, items := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := CheckedTotal(items)
			assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		})
	}
}
