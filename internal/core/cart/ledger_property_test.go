package cart

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/maxen/internal/core/catalog"
)

var inStock = []string{"fortnite-2800", "pubg-uc-660", "xbox-gamepass-3m", "netflix-premium-1m", "steam-gift-50"}

func TestCartProperties(t *testing.T) {
	store, err := catalog.Default()
	require.NoError(t, err)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("TotalCost equals sum of price times quantity", prop.ForAll(
		func(picks []int, qty []int) bool {
			ctx := context.Background()
			l := NewLedger(store)
			for i, pick := range picks {
				q := 1
				if i < len(qty) {
					q = qty[i]
				}
				if err := l.Add(ctx, "acc", inStock[pick], q); err != nil {
					return false
				}
			}
			var want int64
			for _, item := range l.Snapshot(ctx, "acc") {
				if item.Quantity < 1 {
					return false
				}
				want += item.Product.Price * int64(item.Quantity)
			}
			return l.TotalCost(ctx, "acc") == want
		},
		gen.SliceOf(gen.IntRange(0, len(inStock)-1)),
		gen.SliceOf(gen.IntRange(1, 5)),
	))

	properties.Property("add then remove restores the snapshot", prop.ForAll(
		func(picks []int, extra int) bool {
			ctx := context.Background()
			l := NewLedger(store)
			for _, pick := range picks {
				if err := l.Add(ctx, "acc", inStock[pick], 1); err != nil {
					return false
				}
			}
			before := l.Snapshot(ctx, "acc")
			for _, item := range before {
				if item.Product.ID == inStock[extra] {
					return true // already present: remove would drop the earlier line too
				}
			}

			if err := l.Add(ctx, "acc", inStock[extra], 2); err != nil {
				return false
			}
			if err := l.Remove(ctx, "acc", inStock[extra]); err != nil {
				return false
			}
			after := l.Snapshot(ctx, "acc")
			if len(before) != len(after) {
				return false
			}
			for i := range before {
				if before[i].Product.ID != after[i].Product.ID || before[i].Quantity != after[i].Quantity {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(inStock)-1)),
		gen.IntRange(0, len(inStock)-1),
	))

	properties.TestingRun(t)
}
