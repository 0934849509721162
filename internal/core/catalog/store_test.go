package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

func ids(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestDefaultCatalog(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)
	ctx := context.Background()

	p, err := s.GetProduct(ctx, "fortnite-2800")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(1999), p.Price)
	assert.Equal(t, "game-currency", p.Category.Slug)
	assert.Equal(t, domain.DeliveryInstant, p.DeliveryType)

	missing, err := s.GetProduct(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 3)
	assert.Equal(t, []string{"Global", "MENA", "US", "EU"}, s.Regions())
}

func TestListProducts(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ports.ProductFilter
		want   []string
	}{
		{"newest by default", ports.ProductFilter{},
			[]string{"fortnite-2800", "xbox-gamepass-3m", "pubg-uc-660", "netflix-premium-1m", "steam-gift-50", "psn-gift-25"}},
		{"category", ports.ProductFilter{Category: "subscriptions"},
			[]string{"xbox-gamepass-3m", "netflix-premium-1m"}},
		{"region", ports.ProductFilter{Region: "US", Sort: ports.SortPriceLow},
			[]string{"netflix-premium-1m", "steam-gift-50"}},
		{"search matches tags", ports.ProductFilter{Search: "  SONY "},
			[]string{"psn-gift-25"}},
		{"price high", ports.ProductFilter{Category: "game-currency", Sort: ports.SortPriceHigh},
			[]string{"fortnite-2800", "pubg-uc-660"}},
		{"rating", ports.ProductFilter{Category: "gift-cards", Sort: ports.SortRating},
			[]string{"steam-gift-50", "psn-gift-25"}},
		{"popular", ports.ProductFilter{Category: "subscriptions", Sort: ports.SortPopular},
			[]string{"xbox-gamepass-3m", "netflix-premium-1m"}},
		{"no match", ports.ProductFilter{Search: "minecraft"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListProducts(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err = s.ListProducts(ctx, ports.ProductFilter{Sort: "cheapest"})
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}

func TestLoadRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"unknown field": `
categories: [{id: "1", name: A, slug: a}]
products: [{id: x, price: 1, category: "1", delivery_type: instant, colour: red}]`,
		"zero price": `
categories: [{id: "1", name: A, slug: a}]
products: [{id: x, price: 0, category: "1", delivery_type: instant}]`,
		"unknown category": `
categories: [{id: "1", name: A, slug: a}]
products: [{id: x, price: 5, category: "9", delivery_type: instant}]`,
		"duplicate id": `
categories: [{id: "1", name: A, slug: a}]
products:
  - {id: x, price: 5, category: "1", delivery_type: instant}
  - {id: x, price: 6, category: "1", delivery_type: manual}`,
		"bad delivery type": `
categories: [{id: "1", name: A, slug: a}]
products: [{id: x, price: 5, category: "1", delivery_type: drone}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
