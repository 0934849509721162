// Package catalog serves the read-only product catalog loaded from YAML.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

//go:embed catalog.yaml
var seedCatalog []byte

type document struct {
	Categories []domain.Category `yaml:"categories"`
	Products   []domain.Product  `yaml:"products"`
}

// Store is an immutable in-memory catalog. Safe for concurrent use.
type Store struct {
	categories []domain.Category
	products   []domain.Product
	byID       map[string]int
}

var _ ports.Catalog = (*Store)(nil)

// Default returns the catalog bundled with the binary.
func Default() (*Store, error) {
	return Load(bytes.NewReader(seedCatalog))
}

// LoadFile reads a catalog from a YAML file, or the bundled one when path is empty.
func LoadFile(path string) (*Store, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a YAML catalog.
func Load(r io.Reader) (*Store, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Categories, doc.Products)
}

// New builds a store from already decoded data. Products reference categories by CategoryID.
func New(categories []domain.Category, products []domain.Product) (*Store, error) {
	cats := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		if c.ID == "" || c.Slug == "" {
			return nil, fmt.Errorf("category %q: id and slug are required", c.Name)
		}
		cats[c.ID] = c
	}

	s := &Store{
		categories: append([]domain.Category(nil), categories...),
		products:   make([]domain.Product, 0, len(products)),
		byID:       make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product %q: id is required", p.Name)
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %s: duplicate id", p.ID)
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("product %s: price must be positive", p.ID)
		}
		if p.DeliveryType != domain.DeliveryInstant && p.DeliveryType != domain.DeliveryManual {
			return nil, fmt.Errorf("product %s: unknown delivery type %q", p.ID, p.DeliveryType)
		}
		cat, ok := cats[p.CategoryID]
		if !ok {
			return nil, fmt.Errorf("product %s: unknown category %q", p.ID, p.CategoryID)
		}
		p.Category = cat
		p.Tags = append([]string(nil), p.Tags...)
		s.byID[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	return s, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	i, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	p := s.products[i]
	return &p, nil
}

func (s *Store) Categories(ctx context.Context) ([]domain.Category, error) {
	return append([]domain.Category(nil), s.categories...), nil
}

// Regions lists the distinct product regions in catalog order.
func (s *Store) Regions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range s.products {
		if !seen[p.Region] {
			seen[p.Region] = true
			out = append(out, p.Region)
		}
	}
	return out
}

func (s *Store) ListProducts(ctx context.Context, filter ports.ProductFilter) ([]domain.Product, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Category != "" && p.Category.Slug != filter.Category {
			continue
		}
		if filter.Region != "" && p.Region != filter.Region {
			continue
		}
		if search != "" && !matches(p, search) {
			continue
		}
		out = append(out, p)
	}

	switch filter.Sort {
	case ports.SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case ports.SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case ports.SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	case ports.SortPopular:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ReviewCount > out[j].ReviewCount })
	case ports.SortNewest, "":
		sort.SliceStable(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidFilter, filter.Sort)
	}
	return out, nil
}

func matches(p domain.Product, term string) bool {
	if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Description), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
