// Package catalog serves the read-only product catalog loaded from a static
// JSON file.
package catalog

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/pagination"
)

// Sort keys accepted by ListProducts.
const (
	SortRelevance = "relevance"
	SortTrending  = "trending-desc"
	SortLatest    = "latest-desc"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
)

// DefaultRecommendations is how many products Recommendations returns when
// asked for n <= 0.
const DefaultRecommendations = 3

var catalogProducts = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "storefront_catalog_products",
	Help: "Number of products in the loaded catalog",
})

// Filter selects and orders products.
type Filter struct {
	Query   string
	Tag     string
	Sort    string
	Page    int
	PerPage int
}

// ValidSort reports whether s is a supported sort key. Empty means relevance.
func ValidSort(s string) bool {
	switch s {
	case "", SortRelevance, SortTrending, SortLatest, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

type variantRef struct {
	product int
	variant int
}

type snapshot struct {
	products []domain.Product
	byHandle map[string]int
	byID     map[string]int
	variants map[string]variantRef
}

// Store is the in-memory product catalog. Reads are safe for concurrent use
// and Reload swaps the whole snapshot at once.
type Store struct {
	path   string
	logger *slog.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// NewStore loads the catalog at path.
func NewStore(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreFromProducts builds a store over an already normalized list.
func NewStoreFromProducts(products []domain.Product, logger *slog.Logger) *Store {
	s := &Store{logger: logger}
	s.swap(products)
	return s
}

// Reload re-reads the catalog file. On failure the previous catalog stays
// in place.
func (s *Store) Reload(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("catalog has no source file")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", s.path, err)
	}

	products, warnings, err := decodeProducts(data)
	if err != nil {
		return fmt.Errorf("load catalog %s: %w", s.path, err)
	}
	for _, w := range warnings {
		s.logger.WarnContext(ctx, "catalog data quality", slog.String("detail", w))
	}

	s.swap(products)
	s.logger.InfoContext(ctx, "catalog loaded",
		slog.String("path", s.path),
		slog.Int("products", len(products)),
	)
	return nil
}

func (s *Store) swap(products []domain.Product) {
	snap := &snapshot{
		products: products,
		byHandle: make(map[string]int, len(products)),
		byID:     make(map[string]int, len(products)),
		variants: make(map[string]variantRef),
	}
	for i, p := range products {
		snap.byHandle[p.Handle] = i
		snap.byID[p.ID] = i
		for j, v := range p.Variants {
			if v.ID != "" {
				snap.variants[v.ID] = variantRef{product: i, variant: j}
			}
		}
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	catalogProducts.Set(float64(len(products)))
}

func (s *Store) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Count returns the number of products.
func (s *Store) Count() int {
	return len(s.current().products)
}

// GetProduct returns the product with the given handle.
func (s *Store) GetProduct(_ context.Context, handle string) (*domain.Product, error) {
	snap := s.current()
	i, ok := snap.byHandle[handle]
	if !ok {
		return nil, apperrors.NotFound("product", handle)
	}
	p := snap.products[i]
	return &p, nil
}

// FindVariant resolves a variant ID to the variant and its product. A
// product ID is accepted too and resolves to the product's first variant.
func (s *Store) FindVariant(_ context.Context, variantID string) (domain.Variant, domain.Product, error) {
	snap := s.current()
	if ref, ok := snap.variants[variantID]; ok {
		p := snap.products[ref.product]
		return p.Variants[ref.variant], p, nil
	}
	if i, ok := snap.byID[variantID]; ok && len(snap.products[i].Variants) > 0 {
		p := snap.products[i]
		return p.Variants[0], p, nil
	}
	return domain.Variant{}, domain.Product{}, apperrors.NotFound("variant", variantID)
}

// ListProducts filters by free-text query and tag, sorts, and paginates.
// The query matches title, description and tags case-insensitively.
func (s *Store) ListProducts(_ context.Context, f Filter) (pagination.Result[domain.Product], error) {
	if !ValidSort(f.Sort) {
		return pagination.Result[domain.Product]{}, apperrors.InvalidInput(fmt.Sprintf("unknown sort %q", f.Sort))
	}

	snap := s.current()
	q := strings.ToLower(strings.TrimSpace(f.Query))

	matched := make([]domain.Product, 0, len(snap.products))
	for _, p := range snap.products {
		if f.Tag != "" && !hasTag(p, f.Tag) {
			continue
		}
		if q != "" && !matches(p, q) {
			continue
		}
		matched = append(matched, p)
	}

	sortProducts(matched, f.Sort)
	return pagination.Slice(matched, pagination.New(f.Page, f.PerPage)), nil
}

// Collections returns the distinct product tags, sorted.
func (s *Store) Collections(_ context.Context) []string {
	seen := make(map[string]struct{})
	for _, p := range s.current().products {
		for _, t := range p.Tags {
			seen[t] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// Recommendations returns the first n products other than productID.
func (s *Store) Recommendations(_ context.Context, productID string, n int) []domain.Product {
	if n <= 0 {
		n = DefaultRecommendations
	}

	out := make([]domain.Product, 0, n)
	for _, p := range s.current().products {
		if len(out) == n {
			break
		}
		if p.ID != productID {
			out = append(out, p)
		}
	}
	return out
}

func hasTag(p domain.Product, tag string) bool {
	return slices.ContainsFunc(p.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
}

func matches(p domain.Product, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Description), q) {
		return true
	}
	return slices.ContainsFunc(p.Tags, func(t string) bool { return strings.Contains(strings.ToLower(t), q) })
}

// sortProducts orders in place. Relevance keeps catalog order. Latest uses
// the numeric ID as creation order; trending uses the highest price as a
// best-seller proxy.
func sortProducts(products []domain.Product, sortBy string) {
	switch sortBy {
	case SortLatest:
		slices.SortStableFunc(products, func(a, b domain.Product) int { return compareIDs(b.ID, a.ID) })
	case SortPriceAsc:
		slices.SortStableFunc(products, func(a, b domain.Product) int { return maxPrice(a).Cmp(maxPrice(b)) })
	case SortPriceDesc, SortTrending:
		slices.SortStableFunc(products, func(a, b domain.Product) int { return maxPrice(b).Cmp(maxPrice(a)) })
	}
}

func compareIDs(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(a, b)
}
