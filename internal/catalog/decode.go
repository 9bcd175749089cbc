package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/slug"
)

// rawProduct is a products.json entry as written by hand or by older
// tooling: images may be bare URLs, prices may be a bare number, and most
// derived fields may be missing.
type rawProduct struct {
	ID               flexID             `json:"id"`
	Handle           string             `json:"handle"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Tags             []string           `json:"tags"`
	AvailableForSale *bool              `json:"availableForSale"`
	Price            json.RawMessage    `json:"price"`
	PriceRange       *domain.PriceRange `json:"priceRange"`
	FeaturedImage    *domain.Image      `json:"featuredImage"`
	Images           []json.RawMessage  `json:"images"`
	Variants         []domain.Variant   `json:"variants"`
	UpdatedAt        string             `json:"updatedAt"`
}

// flexID accepts an ID written either as a JSON string or a number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	*f = flexID(b)
	return nil
}

// decodeProducts parses a JSON array of products and normalizes each entry.
// It returns the data-quality warnings found along the way.
func decodeProducts(data []byte) ([]domain.Product, []string, error) {
	var raws []rawProduct
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, nil, fmt.Errorf("decode products: %w", err)
	}

	products := make([]domain.Product, 0, len(raws))
	var warnings []string
	for i, raw := range raws {
		p, w, err := normalize(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("product %d: %w", i, err)
		}
		products = append(products, p)
		warnings = append(warnings, w...)
	}
	return products, warnings, nil
}

func normalize(raw rawProduct) (domain.Product, []string, error) {
	var warnings []string

	p := domain.Product{
		ID:               string(raw.ID),
		Handle:           raw.Handle,
		Title:            raw.Title,
		Description:      raw.Description,
		Tags:             raw.Tags,
		AvailableForSale: raw.AvailableForSale == nil || *raw.AvailableForSale,
		FeaturedImage:    raw.FeaturedImage,
		Variants:         raw.Variants,
		UpdatedAt:        raw.UpdatedAt,
	}
	if p.ID == "" {
		return p, nil, fmt.Errorf("missing id")
	}
	if p.Handle == "" {
		p.Handle = slug.Generate(p.Title)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	images, err := decodeImages(raw.Images, p.Title)
	if err != nil {
		return p, nil, err
	}
	p.Images = images
	if p.FeaturedImage == nil && len(images) > 0 {
		first := images[0]
		p.FeaturedImage = &first
	}

	// A product without variants sells as a single default variant.
	if len(p.Variants) == 0 {
		amount := rawPrice(raw.Price)
		if amount == "" && raw.PriceRange != nil {
			amount = raw.PriceRange.MinVariantPrice.Amount
		}
		p.Variants = []domain.Variant{domain.NormalizeVariant(domain.Variant{
			ID:               "variant-" + p.ID,
			Title:            p.Title,
			AvailableForSale: p.AvailableForSale,
			Price:            domain.Money{Amount: amount},
		})}
	}

	for _, v := range p.Variants {
		if v.PriceMissing {
			warnings = append(warnings, fmt.Sprintf("product %s variant %s has no usable price, using 0", p.ID, v.ID))
		}
	}

	if raw.PriceRange != nil {
		p.PriceRange = *raw.PriceRange
	} else {
		p.PriceRange = priceRange(p.Variants)
	}

	return p, warnings, nil
}

// decodeImages accepts ["url", ...] or [{url, altText, ...}, ...].
func decodeImages(raws []json.RawMessage, alt string) ([]domain.Image, error) {
	images := make([]domain.Image, 0, len(raws))
	for _, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '"' {
			var url string
			if err := json.Unmarshal(raw, &url); err != nil {
				return nil, fmt.Errorf("decode image url: %w", err)
			}
			images = append(images, domain.Image{URL: url, AltText: alt, Width: 800, Height: 800})
			continue
		}
		var img domain.Image
		if err := json.Unmarshal(raw, &img); err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		images = append(images, img)
	}
	return images, nil
}

func rawPrice(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// priceRange derives the min and max variant prices. Currency comes from
// the cheapest variant.
func priceRange(variants []domain.Variant) domain.PriceRange {
	if len(variants) == 0 {
		zero := domain.ZeroMoney(domain.DefaultCurrency)
		return domain.PriceRange{MinVariantPrice: zero, MaxVariantPrice: zero}
	}

	minV, maxV := variants[0].Price, variants[0].Price
	for _, v := range variants[1:] {
		d := v.Price.Decimal()
		if d.LessThan(minV.Decimal()) {
			minV = v.Price
		}
		if d.GreaterThan(maxV.Decimal()) {
			maxV = v.Price
		}
	}
	return domain.PriceRange{MinVariantPrice: minV, MaxVariantPrice: maxV}
}

// maxPrice is the sort key for price and trending sorts.
func maxPrice(p domain.Product) decimal.Decimal {
	return p.PriceRange.MaxVariantPrice.Decimal()
}
