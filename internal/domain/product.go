package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Image is a product image reference.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// SelectedOption is one option name/value pair of a variant, e.g. Size=M.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PriceRange bounds the prices of a product's variants.
type PriceRange struct {
	MinVariantPrice Money `json:"minVariantPrice"`
	MaxVariantPrice Money `json:"maxVariantPrice"`
}

// Product is a read-only catalog entry.
type Product struct {
	ID               string     `json:"id"`
	Handle           string     `json:"handle"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Tags             []string   `json:"tags"`
	AvailableForSale bool       `json:"availableForSale"`
	PriceRange       PriceRange `json:"priceRange"`
	FeaturedImage    *Image     `json:"featuredImage,omitempty"`
	Images           []Image    `json:"images"`
	Variants         []Variant  `json:"variants"`
	UpdatedAt        string     `json:"updatedAt,omitempty"`
}

// Snapshot captures the display fields embedded into a cart line.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:            p.ID,
		Handle:        p.Handle,
		Title:         p.Title,
		FeaturedImage: p.FeaturedImage,
	}
}

// ProductSnapshot is the product display data held by a cart line. It is
// captured when the line is created and refreshed when the cart is re-priced.
type ProductSnapshot struct {
	ID            string `json:"id"`
	Handle        string `json:"handle"`
	Title         string `json:"title"`
	FeaturedImage *Image `json:"featuredImage,omitempty"`
}

// Variant is a purchasable configuration of a product. Price is always set
// once the variant went through NormalizeVariant or JSON decoding.
type Variant struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	AvailableForSale bool             `json:"availableForSale"`
	SelectedOptions  []SelectedOption `json:"selectedOptions"`
	Price            Money            `json:"price"`

	// PriceMissing is set when no usable price was found and 0 was assumed.
	PriceMissing bool `json:"-"`
}

// NormalizeVariant fills in defaults: an unparseable amount becomes "0" and
// an empty currency becomes DefaultCurrency.
func NormalizeVariant(v Variant) Variant {
	amount, err := decimal.NewFromString(strings.TrimSpace(v.Price.Amount))
	if err != nil {
		amount = decimal.Zero
		v.PriceMissing = true
	}
	v.Price = NewMoney(amount, v.Price.CurrencyCode)
	if v.SelectedOptions == nil {
		v.SelectedOptions = []SelectedOption{}
	}
	return v
}

// UnmarshalJSON accepts price either as {amount, currencyCode}, as a bare
// number, or as a numeric string, then normalizes the variant.
func (v *Variant) UnmarshalJSON(data []byte) error {
	type plain Variant
	var raw struct {
		plain
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Variant(raw.plain)
	price, err := decodePrice(raw.Price)
	if err != nil {
		return fmt.Errorf("variant %q price: %w", out.ID, err)
	}
	out.Price = price

	*v = NormalizeVariant(out)
	return nil
}

func decodePrice(raw json.RawMessage) (Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Money{}, nil
	}

	switch raw[0] {
	case '{':
		var m struct {
			Amount       json.RawMessage `json:"amount"`
			CurrencyCode string          `json:"currencyCode"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return Money{}, err
		}
		amount, err := decodeAmount(m.Amount)
		if err != nil {
			return Money{}, err
		}
		return Money{Amount: amount, CurrencyCode: m.CurrencyCode}, nil
	default:
		amount, err := decodeAmount(raw)
		if err != nil {
			return Money{}, err
		}
		return Money{Amount: amount}, nil
	}
}

// decodeAmount accepts 12.5 or "12.5".
func decodeAmount(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		return strconv.Unquote(string(raw))
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
