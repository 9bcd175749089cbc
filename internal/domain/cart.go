package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when a variant priced in one currency is
// added to a cart that already holds lines in another. Carts are
// single-currency.
var ErrCurrencyMismatch = errors.New("currency does not match cart currency")

// ErrCorruptCart is returned by Normalize for a stored cart whose lines cannot
// be trusted.
var ErrCorruptCart = errors.New("corrupt cart")

// UpdateType is a relative quantity change.
type UpdateType string

const (
	UpdatePlus   UpdateType = "plus"
	UpdateMinus  UpdateType = "minus"
	UpdateDelete UpdateType = "delete"
)

// Valid reports whether t is a known update type.
func (t UpdateType) Valid() bool {
	switch t {
	case UpdatePlus, UpdateMinus, UpdateDelete:
		return true
	}
	return false
}

// Cart is a shopper's cart. A Cart value is never mutated by the functions
// in this package; every operation returns a new value.
type Cart struct {
	ID            string     `json:"id,omitempty"`
	CheckoutURL   string     `json:"checkoutUrl"`
	TotalQuantity int        `json:"totalQuantity"`
	Lines         []LineItem `json:"lines"`
	Cost          CartCost   `json:"cost"`
}

// CartCost holds the aggregate amounts of a cart.
type CartCost struct {
	SubtotalAmount Money `json:"subtotalAmount"`
	TotalAmount    Money `json:"totalAmount"`
	TotalTaxAmount Money `json:"totalTaxAmount"`
}

// LineItem is one row of the cart. Quantity is always at least 1.
type LineItem struct {
	ID          string      `json:"id"`
	Quantity    int         `json:"quantity"`
	Cost        LineCost    `json:"cost"`
	Merchandise Merchandise `json:"merchandise"`
}

// LineCost is the total of a line: unit price times quantity.
type LineCost struct {
	TotalAmount Money `json:"totalAmount"`
}

// Merchandise identifies the variant a line refers to.
type Merchandise struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	SelectedOptions []SelectedOption `json:"selectedOptions"`
	Product         ProductSnapshot  `json:"product"`
}

// key is what lookups match against: the merchandise ID, or the line ID
// for lines without one.
func (l LineItem) key() string {
	if l.Merchandise.ID != "" {
		return l.Merchandise.ID
	}
	return l.ID
}

// withQuantity re-prices l at qty keeping its unit price, which is the line
// total divided by quantity (or the total itself when quantity is 0).
func (l LineItem) withQuantity(qty int) LineItem {
	total := l.Cost.TotalAmount.Decimal()
	newTotal := total.Mul(decimal.NewFromInt(int64(qty)))
	if l.Quantity != 0 {
		newTotal = newTotal.Div(decimal.NewFromInt(int64(l.Quantity)))
	}
	l.Quantity = qty
	l.Cost = LineCost{TotalAmount: NewMoney(newTotal, l.Cost.TotalAmount.CurrencyCode)}
	return l
}

// NewEmptyCart returns a cart with no ID, no lines and every amount "0" USD.
func NewEmptyCart() Cart {
	zero := ZeroMoney(DefaultCurrency)
	return Cart{
		Lines: []LineItem{},
		Cost:  CartCost{SubtotalAmount: zero, TotalAmount: zero, TotalTaxAmount: zero},
	}
}

// Clear is NewEmptyCart under the name callers use after checkout.
func Clear() Cart {
	return NewEmptyCart()
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Currency is the currency of the first line, or of the aggregate cost when
// the cart is empty.
func (c Cart) Currency() string {
	if len(c.Lines) > 0 {
		return c.Lines[0].Cost.TotalAmount.Currency()
	}
	return c.Cost.TotalAmount.Currency()
}

// FindLine looks a line up by merchandise ID, falling back to line ID.
func (c Cart) FindLine(merchandiseID string) (LineItem, bool) {
	if i := c.indexOf(merchandiseID); i >= 0 {
		return c.Lines[i], true
	}
	return LineItem{}, false
}

func (c Cart) indexOf(merchandiseID string) int {
	return slices.IndexFunc(c.Lines, func(l LineItem) bool { return l.key() == merchandiseID })
}

// DefaultVariantSuffix marks merge keys synthesized from a product ID.
const DefaultVariantSuffix = "-default"

// MergeKey is the identity a variant merges on: its own ID, or a key
// synthesized from the product for products without explicit variants.
func MergeKey(v Variant, p ProductSnapshot) string {
	if v.ID != "" {
		return v.ID
	}
	if p.ID != "" {
		return p.ID + DefaultVariantSuffix
	}
	return "prod-default"
}

// Add puts one unit of variant into the cart. An existing line for the same
// merge key is incremented; otherwise a line with quantity 1 is appended.
func Add(c Cart, v Variant, p ProductSnapshot) (Cart, error) {
	v = NormalizeVariant(v)

	if !c.IsEmpty() && c.Currency() != v.Price.Currency() {
		return c, ErrCurrencyMismatch
	}

	key := MergeKey(v, p)
	lines := slices.Clone(c.Lines)

	if i := c.indexOf(key); i >= 0 {
		lines[i] = mergeLine(lines[i], v, p, lines[i].Quantity+1)
	} else {
		lines = append(lines, newLine(v, p, key))
	}

	return withLines(c, lines), nil
}

func newLine(v Variant, p ProductSnapshot, key string) LineItem {
	productID, variantID := p.ID, v.ID
	if productID == "" {
		productID = "prod"
	}
	if variantID == "" {
		variantID = "var"
	}

	title := v.Title
	if title == "" {
		title = p.Title
	}

	return LineItem{
		ID:       productID + "-" + variantID,
		Quantity: 1,
		Cost:     LineCost{TotalAmount: v.Price},
		Merchandise: Merchandise{
			ID:              key,
			Title:           title,
			SelectedOptions: slices.Clone(v.SelectedOptions),
			Product:         p,
		},
	}
}

// mergeLine re-prices an existing line from the variant at the new quantity.
// Product fields that the snapshot lacks keep their captured values.
func mergeLine(l LineItem, v Variant, p ProductSnapshot, qty int) LineItem {
	l.Quantity = qty
	l.Cost = LineCost{TotalAmount: NewMoney(v.Price.Decimal().Mul(decimal.NewFromInt(int64(qty))), v.Price.CurrencyCode)}
	if v.Title != "" {
		l.Merchandise.Title = v.Title
	}
	if len(v.SelectedOptions) > 0 {
		l.Merchandise.SelectedOptions = slices.Clone(v.SelectedOptions)
	}
	if p.ID != "" {
		l.Merchandise.Product = p
	}
	return l
}

// UpdateItem applies a relative change to the line matching merchandiseID.
// Minus to 0 and delete remove the line. An unknown ID returns c unchanged.
func UpdateItem(c Cart, merchandiseID string, t UpdateType) Cart {
	i := c.indexOf(merchandiseID)
	if i < 0 {
		return c
	}

	line := c.Lines[i]
	qty := line.Quantity
	switch t {
	case UpdatePlus:
		qty++
	case UpdateMinus:
		qty--
	case UpdateDelete:
		qty = 0
	default:
		return c
	}

	return setLineQuantity(c, i, qty)
}

// SetQuantity sets the absolute quantity of the line matching merchandiseID.
// A quantity of 0 or less removes the line. For an unknown ID with qty > 0
// the variant is added first and then set; with no variant it is a no-op.
func SetQuantity(c Cart, merchandiseID string, qty int, v *Variant, p ProductSnapshot) (Cart, error) {
	if i := c.indexOf(merchandiseID); i >= 0 {
		return setLineQuantity(c, i, qty), nil
	}
	if qty <= 0 || v == nil {
		return c, nil
	}

	added, err := Add(c, *v, p)
	if err != nil {
		return c, err
	}
	key := MergeKey(NormalizeVariant(*v), p)
	return setLineQuantity(added, added.indexOf(key), qty), nil
}

func setLineQuantity(c Cart, i, qty int) Cart {
	var lines []LineItem
	if qty <= 0 {
		lines = slices.Delete(slices.Clone(c.Lines), i, i+1)
	} else {
		lines = slices.Clone(c.Lines)
		lines[i] = lines[i].withQuantity(qty)
	}
	return withLines(c, lines)
}

// withLines returns c with lines and freshly computed totals. The ID is
// assigned on the first mutation.
func withLines(c Cart, lines []LineItem) Cart {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return recomputed(c, lines)
}

// recomputed returns c holding lines with totals derived from them. An empty
// cart keeps its existing currency.
func recomputed(c Cart, lines []LineItem) Cart {
	if len(lines) == 0 {
		zero := ZeroMoney(c.Currency())
		c.Lines = []LineItem{}
		c.TotalQuantity = 0
		c.Cost = CartCost{SubtotalAmount: zero, TotalAmount: zero, TotalTaxAmount: zero}
		return c
	}

	c.Lines = lines
	c.TotalQuantity, c.Cost = Recompute(lines)
	return c
}

// Recompute derives the total quantity and aggregate cost of lines. The
// currency is the first line's. Subtotal equals total and tax is "0".
func Recompute(lines []LineItem) (int, CartCost) {
	currency := DefaultCurrency
	if len(lines) > 0 {
		currency = lines[0].Cost.TotalAmount.Currency()
	}

	qty := 0
	total := decimal.Zero
	for _, l := range lines {
		qty += l.Quantity
		total = total.Add(l.Cost.TotalAmount.Decimal())
	}

	amount := NewMoney(total, currency)
	return qty, CartCost{
		SubtotalAmount: amount,
		TotalAmount:    amount,
		TotalTaxAmount: ZeroMoney(currency),
	}
}

// Normalize validates a cart read back from storage and rebuilds every derived
// field from its lines, so stored totals are never trusted. Lines with a
// quantity below 1 are dropped. A line without an identity, with a negative
// or non-numeric amount, or in a second currency makes the cart corrupt.
func Normalize(c Cart) (Cart, error) {
	lines := make([]LineItem, 0, len(c.Lines))
	seen := make(map[string]bool, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity < 1 {
			continue
		}
		key := l.key()
		if key == "" {
			return Cart{}, fmt.Errorf("%w: line without id", ErrCorruptCart)
		}
		if seen[key] {
			return Cart{}, fmt.Errorf("%w: duplicate line %q", ErrCorruptCart, key)
		}
		seen[key] = true

		amount, err := decimal.NewFromString(strings.TrimSpace(l.Cost.TotalAmount.Amount))
		if err != nil || amount.IsNegative() {
			return Cart{}, fmt.Errorf("%w: line %q has invalid amount %q", ErrCorruptCart, key, l.Cost.TotalAmount.Amount)
		}
		l.Cost.TotalAmount = NewMoney(amount, l.Cost.TotalAmount.CurrencyCode)
		if len(lines) > 0 && l.Cost.TotalAmount.CurrencyCode != lines[0].Cost.TotalAmount.CurrencyCode {
			return Cart{}, fmt.Errorf("%w: mixed currencies", ErrCorruptCart)
		}
		lines = append(lines, l)
	}
	return recomputed(c, lines), nil
}

// Resolver looks up the current catalog variant for a line key. ok is false
// when the catalog no longer sells it.
type Resolver func(key string) (v Variant, p ProductSnapshot, ok bool)

// Reprice recomputes every line from the catalog price at its current
// quantity. Lines the resolver cannot find, or priced in a currency other
// than the first kept line's, are dropped and their keys returned.
func Reprice(c Cart, resolve Resolver) (Cart, []string) {
	var dropped []string
	lines := make([]LineItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		v, p, ok := resolve(l.key())
		if !ok {
			dropped = append(dropped, l.key())
			continue
		}
		v = NormalizeVariant(v)
		if len(lines) > 0 && v.Price.CurrencyCode != lines[0].Cost.TotalAmount.CurrencyCode {
			dropped = append(dropped, l.key())
			continue
		}
		lines = append(lines, mergeLine(l, v, p, l.Quantity))
	}
	return recomputed(c, lines), dropped
}
