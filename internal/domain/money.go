package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used whenever a price carries no currency code.
const DefaultCurrency = "USD"

// Money is an exact decimal amount serialized as a string.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// NewMoney formats d in the given currency, defaulting the currency.
func NewMoney(d decimal.Decimal, currency string) Money {
	return Money{Amount: d.String(), CurrencyCode: currencyOrDefault(currency)}
}

// ZeroMoney returns "0" in currency.
func ZeroMoney(currency string) Money {
	return NewMoney(decimal.Zero, currency)
}

// Decimal parses the amount. Empty or non-numeric amounts are 0.
func (m Money) Decimal() decimal.Decimal {
	return parseAmount(m.Amount)
}

// Currency returns the currency code or DefaultCurrency.
func (m Money) Currency() string {
	return currencyOrDefault(m.CurrencyCode)
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func currencyOrDefault(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}
