package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariant_UnmarshalStructuredPrice(t *testing.T) {
	var v Variant
	err := json.Unmarshal([]byte(`{"id":"v1","title":"Red","price":{"amount":"19.90","currencyCode":"eur"}}`), &v)

	require.NoError(t, err)
	assert.Equal(t, Money{Amount: "19.9", CurrencyCode: "EUR"}, v.Price)
	assert.False(t, v.PriceMissing)
	assert.NotNil(t, v.SelectedOptions)
}

func TestVariant_UnmarshalNumericAmountInObject(t *testing.T) {
	var v Variant
	err := json.Unmarshal([]byte(`{"id":"v1","price":{"amount":12}}`), &v)

	require.NoError(t, err)
	assert.Equal(t, Money{Amount: "12", CurrencyCode: "USD"}, v.Price)
}

func TestVariant_UnmarshalRawNumber(t *testing.T) {
	var v Variant
	err := json.Unmarshal([]byte(`{"id":"v1","price":25.5}`), &v)

	require.NoError(t, err)
	assert.Equal(t, Money{Amount: "25.5", CurrencyCode: "USD"}, v.Price)
}

func TestVariant_UnmarshalNumericString(t *testing.T) {
	var v Variant
	err := json.Unmarshal([]byte(`{"id":"v1","price":"8"}`), &v)

	require.NoError(t, err)
	assert.Equal(t, "8", v.Price.Amount)
}

func TestVariant_UnmarshalMissingPrice(t *testing.T) {
	var v Variant
	err := json.Unmarshal([]byte(`{"id":"v1","selectedOptions":[{"name":"Size","value":"S"}]}`), &v)

	require.NoError(t, err)
	assert.Equal(t, Money{Amount: "0", CurrencyCode: "USD"}, v.Price)
	assert.True(t, v.PriceMissing)
	assert.Equal(t, []SelectedOption{{Name: "Size", Value: "S"}}, v.SelectedOptions)
}

func TestVariant_UnmarshalInvalidPrice(t *testing.T) {
	var v Variant
	err := json.Unmarshal([]byte(`{"id":"v1","price":true}`), &v)

	assert.Error(t, err)
}

func TestNormalizeVariant(t *testing.T) {
	v := NormalizeVariant(Variant{ID: "v", Price: Money{Amount: "free"}})

	assert.Equal(t, Money{Amount: "0", CurrencyCode: "USD"}, v.Price)
	assert.True(t, v.PriceMissing)

	v = NormalizeVariant(Variant{ID: "v", Price: Money{Amount: " 7 "}})
	assert.Equal(t, Money{Amount: "7", CurrencyCode: "USD"}, v.Price)

	v = NormalizeVariant(Variant{ID: "v", Price: Money{Amount: "5.0", CurrencyCode: "gbp"}})
	assert.Equal(t, Money{Amount: "5", CurrencyCode: "GBP"}, v.Price)
	assert.False(t, v.PriceMissing)
}

func TestProduct_Snapshot(t *testing.T) {
	p := Product{ID: "1", Handle: "h", Title: "T", Description: "d", FeaturedImage: &Image{URL: "u"}}

	assert.Equal(t, ProductSnapshot{ID: "1", Handle: "h", Title: "T", FeaturedImage: &Image{URL: "u"}}, p.Snapshot())
}

func TestMoney_Decimal(t *testing.T) {
	assert.Equal(t, "12.34", Money{Amount: "12.34"}.Decimal().String())
	assert.Equal(t, "0", Money{Amount: "x"}.Decimal().String())
	assert.Equal(t, "0", Money{}.Decimal().String())
	assert.Equal(t, "USD", Money{}.Currency())
}
