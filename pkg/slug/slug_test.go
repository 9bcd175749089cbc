package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Classic Tee", "classic-tee"},
		{"  Padded  Title  ", "padded-title"},
		{"ALL UPPER CASE", "all-upper-case"},
		{"Brow Kit (Deluxe) - 2 pack!", "brow-kit-deluxe-2-pack"},
		{"Áo Thun Cổ Tròn", "ao-thun-co-tron"},
		{"Đồ Trang Điểm", "do-trang-diem"},
		{"Crème Brûlée", "creme-brulee"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_NoConsecutiveHyphens(t *testing.T) {
	assert.Equal(t, "a-b", Generate("a -- / -- b"))
}
