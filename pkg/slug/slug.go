package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// đ has no combining-mark decomposition, so NFD alone leaves it untouched.
var strokeReplacer = strings.NewReplacer("đ", "d", "Đ", "d", "ø", "o", "ł", "l")

// Generate creates a URL-friendly product handle from a title. Diacritics are
// stripped, so "Áo Thun Cổ Tròn" becomes "ao-thun-co-tron".
func Generate(name string) string {
	s := strokeReplacer.Replace(strings.TrimSpace(name))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
