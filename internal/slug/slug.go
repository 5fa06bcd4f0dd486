// Package slug derives URL-safe identifiers for rental sites from business names.
package slug

import (
	"strings"
	"unicode"

	"github.com/labstack/gommon/random"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// FallbackPrefix is used when a business name has no usable characters.
	FallbackPrefix = "site"
	maxBaseLength  = 40
	suffixLength   = 6
)

// Generator proposes slugs. Uniqueness is enforced by the store, so callers retry on conflict.
type Generator interface {
	Generate(businessName string) string
}

type randomGenerator struct {
	suffix func() string
}

// NewGenerator returns a Generator that appends a random [a-z0-9] suffix to the normalized name.
func NewGenerator() Generator {
	return &randomGenerator{
		suffix: func() string {
			return random.String(suffixLength, random.Lowercase, random.Numeric)
		},
	}
}

func (g *randomGenerator) Generate(businessName string) string {
	base := Base(businessName)
	if base == "" {
		base = FallbackPrefix
	}
	return base + "-" + g.suffix()
}

// Base lowercases name, folds accents and collapses every other run of characters into one dash.
func Base(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	out := b.String()
	if len(out) > maxBaseLength {
		out = strings.TrimRight(out[:maxBaseLength], "-")
	}
	return out
}
