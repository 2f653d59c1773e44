package search

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalization scheme names accepted by NewNormalizer.
const (
	SchemeDoxygen = "doxygen"
	SchemeFold    = "fold"
)

// Normalizer maps display names and user queries onto lookup keys. A query
// prefix-matches an entry iff Normalize(query) is a prefix of Normalize(name),
// so a scheme must be applied identically to both sides and must keep
// character boundaries aligned.
type Normalizer interface {
	Normalize(s string) string
	Scheme() string
}

// NewNormalizer returns the normalizer for the named scheme.
func NewNormalizer(scheme string) (Normalizer, error) {
	switch scheme {
	case "", SchemeDoxygen:
		return DoxygenNormalizer{}, nil
	case SchemeFold:
		return FoldNormalizer{}, nil
	default:
		return nil, fmt.Errorf("unknown normalization scheme %q: must be one of doxygen, fold", scheme)
	}
}

// DoxygenNormalizer reproduces the key encoding of Doxygen search shards:
// the name is lower-cased, [a-z0-9] pass through and every other byte is
// written as '_' followed by two lowercase hex digits ("pip_init" becomes
// "pip_5finit", "pip-exec" becomes "pip_2dexec"). The encoding is injective,
// so matching on encoded keys is matching on lower-cased names.
type DoxygenNormalizer struct{}

const hexDigits = "0123456789abcdef"

func (DoxygenNormalizer) Normalize(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('_')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

func (DoxygenNormalizer) Scheme() string { return SchemeDoxygen }

// FoldNormalizer applies NFKC and Unicode case folding, then drops every
// rune that is not a letter, digit or underscore. Separators such as "::",
// "." and "-" vanish, so "pip-exec" and "pipexec" share a key.
type FoldNormalizer struct{}

func (FoldNormalizer) Normalize(s string) string {
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, folded)
}

func (FoldNormalizer) Scheme() string { return SchemeFold }
