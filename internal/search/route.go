package search

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Routing policy names accepted by NewRouter.
const (
	RouteAll         = "all"
	RouteLeadingChar = "leading-char"
)

// Router picks which shards a query needs. Shard identity is opaque to the
// index; routing is only an optimisation over "load everything".
type Router func(labels []string, query string) []string

// NewRouter returns the router for the named policy.
func NewRouter(policy string) (Router, error) {
	switch policy {
	case "", RouteAll:
		return AllShards, nil
	case RouteLeadingChar:
		return LeadingCharShards, nil
	default:
		return nil, fmt.Errorf("unknown routing policy %q: must be one of all, leading-char", policy)
	}
}

// AllShards requests every known shard.
func AllShards(labels []string, _ string) []string {
	return append([]string(nil), labels...)
}

// LeadingCharShards requests the shards bucketed under the first character
// of a single-token query. Shards outside a character-coded category are
// always requested, as are all shards for multi-token queries, which match
// on substrings.
func LeadingCharShards(labels []string, query string) []string {
	tokens := Tokenize(query)
	if len(tokens) != 1 {
		return AllShards(labels, query)
	}
	first, _ := utf8.DecodeRuneInString(strings.ToLower(tokens[0]))
	buckets := CharBuckets(labels)

	var out []string
	for _, l := range labels {
		r, ok := buckets[l]
		if !ok || r == first {
			out = append(out, l)
		}
	}
	return out
}

// CharBuckets maps each label of a character-coded category to its bucket.
// Older Doxygen names shards after the hex code of their leading character
// ("functions_70"); newer releases number them ("all_0", "all_1", ...), which
// looks the same for suffixes like "30". A category is taken as
// character-coded only when every one of its labels decodes, so a numbered
// category, which always contains a single-digit "_0", stays opaque.
func CharBuckets(labels []string) map[string]rune {
	runes := make(map[string]rune, len(labels))
	opaque := make(map[string]bool)
	for _, l := range labels {
		cat := category(l)
		r, ok := BucketRune(l)
		if !ok {
			opaque[cat] = true
			continue
		}
		runes[l] = r
	}
	for l := range runes {
		if opaque[category(l)] {
			delete(runes, l)
		}
	}
	return runes
}

func category(label string) string {
	if i := strings.LastIndexByte(label, '_'); i >= 0 {
		return label[:i]
	}
	return label
}

// BucketRune decodes a label suffix of exactly two hex digits naming a
// printable character, such as "functions_70" ('p'). It cannot tell a
// numbered shard like "all_30" from a coded one; CharBuckets can.
func BucketRune(label string) (rune, bool) {
	i := strings.LastIndexByte(label, '_')
	if i < 0 || len(label)-i-1 != 2 {
		return 0, false
	}
	code, err := strconv.ParseUint(label[i+1:], 16, 8)
	if err != nil {
		return 0, false
	}
	r := unicode.ToLower(rune(code))
	if !unicode.IsPrint(r) || r == ' ' {
		return 0, false
	}
	return r, true
}
