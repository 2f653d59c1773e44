package search

import (
	"strings"

	"github.com/ziadkadry99/docnav/internal/navdata"
)

// Kind classifies what a search entry points at.
type Kind string

const (
	KindPage      Kind = "page"
	KindGroup     Kind = "group"
	KindFile      Kind = "file"
	KindClass     Kind = "class"
	KindNamespace Kind = "namespace"
	KindFunction  Kind = "function"
	KindVariable  Kind = "variable"
	KindTypedef   Kind = "typedef"
	KindEnum      Kind = "enum"
	KindEnumValue Kind = "enumvalue"
	KindDefine    Kind = "define"
	KindSymbol    Kind = "symbol"
)

// categoryKinds maps the category part of a shard label ("functions" in
// "functions_70") to the kind of every entry in it.
var categoryKinds = map[string]Kind{
	"classes":    KindClass,
	"namespaces": KindNamespace,
	"files":      KindFile,
	"functions":  KindFunction,
	"variables":  KindVariable,
	"typedefs":   KindTypedef,
	"enums":      KindEnum,
	"enumvalues": KindEnumValue,
	"defines":    KindDefine,
	"groups":     KindGroup,
	"pages":      KindPage,
}

// Entry is one searchable item. Entries are values; the index copies them
// on registration and never hands out references into its storage.
type Entry struct {
	// Key is the normalized lookup key. It is filled in by Index.Register.
	Key         string
	DisplayName string
	TargetRef   string
	Kind        Kind
	// ParentContext is the scope label shown next to the name, empty when absent.
	ParentContext string
	// Shard is the label of the shard the entry came from.
	Shard string
}

// Shard is a named partition of entries as delivered by the shard store.
type Shard struct {
	Label   string
	Entries []Entry
}

// NewShard converts decoded search records into a shard. Every display
// variant becomes its own entry so overloads all surface on lookup.
func NewShard(label string, records []navdata.SearchRecord) Shard {
	s := Shard{Label: label}
	for _, rec := range records {
		for _, item := range rec.Items {
			ref := navdata.CleanHref(item.Href)
			s.Entries = append(s.Entries, Entry{
				DisplayName:   item.DisplayName,
				TargetRef:     ref,
				Kind:          KindFor(label, ref),
				ParentContext: item.Scope,
				Shard:         label,
			})
		}
	}
	return s
}

// KindFor infers the entry kind from the shard category, falling back to the
// shape of the target for mixed shards such as "all_1".
func KindFor(label, ref string) Kind {
	category := label
	if i := strings.LastIndexByte(label, '_'); i > 0 {
		category = label[:i]
	}
	if k, ok := categoryKinds[category]; ok {
		return k
	}

	page, anchor, _ := strings.Cut(ref, "#")
	switch {
	case anchor != "":
		return KindSymbol
	case strings.HasPrefix(page, "group__"):
		return KindGroup
	case strings.HasSuffix(page, "_8h.html") || strings.HasSuffix(page, "_8c.html"):
		return KindFile
	case strings.HasPrefix(page, "namespace"):
		return KindNamespace
	case strings.HasPrefix(page, "class") || strings.HasPrefix(page, "struct"):
		return KindClass
	default:
		return KindPage
	}
}
