package search

import (
	"sort"
	"strings"
)

// Index merges shards into one structure keyed by normalized key. Shards
// arrive in any order; the merged state depends only on the set of shards
// registered, never on the order.
//
// An Index is owned by a single session goroutine and is not safe for
// concurrent use.
type Index struct {
	norm    Normalizer
	shards  map[string]struct{}
	buckets map[string][]Entry
	keys    []string // sorted, unique
	size    int
}

// NewIndex creates an empty index using the given normalizer.
func NewIndex(n Normalizer) *Index {
	if n == nil {
		n = DoxygenNormalizer{}
	}
	return &Index{
		norm:    n,
		shards:  make(map[string]struct{}),
		buckets: make(map[string][]Entry),
	}
}

// Normalizer returns the normalizer keys are built with.
func (x *Index) Normalizer() Normalizer { return x.norm }

// Register merges a shard. Registering a label twice is a no-op and reports
// false; identity is the label, not the content, because identical display
// names in different shards are legitimate.
func (x *Index) Register(s Shard) bool {
	if _, ok := x.shards[s.Label]; ok {
		return false
	}
	x.shards[s.Label] = struct{}{}

	touched := make(map[string]struct{})
	for _, e := range s.Entries {
		e.Key = x.norm.Normalize(e.DisplayName)
		if e.Shard == "" {
			e.Shard = s.Label
		}
		if _, ok := x.buckets[e.Key]; !ok {
			x.insertKey(e.Key)
		}
		x.buckets[e.Key] = append(x.buckets[e.Key], e)
		touched[e.Key] = struct{}{}
		x.size++
	}
	for key := range touched {
		bucket := x.buckets[key]
		sort.SliceStable(bucket, func(i, j int) bool { return entryLess(bucket[i], bucket[j]) })
	}
	return true
}

func (x *Index) insertKey(key string) {
	i := sort.SearchStrings(x.keys, key)
	x.keys = append(x.keys, "")
	copy(x.keys[i+1:], x.keys[i:])
	x.keys[i] = key
}

// Lookup returns every registered entry whose key starts with the normalized
// prefix, in key order. A nil result only means nothing matching has been
// registered yet; callers re-query as more shards arrive.
func (x *Index) Lookup(prefix string) []Entry {
	p := x.norm.Normalize(prefix)
	var out []Entry
	for i := sort.SearchStrings(x.keys, p); i < len(x.keys) && strings.HasPrefix(x.keys[i], p); i++ {
		out = append(out, x.buckets[x.keys[i]]...)
	}
	return out
}

// Exact returns the entries whose key equals the normalized name.
func (x *Index) Exact(name string) []Entry {
	bucket := x.buckets[x.norm.Normalize(name)]
	return append([]Entry(nil), bucket...)
}

// Scan calls fn for every entry in key order until fn returns false.
func (x *Index) Scan(fn func(Entry) bool) {
	for _, key := range x.keys {
		for _, e := range x.buckets[key] {
			if !fn(e) {
				return
			}
		}
	}
}

// Has reports whether the shard label has been registered.
func (x *Index) Has(label string) bool {
	_, ok := x.shards[label]
	return ok
}

// Shards returns the registered shard labels, sorted.
func (x *Index) Shards() []string {
	labels := make([]string, 0, len(x.shards))
	for l := range x.shards {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Len returns the number of registered entries.
func (x *Index) Len() int { return x.size }

// entryLess is a total order over entry content so bucket order is the same
// whatever order shards were registered in.
func entryLess(a, b Entry) bool {
	switch {
	case a.DisplayName != b.DisplayName:
		return a.DisplayName < b.DisplayName
	case a.TargetRef != b.TargetRef:
		return a.TargetRef < b.TargetRef
	case a.ParentContext != b.ParentContext:
		return a.ParentContext < b.ParentContext
	case a.Kind != b.Kind:
		return a.Kind < b.Kind
	default:
		return a.Shard < b.Shard
	}
}
