package search

import (
	"slices"
	"sort"
	"strings"
	"unicode/utf8"
)

// Match is one ranked search result as handed to the presentation layer.
type Match struct {
	DisplayName string `json:"display_name"`
	TargetRef   string `json:"target_ref"`
	Kind        Kind   `json:"kind"`
	Context     string `json:"context,omitempty"`
}

// Result is the outcome of one query.
type Result struct {
	Seq     uint64  `json:"seq"`
	Query   string  `json:"query"`
	Matches []Match `json:"results"`
	// Partial is set while shards the query depends on are still loading.
	Partial bool `json:"partial"`
}

// Engine turns a raw keystroke buffer into ranked matches over an Index.
// Every query is tagged with a monotonically increasing sequence number so
// late completions of superseded queries can be recognised and dropped.
type Engine struct {
	index  *Index
	latest uint64
}

// NewEngine creates an engine over idx.
func NewEngine(idx *Index) *Engine {
	return &Engine{index: idx}
}

// Begin issues the next sequence number and marks it as the latest query.
func (e *Engine) Begin() uint64 {
	e.latest++
	return e.latest
}

// Latest returns the most recently issued sequence number.
func (e *Engine) Latest() uint64 { return e.latest }

// IsLatest reports whether seq belongs to the newest query issued.
func (e *Engine) IsLatest(seq uint64) bool { return seq == e.latest }

// Search issues a new sequence number and runs the query against the
// shards registered so far.
func (e *Engine) Search(query string) Result {
	seq := e.Begin()
	return Result{Seq: seq, Query: query, Matches: e.Run(query)}
}

// Run evaluates query without issuing a sequence number. Empty or
// whitespace-only input yields no matches. A single token is a prefix lookup
// on normalized keys; several tokens must all occur, in order, as
// case-insensitive substrings of the display name.
func (e *Engine) Run(query string) []Match {
	tokens := Tokenize(query)
	switch len(tokens) {
	case 0:
		return nil
	case 1:
		return rank(e.single(tokens[0]))
	default:
		return rank(e.multi(tokens))
	}
}

// Tokenize splits a query on whitespace.
func Tokenize(query string) []string {
	return strings.Fields(query)
}

type candidate struct {
	entry  Entry
	exact  bool
	prefix bool
}

func (e *Engine) single(token string) []candidate {
	key := e.index.Normalizer().Normalize(token)
	if key == "" {
		return nil
	}
	entries := e.index.Lookup(token)
	cands := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		cands = append(cands, candidate{
			entry:  entry,
			exact:  entry.Key == key,
			prefix: true,
		})
	}
	return cands
}

func (e *Engine) multi(tokens []string) []candidate {
	lowered := make([]string, len(tokens))
	for i, t := range tokens {
		lowered[i] = strings.ToLower(t)
	}
	phrase := strings.Join(lowered, " ")

	var cands []candidate
	e.index.Scan(func(entry Entry) bool {
		name := strings.ToLower(entry.DisplayName)
		if !containsInOrder(name, lowered) {
			return true
		}
		cands = append(cands, candidate{
			entry:  entry,
			exact:  name == phrase,
			prefix: strings.HasPrefix(name, lowered[0]),
		})
		return true
	})
	return cands
}

// containsInOrder reports whether every token occurs in s, each one after
// the end of the previous occurrence.
func containsInOrder(s string, tokens []string) bool {
	rest := s
	for _, t := range tokens {
		i := strings.Index(rest, t)
		if i < 0 {
			return false
		}
		rest = rest[i+len(t):]
	}
	return true
}

// rank orders candidates: exact match first, then prefix before
// substring-only, then shorter display names, then lexicographic. A panic
// while ranking degrades to the candidates in the order they were found.
func rank(cands []candidate) (out []Match) {
	defer func() {
		if r := recover(); r != nil {
			out = toMatches(cands)
		}
	}()
	sorted := slices.Clone(cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return toMatches(sorted)
}

var less = candidateLess

func candidateLess(a, b candidate) bool {
	if a.exact != b.exact {
		return a.exact
	}
	if a.prefix != b.prefix {
		return a.prefix
	}
	la, lb := utf8.RuneCountInString(a.entry.DisplayName), utf8.RuneCountInString(b.entry.DisplayName)
	if la != lb {
		return la < lb
	}
	return entryLess(a.entry, b.entry)
}

func toMatches(cands []candidate) []Match {
	if len(cands) == 0 {
		return nil
	}
	out := make([]Match, len(cands))
	for i, c := range cands {
		out[i] = Match{
			DisplayName: c.entry.DisplayName,
			TargetRef:   c.entry.TargetRef,
			Kind:        c.entry.Kind,
			Context:     c.entry.ParentContext,
		}
	}
	return out
}
