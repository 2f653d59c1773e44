package search

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docnav/internal/navdata"
)

func fixtureShard(t *testing.T, label string) Shard {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "doxygen", "search", label+".js"))
	require.NoError(t, err)
	records, err := navdata.ParseSearchData(src)
	require.NoError(t, err)
	return NewShard(label, records)
}

func entry(name, ref string) Entry {
	return Entry{DisplayName: name, TargetRef: ref, Kind: KindFunction}
}

func names(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.DisplayName
	}
	return out
}

func TestDoxygenNormalizerMatchesShippedKeys(t *testing.T) {
	n := DoxygenNormalizer{}
	tests := map[string]string{
		"pip_abort":          "pip_5fabort",
		"PiP Commands":       "pip_20commands",
		"pip-check":          "pip_2dcheck",
		"pip_spawn.":         "pip_5fspawn_2e",
		"Process-in-Process": "process_2din_2dprocess",
		"ns::name":           "ns_3a_3aname",
	}
	for in, want := range tests {
		assert.Equal(t, want, n.Normalize(in), "Normalize(%q)", in)
	}
}

func TestFoldNormalizerDropsSeparators(t *testing.T) {
	n := FoldNormalizer{}
	assert.Equal(t, "pipexec", n.Normalize("pip-exec"))
	assert.Equal(t, "nsname", n.Normalize("NS::Name"))
	assert.Equal(t, "pip_init", n.Normalize("PIP_INIT"))
	assert.Equal(t, "strasse", n.Normalize("Straße"))
}

func TestNewNormalizer(t *testing.T) {
	n, err := NewNormalizer("")
	require.NoError(t, err)
	assert.Equal(t, SchemeDoxygen, n.Scheme())

	n, err = NewNormalizer(SchemeFold)
	require.NoError(t, err)
	assert.Equal(t, SchemeFold, n.Scheme())

	_, err = NewNormalizer("soundex")
	assert.Error(t, err)
}

func TestRegisterIsIdempotentByLabel(t *testing.T) {
	idx := NewIndex(nil)
	s := Shard{Label: "a", Entries: []Entry{entry("pip_wait", "w.html")}}

	assert.True(t, idx.Register(s))
	assert.False(t, idx.Register(s))
	assert.Equal(t, 1, idx.Len())

	// Same content under another label is a different shard.
	assert.True(t, idx.Register(Shard{Label: "b", Entries: s.Entries}))
	assert.Equal(t, 2, idx.Len())
	assert.Len(t, idx.Lookup("pip_wait"), 2)
}

func TestRegisterDoesNotMutateShard(t *testing.T) {
	entries := []Entry{entry("pip_wait", "w.html")}
	NewIndex(nil).Register(Shard{Label: "a", Entries: entries})
	assert.Equal(t, "", entries[0].Key)
	assert.Equal(t, "", entries[0].Shard)
}

func TestRegistrationOrderDoesNotMatter(t *testing.T) {
	shards := []Shard{
		fixtureShard(t, "all_1"),
		fixtureShard(t, "functions_70"),
		{Label: "extra", Entries: []Entry{entry("pip_init", "other.html"), entry("pip_wait", "z.html")}},
	}
	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	var baseline map[string][]Entry
	for _, order := range orders {
		idx := NewIndex(nil)
		for _, i := range order {
			idx.Register(shards[i])
		}
		got := map[string][]Entry{}
		for _, p := range []string{"", "p", "pip_", "pip_init", "pip_w", "process", "x"} {
			got[p] = idx.Lookup(p)
		}
		if baseline == nil {
			baseline = got
			continue
		}
		assert.Equal(t, baseline, got, "order %v", order)
	}
}

func TestLookupReturnsOnlyAndAllPrefixMatches(t *testing.T) {
	idx := NewIndex(nil)
	idx.Register(fixtureShard(t, "all_1"))
	idx.Register(fixtureShard(t, "functions_70"))
	n := idx.Normalizer()

	for _, prefix := range []string{"pip_", "pip_get", "pip-", "PiP ", "pip_spawn.", "pips"} {
		got := idx.Lookup(prefix)
		want := 0
		idx.Scan(func(e Entry) bool {
			if strings.HasPrefix(e.Key, n.Normalize(prefix)) {
				want++
			}
			return true
		})
		assert.Len(t, got, want, "prefix %q", prefix)
		for _, e := range got {
			assert.True(t, strings.HasPrefix(e.Key, n.Normalize(prefix)), "%q does not start with %q", e.Key, prefix)
		}
	}
}

func TestLookupBeforeAnyShardIsEmpty(t *testing.T) {
	idx := NewIndex(nil)
	assert.Empty(t, idx.Lookup("pip"))
}

func TestOverloadsAllSurface(t *testing.T) {
	idx := NewIndex(nil)
	idx.Register(fixtureShard(t, "all_1"))
	got := idx.Exact("pip_abort")
	require.Len(t, got, 2)
	assert.Equal(t, "group__pip__abort.html", got[0].TargetRef)
	assert.Equal(t, "group__pip__abort.html#ga49a4a9ee014ffdaf0c26df18adf965ad", got[1].TargetRef)
	assert.Equal(t, KindGroup, got[0].Kind)
	assert.Equal(t, KindSymbol, got[1].Kind)
}

func TestExactMatchRanksFirst(t *testing.T) {
	idx := NewIndex(nil)
	idx.Register(Shard{Label: "s", Entries: []Entry{
		entry("pip_initialize", "a.html"),
		entry("pip_init_all", "b.html"),
		entry("pip_init", "c.html"),
		entry("pip_initialized", "d.html"),
	}})
	got := NewEngine(idx).Search("pip_init")
	require.NotEmpty(t, got.Matches)
	assert.Equal(t, "pip_init", got.Matches[0].DisplayName)
	assert.Equal(t, []string{"pip_init", "pip_init_all", "pip_initialize", "pip_initialized"}, names(got.Matches))
}

func TestExactMatchIsCaseInsensitive(t *testing.T) {
	idx := NewIndex(nil)
	idx.Register(fixtureShard(t, "all_1"))
	got := NewEngine(idx).Run("process-in-process")
	require.Len(t, got, 1)
	assert.Equal(t, "Process-in-Process", got[0].DisplayName)
}

func TestMultiTokenQuery(t *testing.T) {
	idx := NewIndex(nil)
	idx.Register(Shard{Label: "s", Entries: []Entry{
		entry("pip_barrier_wait", "a.html"),
		entry("pip_wait", "b.html"),
		entry("pip_barrier_init", "c.html"),
		entry("wait_barrier", "d.html"),
	}})
	got := NewEngine(idx).Run("barrier wait")
	assert.Equal(t, []string{"pip_barrier_wait"}, names(got))
}

func TestMultiTokenRanking(t *testing.T) {
	idx := NewIndex(nil)
	idx.Register(Shard{Label: "s", Entries: []Entry{
		entry("the barrier wait", "a.html"),
		entry("barrier_wait_any", "b.html"),
		entry("barrier wait", "c.html"),
		entry("barrier_wait", "d.html"),
	}})
	got := NewEngine(idx).Run("Barrier WAIT")
	assert.Equal(t, []string{"barrier wait", "barrier_wait", "barrier_wait_any", "the barrier wait"}, names(got))
}

func TestEmptyQueryYieldsNothing(t *testing.T) {
	idx := NewIndex(nil)
	idx.Register(fixtureShard(t, "all_1"))
	e := NewEngine(idx)
	assert.Empty(t, e.Run(""))
	assert.Empty(t, e.Run("   \t"))
}

func TestShorterNamesRankFirst(t *testing.T) {
	idx := NewIndex(nil)
	idx.Register(fixtureShard(t, "functions_70"))
	got := NewEngine(idx).Run("pip_wait")
	assert.Equal(t, []string{"pip_wait", "pip_wait_any"}, names(got))
}

func TestSequenceNumbers(t *testing.T) {
	e := NewEngine(NewIndex(nil))
	first := e.Search("pip")
	second := e.Search("pip_w")
	assert.Less(t, first.Seq, second.Seq)
	assert.False(t, e.IsLatest(first.Seq))
	assert.True(t, e.IsLatest(second.Seq))
	assert.Equal(t, second.Seq, e.Latest())
}

func TestRankOrdersCandidates(t *testing.T) {
	cands := []candidate{
		{entry: entry("pip_b", "b"), prefix: true},
		{entry: entry("x_pip", "x")},
		{entry: entry("pip_a", "a"), prefix: true},
		{entry: entry("pip", "p"), prefix: true, exact: true},
	}
	assert.Equal(t, []string{"pip", "pip_a", "pip_b", "x_pip"}, names(rank(cands)))
	assert.Nil(t, rank(nil))
}

func TestRankFailureKeepsFoundOrder(t *testing.T) {
	orig := less
	t.Cleanup(func() { less = orig })
	less = func(a, b candidate) bool { panic("comparator failed") }

	cands := []candidate{
		{entry: entry("x_pip", "x")},
		{entry: entry("pip_b", "b"), prefix: true},
		{entry: entry("pip", "p"), prefix: true, exact: true},
	}
	var got []Match
	assert.NotPanics(t, func() { got = rank(cands) })
	assert.Equal(t, []string{"x_pip", "pip_b", "pip"}, names(got))
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		label, ref string
		want       Kind
	}{
		{"functions_70", "group__PiP-5-exit.html#ga49", KindFunction},
		{"all_1", "group__pip-check.html", KindGroup},
		{"all_1", "index.html", KindPage},
		{"all_1", "group__pip__abort.html#ga49", KindSymbol},
		{"all_1", "pip_8h.html", KindFile},
		{"defines_5f", "x.html#a", KindDefine},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindFor(tt.label, tt.ref), "%s %s", tt.label, tt.ref)
	}
}

func TestNewShardStripsRelativePrefix(t *testing.T) {
	s := fixtureShard(t, "functions_70")
	require.NotEmpty(t, s.Entries)
	assert.False(t, strings.HasPrefix(s.Entries[0].TargetRef, "../"))
	assert.Equal(t, "functions_70", s.Entries[0].Shard)
}

func TestLeadingCharRouting(t *testing.T) {
	labels := []string{"all_1", "functions_70", "functions_71", "variables_5f"}

	assert.Equal(t, []string{"all_1", "functions_70"}, LeadingCharShards(labels, "Pip_w"))
	assert.Equal(t, []string{"all_1", "variables_5f"}, LeadingCharShards(labels, "_x"))
	assert.Equal(t, labels, LeadingCharShards(labels, "barrier wait"))
	assert.Equal(t, labels, AllShards(labels, "p"))

	r, ok := BucketRune("functions_70")
	assert.True(t, ok)
	assert.Equal(t, 'p', r)
	_, ok = BucketRune("all_1")
	assert.False(t, ok)
	_, ok = BucketRune("all_10")
	assert.False(t, ok)
	_, ok = BucketRune("functions_070")
	assert.False(t, ok)

	_, err := NewRouter("nope")
	assert.Error(t, err)
}

func TestLeadingCharRoutingKeepsNumberedShards(t *testing.T) {
	numbered := []string{"all_0", "all_9", "all_30", "all_41"}
	assert.Equal(t, numbered, LeadingCharShards(numbered, "pip"))
	assert.Empty(t, CharBuckets(numbered))

	mixed := []string{"all_0", "all_30", "functions_5f", "functions_70", "functions_71"}
	assert.Equal(t, []string{"all_0", "all_30", "functions_70"}, LeadingCharShards(mixed, "pip"))
	assert.Equal(t, map[string]rune{"functions_5f": '_', "functions_70": 'p', "functions_71": 'q'}, CharBuckets(mixed))
}
