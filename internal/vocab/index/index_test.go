package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
)

func countsOf(words ...string) *Counts {
	c := NewCounts()
	for _, w := range words {
		c.Inc(w)
	}
	return c
}

func TestCountsFirstSeenOrder(t *testing.T) {
	c := countsOf("b", "a", "b", "c", "a", "b")
	var order []string
	for w := range c.All() {
		order = append(order, w)
	}
	assert.Equal(t, []string{"b", "a", "c"}, order)
	assert.Equal(t, 3, c.Get("b"))
	assert.Equal(t, 0, c.Get("z"))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 6, c.Total())
}

func TestCountsAddZeroCreatesEntry(t *testing.T) {
	c := NewCounts()
	c.Add("x", 0)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.Get("x"))
}

func TestCountsRejectsNegative(t *testing.T) {
	assert.Panics(t, func() { NewCounts().Add("x", -1) })
}

func TestCountsJSONKeepsOrder(t *testing.T) {
	c := countsOf("zeta", "alpha", "zeta")
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"w":"zeta","c":2},{"w":"alpha","c":1}]`, string(data))

	var back Counts
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c.MostCommon(-1), back.MostCommon(-1))

	assert.Error(t, json.Unmarshal([]byte(`[{"w":"x","c":-3}]`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &back))
}

func TestMergeTotalsAreOrderIndependent(t *testing.T) {
	m1 := countsOf("good", "food", "good")
	m2 := countsOf("bad", "food")
	m3 := countsOf("good", "service", "service")

	forward := Merge([]*Counts{m1, m2, m3})
	backward := Merge([]*Counts{m3, m2, m1})
	nested := Merge([]*Counts{Merge([]*Counts{m1, m2}), m3})

	want := map[string]int{"good": 3, "food": 2, "bad": 1, "service": 2}
	assert.Equal(t, want, forward.Map())
	assert.Equal(t, want, backward.Map())
	assert.Equal(t, want, nested.Map())
}

func TestMergeSkipsNilAndEmpty(t *testing.T) {
	g := Merge([]*Counts{nil, NewCounts(), countsOf("x")})
	assert.Equal(t, map[string]int{"x": 1}, g.Map())
	assert.Equal(t, 0, Merge(nil).Len())
}

func TestMergeFollowsInputOrder(t *testing.T) {
	a := countsOf("good", "good")
	b := countsOf("great", "great")

	ab := Build(Merge([]*Counts{a, b}), 1)
	ba := Build(Merge([]*Counts{b, a}), 1)

	w, _ := ab.Word(0)
	assert.Equal(t, "good", w)
	w, _ = ba.Word(0)
	assert.Equal(t, "great", w)
}

func TestBuildSizeAndIDs(t *testing.T) {
	g := countsOf("a", "b", "b", "c", "c", "c", "d")
	for _, k := range []int{0, 1, 2, 4, 10} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			ix := Build(g, k)
			want := min(max(k, 0), g.Len())
			require.Equal(t, want, ix.Len())
			for i, e := range ix.Entries() {
				assert.Equal(t, i, e.ID)
				id, ok := ix.ID(e.Word)
				assert.True(t, ok)
				assert.Equal(t, i, id)
			}
		})
	}
}

func TestBuildRanksByCountThenFirstSeen(t *testing.T) {
	g := countsOf("x", "y", "y", "z", "w", "w")
	ix := Build(g, 4)
	var words []string
	for _, e := range ix.Entries() {
		words = append(words, e.Word)
	}
	assert.Equal(t, []string{"y", "w", "x", "z"}, words)
}

func TestBuildNegativeSize(t *testing.T) {
	assert.Equal(t, 0, Build(countsOf("a"), -3).Len())
}

func TestIndexLookups(t *testing.T) {
	ix := Build(countsOf("a", "b", "b"), 2)
	w, ok := ix.Word(0)
	assert.True(t, ok)
	assert.Equal(t, "b", w)
	_, ok = ix.Word(2)
	assert.False(t, ok)
	_, ok = ix.Word(-1)
	assert.False(t, ok)
	_, ok = ix.ID("zzz")
	assert.False(t, ok)
	assert.Equal(t, "Index(size=2)\n0\tb\n1\ta\n", ix.String())
}

func TestFromEntries(t *testing.T) {
	ix, err := FromEntries([]Entry{{"b", 1}, {"a", 0}})
	require.NoError(t, err)
	w, _ := ix.Word(0)
	assert.Equal(t, "a", w)

	bad := map[string][]Entry{
		"duplicate id":   {{"a", 0}, {"b", 0}},
		"duplicate word": {{"a", 0}, {"a", 1}},
		"gap":            {{"a", 0}, {"b", 2}},
		"negative":       {{"a", -1}},
	}
	for name, entries := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := FromEntries(entries)
			assert.Error(t, err)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := countsOf("café", "naïve", "naïve", "\"quoted\"", "tab\there", "!", "!", "!")
	ix := Build(g, 100)
	path := filepath.Join(t.TempDir(), "index")

	require.NoError(t, Save(ix, path))
	back, err := Load(path)
	require.NoError(t, err)
	assert.True(t, ix.Equal(back))
	assert.Equal(t, ix.Entries(), back.Entries())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "index")
	require.NoError(t, Save(Build(NewCounts(), 10), path))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Len())
}

func TestLoadMissingIsNotCorrupt(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.False(t, apperrors.Is(err, apperrors.ErrCorruptIndex))
	assert.True(t, apperrors.Is(err, os.ErrNotExist))
}

func TestDecodeRejectsCorruption(t *testing.T) {
	good, err := Encode(Build(countsOf("a", "b", "b"), 2))
	require.NoError(t, err)

	mutate := func(f func([]byte) []byte) []byte {
		cp := append([]byte(nil), good...)
		return f(cp)
	}
	cases := map[string][]byte{
		"empty":     {},
		"truncated": good[:HeaderSize-1],
		"magic":     mutate(func(b []byte) []byte { b[0] ^= 0xff; return b }),
		"version":   mutate(func(b []byte) []byte { b[4] = 9; return b }),
		"payload":   mutate(func(b []byte) []byte { b[len(b)-2] ^= 0x01; return b }),
		"short":     good[:len(good)-1],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data, "mem://index")
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrCorruptIndex))
			assert.Equal(t, "mem://index", apperrors.Path(err))
		})
	}
}

func TestDecodeRejectsDuplicateIDs(t *testing.T) {
	forged := &Index{entries: []Entry{{"a", 0}, {"b", 0}}}
	data, err := Encode(forged)
	require.NoError(t, err)
	_, err = Decode(data, "forged")
	assert.True(t, apperrors.Is(err, apperrors.ErrCorruptIndex))
}

func TestLoadCorruptFileNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	require.NoError(t, os.WriteFile(path, []byte("not an index at all, just text"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCorruptIndex))
	assert.Contains(t, err.Error(), path)
}

func BenchmarkMerge(b *testing.B) {
	parts := make([]*Counts, 16)
	for i := range parts {
		c := NewCounts()
		for j := 0; j < 5000; j++ {
			c.Add(fmt.Sprintf("w%d", (i*131+j)%20000), j%7+1)
		}
		parts[i] = c
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Build(Merge(parts), 20000)
	}
}
