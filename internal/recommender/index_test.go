package recommender

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/shelfrec/internal/catalog"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		min, max int
		expected []string
	}{
		{
			name:     "unigrams drop stop words and short tokens",
			doc:      "the lord of a rings x",
			min:      1,
			max:      1,
			expected: []string{"lord", "rings"},
		},
		{
			name:     "ngrams are built over the kept tokens",
			doc:      "dune messiah herbert",
			min:      1,
			max:      3,
			expected: []string{"dune", "messiah", "herbert", "dune messiah", "messiah herbert", "dune messiah herbert"},
		},
		{
			name:     "empty document",
			doc:      "",
			min:      1,
			max:      3,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, analyze(tt.doc, tt.min, tt.max))
		})
	}
}

func TestDocumentText(t *testing.T) {
	text := documentText(item("1", "Dune!", "Frank Herbert", "Sci-Fi|Classics"))
	assert.Equal(t, "dune dune dune frank herbert frank herbert scifi classics", text)
}

func TestBuildContentIndex_RowsAlignedAndNormalized(t *testing.T) {
	items := largeCatalog(12)
	index := BuildContentIndex(items, DefaultIndexOptions())

	require.Equal(t, len(items), index.Len())
	assert.Equal(t, 3, index.EffectiveMinDF())
	assert.Greater(t, index.Terms(), 0)

	for i, it := range items {
		pos, ok := index.Position(it.ID)
		require.True(t, ok)
		assert.Equal(t, i, pos)
		assert.Equal(t, it, index.Item(pos))

		row := index.rows[i]
		if row.isZero() {
			continue
		}
		assert.InDelta(t, 1.0, math.Sqrt(row.dot(row)), 1e-9)
	}
}

func TestBuildContentIndex_RelaxesMinDFOnSmallCatalog(t *testing.T) {
	index := BuildContentIndex(duneCatalog(), DefaultIndexOptions())

	assert.Equal(t, 1, index.EffectiveMinDF())
	assert.Greater(t, index.Terms(), 0)
}

func TestBuildContentIndex_MaxFeatures(t *testing.T) {
	opts := DefaultIndexOptions()
	opts.MaxFeatures = 4
	opts.MinDF = 1

	index := BuildContentIndex(duneCatalog(), opts)

	assert.Equal(t, 4, index.Terms())
	assert.IsIncreasing(t, index.terms)
	// highest corpus frequency first: each title token is counted three times
	assert.Contains(t, index.terms, "dune")
}

func TestContentIndex_Lookup(t *testing.T) {
	index := BuildContentIndex(duneCatalog(), DefaultIndexOptions())

	got, ok := index.Lookup("3")
	require.True(t, ok)
	assert.Equal(t, "Emma", got.Title)

	_, ok = index.Lookup("404")
	assert.False(t, ok)
}

func TestBuildContentIndex_Empty(t *testing.T) {
	index := BuildContentIndex([]catalog.CatalogItem{}, DefaultIndexOptions())

	assert.Equal(t, 0, index.Len())
	assert.Equal(t, 0, index.Terms())
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, compareIDs("2", "10"))
	assert.Equal(t, 1, compareIDs("b", "a"))
	assert.Equal(t, -1, compareIDs("10", "2a"))
	assert.Equal(t, 0, compareIDs("7", "7"))

	// integers sort before every non-integer id, so mixed catalogs stay totally ordered
	assert.Equal(t, -1, compareIDs("9", "10"))
	assert.Equal(t, -1, compareIDs("10", "1a"))
	assert.Equal(t, 1, compareIDs("1a", "9"))
	assert.Equal(t, -1, compareIDs("07", "7"))

	ids := []string{"b", "1a", "10", "9", "007", "7"}
	slices.SortFunc(ids, compareIDs)
	assert.Equal(t, []string{"007", "7", "9", "10", "1a", "b"}, ids)
}
