package recommender

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/shelfrec/internal/catalog"
)

func assertUniqueIDs(t *testing.T, candidates []Candidate) {
	t.Helper()
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		_, dup := seen[c.ItemID]
		assert.False(t, dup, "duplicate item %s", c.ItemID)
		seen[c.ItemID] = struct{}{}
	}
}

func assertTierOrdered(t *testing.T, candidates []Candidate) {
	t.Helper()
	for i := 1; i < len(candidates); i++ {
		prev, cur := candidates[i-1], candidates[i]
		require.LessOrEqual(t, prev.Origin.Tier(), cur.Origin.Tier())
		if prev.Origin == cur.Origin {
			assert.GreaterOrEqual(t, prev.Score, cur.Score)
		}
	}
}

func TestNewEngine_RejectsEmptyCatalog(t *testing.T) {
	engine, err := NewEngine(&catalog.Snapshot{}, testOptions(), testLogger())

	assert.Nil(t, engine)
	var datasetErr *catalog.DatasetError
	require.ErrorAs(t, err, &datasetErr)
	assert.ErrorIs(t, err, catalog.ErrNoItems)
}

func TestNewEngine_WithoutRatings(t *testing.T) {
	engine := newTestEngine(t, duneCatalog(), nil)

	info := engine.Info()
	assert.Equal(t, 3, info.Items)
	assert.Equal(t, 0, info.Users)
	assert.Equal(t, 0, info.FactorRank)
	assert.NotZero(t, engine.Version())
}

func TestRecommend_ItemScenario(t *testing.T) {
	engine := newTestEngine(t, duneCatalog(), nil)

	got := engine.Recommend(Request{ItemID: "1", N: 2})

	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ItemID)
	assert.Equal(t, OriginContent, got[0].Origin)
	assert.Equal(t, "3", got[1].ItemID)
	assert.Equal(t, OriginFallback, got[1].Origin)
}

func TestRecommend_NoIDsIsPureFallback(t *testing.T) {
	engine := newTestEngine(t, largeCatalog(12), nil)

	got := engine.Recommend(Request{N: 5})

	require.Len(t, got, 5)
	assertUniqueIDs(t, got)
	for _, c := range got {
		assert.Equal(t, OriginFallback, c.Origin)
	}
}

func TestRecommend_UnknownItem(t *testing.T) {
	engine := newTestEngine(t, largeCatalog(12), nil)

	got := engine.Recommend(Request{ItemID: "404", N: 4})

	require.Len(t, got, 4)
	for _, c := range got {
		assert.Equal(t, OriginFallback, c.Origin)
	}
}

func TestRecommend_DefaultCount(t *testing.T) {
	engine := newTestEngine(t, largeCatalog(12), nil)

	assert.Len(t, engine.Recommend(Request{}), DefaultCount)
	assert.Len(t, engine.Recommend(Request{N: -3}), DefaultCount)
}

func TestRecommend_BlendsSignals(t *testing.T) {
	engine := newTestEngine(t, factorCatalog(), factorRatings())

	got := engine.Recommend(Request{UserID: "u1", ItemID: "1", N: 4})

	require.Len(t, got, 4)
	assertUniqueIDs(t, got)
	assertTierOrdered(t, got)
	assert.Equal(t, OriginContent, got[0].Origin)
	assert.Equal(t, OriginContent, got[1].Origin)
	assert.Equal(t, OriginCollaborative, got[2].Origin)
}

func TestRecommend_Properties(t *testing.T) {
	items := largeCatalog(24)
	var ratings []catalog.RatingEvent
	for u := 0; u < 6; u++ {
		for i := u; i < len(items); i += 5 {
			ratings = append(ratings, rate(string(rune('a'+u)), items[i].ID, float64(1+i%5)))
		}
	}
	engine := newTestEngine(t, items, ratings)

	requests := []Request{
		{ItemID: "3", N: 5},
		{UserID: "b", N: 7},
		{UserID: "c", ItemID: "10", N: 10},
		{UserID: "zz", ItemID: "zz", N: 3},
		{N: 24},
		{N: 40},
	}
	for _, req := range requests {
		got := engine.Recommend(req)
		assert.LessOrEqual(t, len(got), req.N)
		assert.Len(t, got, min(req.N, len(items)))
		assertUniqueIDs(t, got)
		assertTierOrdered(t, got)
	}
}

func TestRecommend_StageFailureHook(t *testing.T) {
	var mu sync.Mutex
	reasons := make(map[string]string)

	opts := testOptions()
	opts.OnStageFailure = func(stage, reason string) {
		mu.Lock()
		defer mu.Unlock()
		reasons[stage] = reason
	}
	engine, err := NewEngine(&catalog.Snapshot{Items: largeCatalog(8)}, opts, testLogger())
	require.NoError(t, err)

	engine.Recommend(Request{UserID: "nobody", ItemID: "404", N: 3})

	assert.Equal(t, "unknown_item", reasons["content"])
	assert.Equal(t, "unknown_user", reasons["collaborative"])
	assert.NotContains(t, reasons, "fallback")
}

func TestRunStage_RecoversPanics(t *testing.T) {
	var reason string
	opts := testOptions()
	opts.OnStageFailure = func(_, r string) { reason = r }
	engine, err := NewEngine(&catalog.Snapshot{Items: duneCatalog()}, opts, testLogger())
	require.NoError(t, err)

	res := engine.runStage("content", func() Result {
		panic("index out of range")
	})

	var computeErr *ComputeError
	require.True(t, errors.As(res.Err, &computeErr))
	assert.Equal(t, "content", computeErr.Stage)
	assert.Equal(t, "compute_error", reason)
}

func TestRecommend_ZeroItemEngine(t *testing.T) {
	index := BuildContentIndex(nil, DefaultIndexOptions())
	sampler := NewSampler(nil, 1)
	engine := &Engine{
		snapshot:      &catalog.Snapshot{},
		index:         index,
		content:       NewContentEngine(index, sampler, DefaultSimilarityThreshold),
		collaborative: NewCollaborativeEngine(nil, index, sampler),
		sampler:       sampler,
		opts:          testOptions(),
		logger:        testLogger(),
	}

	got := engine.Recommend(Request{UserID: "1", ItemID: "1", N: 5})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDedupeByItem(t *testing.T) {
	in := []Candidate{
		{ItemID: "1", Origin: OriginContent, Score: 0.9},
		{ItemID: "2", Origin: OriginContent, Score: 0.5},
		{ItemID: "1", Origin: OriginCollaborative, Score: 4.2},
	}

	got := dedupeByItem(in)

	require.Len(t, got, 2)
	assert.Equal(t, OriginContent, got[0].Origin)
}
