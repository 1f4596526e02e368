package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampler_Sample(t *testing.T) {
	items := largeCatalog(10)
	sampler := NewSampler(items, 11)

	exclude := map[string]struct{}{"1": {}, "2": {}}
	got, err := sampler.Sample(5, exclude)
	require.NoError(t, err)
	require.Len(t, got, 5)

	seen := make(map[string]struct{})
	for _, c := range got {
		assert.Equal(t, OriginFallback, c.Origin)
		assert.NotContains(t, exclude, c.ItemID)
		assert.NotContains(t, seen, c.ItemID)
		seen[c.ItemID] = struct{}{}
	}
}

func TestSampler_SampleCapsAtPool(t *testing.T) {
	sampler := NewSampler(duneCatalog(), 11)

	got, err := sampler.Sample(10, map[string]struct{}{"1": {}})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, candidateIDs(got))
}

func TestSampler_Errors(t *testing.T) {
	_, err := NewSampler(nil, 1).Sample(3, nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = NewSampler(nil, 1).EmergencySample(3, nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	all := map[string]struct{}{"1": {}, "2": {}, "3": {}}
	_, err = NewSampler(duneCatalog(), 1).Sample(3, all)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestSampler_NonPositiveCount(t *testing.T) {
	sampler := NewSampler(duneCatalog(), 3)

	for _, n := range []int{0, -1, -100} {
		got, err := sampler.Sample(n, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)

		got, err = sampler.EmergencySample(n, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	engine := newContentEngine(duneCatalog(), DefaultSimilarityThreshold)
	assert.NotPanics(t, func() {
		assert.Empty(t, engine.RecommendContent("does-not-exist", -3))
	})
}

func TestSampler_SeededIsDeterministic(t *testing.T) {
	items := largeCatalog(30)

	first, err := NewSampler(items, 99).Sample(8, nil)
	require.NoError(t, err)
	second, err := NewSampler(items, 99).Sample(8, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSampler_EmergencySample(t *testing.T) {
	sampler := NewSampler(duneCatalog(), 5)

	got, err := sampler.EmergencySample(5, map[string]struct{}{"3": {}})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, candidateIDs(got))
	for _, c := range got {
		assert.Equal(t, OriginEmergencyFallback, c.Origin)
	}
}
