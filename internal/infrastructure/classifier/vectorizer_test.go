package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorizerBoundsVocabulary(t *testing.T) {
	v := newVectorizer(VectorizerConfig{MaxFeatures: 3, MinDocFreq: 1})
	v.Fit([]string{
		"alpha beta gamma delta",
		"alpha beta gamma",
		"alpha beta",
		"alpha",
	})

	require.Len(t, v.Vocabulary, 3)
	// Highest document frequency wins; delta is the single-document term
	// that must fall off.
	require.NotContains(t, v.Vocabulary, "delta")
	require.Contains(t, v.Vocabulary, "alpha")
}

func TestVectorizerIndicesAreDeterministic(t *testing.T) {
	docs := []string{"zebra apple mango", "apple mango", "zebra apple"}

	a := newVectorizer(VectorizerConfig{MaxFeatures: 10, MinDocFreq: 1})
	a.Fit(docs)
	b := newVectorizer(VectorizerConfig{MaxFeatures: 10, MinDocFreq: 1})
	b.Fit(docs)

	require.Equal(t, a.Vocabulary, b.Vocabulary)
	require.Equal(t, a.IDF, b.IDF)
}

func TestTransformIsL2Normalized(t *testing.T) {
	v := newVectorizer(VectorizerConfig{MaxFeatures: 10, MinDocFreq: 1})
	v.Fit([]string{"alpha beta", "beta gamma", "gamma alpha"})

	x := v.Transform("alpha beta beta gamma")
	var norm float64
	for _, value := range x {
		norm += value * value
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestTransformIgnoresUnknownTerms(t *testing.T) {
	v := newVectorizer(VectorizerConfig{MaxFeatures: 10, MinDocFreq: 1})
	v.Fit([]string{"alpha beta", "beta gamma"})

	x := v.Transform("unseen words only")
	for i, value := range x {
		require.Zero(t, value, "index %d", i)
	}
}

func TestMinDocFreqDropsRareTerms(t *testing.T) {
	v := newVectorizer(VectorizerConfig{MaxFeatures: 10, MinDocFreq: 2})
	v.Fit([]string{"common rare", "common other"})

	require.Contains(t, v.Vocabulary, "common")
	require.NotContains(t, v.Vocabulary, "rare")
	require.NotContains(t, v.Vocabulary, "other")
}

func TestEvaluatePerfectPrediction(t *testing.T) {
	e := evaluate([]int{0, 1, 2, 0, 1}, []int{0, 1, 2, 0, 1}, 3)
	require.Equal(t, 1.0, e.Accuracy)
	require.Equal(t, 1.0, e.Precision)
	require.Equal(t, 1.0, e.Recall)
	require.Equal(t, 1.0, e.F1)
}

func TestEvaluateWeightsBySupport(t *testing.T) {
	// Class 0 (4 samples) all correct, class 1 (1 sample) wrong: accuracy
	// and weighted recall both land at 0.8.
	e := evaluate([]int{0, 0, 0, 0, 1}, []int{0, 0, 0, 0, 0}, 2)
	require.InDelta(t, 0.8, e.Accuracy, 1e-9)
	require.InDelta(t, 0.8, e.Recall, 1e-9)
	require.Less(t, e.F1, 1.0)
}
