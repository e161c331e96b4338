package classifier

import (
	"math"
	"sort"
	"strings"
)

// VectorizerConfig bounds the fitted vocabulary. MaxFeatures keeps the most
// frequent terms; MinDocFreq drops terms seen in fewer documents.
type VectorizerConfig struct {
	MaxFeatures int
	MinDocFreq  int
}

func defaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{MaxFeatures: 5000, MinDocFreq: 1}
}

// Vectorizer is a term-weighted (TF-IDF) feature extractor. All fields are
// exported so a fitted vectorizer round-trips through the model artifact.
// The fitted state is read-only; Transform is safe for concurrent use.
type Vectorizer struct {
	Config     VectorizerConfig
	Vocabulary map[string]int
	IDF        []float64
}

func newVectorizer(cfg VectorizerConfig) *Vectorizer {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = defaultVectorizerConfig().MaxFeatures
	}
	if cfg.MinDocFreq <= 0 {
		cfg.MinDocFreq = 1
	}
	return &Vectorizer{Config: cfg}
}

// Fit builds the vocabulary from tokenized documents. Term selection and
// index assignment are fully deterministic: terms are ranked by document
// frequency with lexical tie-breaks, and indices follow lexical order of
// the selected terms.
func (v *Vectorizer) Fit(docs []string) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range strings.Fields(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	candidates := make([]string, 0, len(df))
	for term, freq := range df {
		if freq >= v.Config.MinDocFreq {
			candidates = append(candidates, term)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if df[candidates[i]] != df[candidates[j]] {
			return df[candidates[i]] > df[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > v.Config.MaxFeatures {
		candidates = candidates[:v.Config.MaxFeatures]
	}
	sort.Strings(candidates)

	total := len(docs)
	v.Vocabulary = make(map[string]int, len(candidates))
	v.IDF = make([]float64, len(candidates))
	for i, term := range candidates {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log(float64(1+total)/float64(1+df[term])) + 1
	}
}

// Transform maps a tokenized document to an L2-normalized TF-IDF vector.
func (v *Vectorizer) Transform(doc string) []float64 {
	x := make([]float64, len(v.IDF))
	for _, term := range strings.Fields(doc) {
		if i, ok := v.Vocabulary[term]; ok {
			x[i]++
		}
	}
	var norm float64
	for i := range x {
		x[i] *= v.IDF[i]
		norm += x[i] * x[i]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range x {
			x[i] /= norm
		}
	}
	return x
}

func (v *Vectorizer) TransformAll(docs []string) [][]float64 {
	X := make([][]float64, len(docs))
	for i, doc := range docs {
		X[i] = v.Transform(doc)
	}
	return X
}
