package classifier

import (
	"fmt"
	"math"
)

// Supported model families. The family is selected at construction time and
// baked into the artifact.
const (
	ModelNaiveBayes      = "naive_bayes"
	ModelLogReg          = "logistic_regression"
	ModelNearestCentroid = "nearest_centroid"
)

// defaultConfidence is emitted for families that expose only a hard label.
const defaultConfidence = 0.8

// modelFamily is the trainable part behind the vectorizer. predict returns
// the class index, a confidence, and whether that confidence came from a
// real probability distribution.
type modelFamily interface {
	fit(X [][]float64, y []int, numClasses int)
	predict(x []float64) (class int, confidence float64, hasProbability bool)
}

type familyParams struct {
	Alpha        float64 // naive bayes smoothing
	LearningRate float64 // logistic regression step size
	Epochs       int     // logistic regression iterations
	L2           float64 // logistic regression regularization
}

func defaultFamilyParams() familyParams {
	return familyParams{
		Alpha:        1.0,
		LearningRate: 0.5,
		Epochs:       200,
		L2:           1e-4,
	}
}

func newFamily(modelType string, params familyParams) (modelFamily, error) {
	switch modelType {
	case ModelNaiveBayes:
		return &naiveBayes{Alpha: params.Alpha}, nil
	case ModelLogReg:
		return &logisticRegression{
			LearningRate: params.LearningRate,
			Epochs:       params.Epochs,
			L2:           params.L2,
		}, nil
	case ModelNearestCentroid:
		return &nearestCentroid{}, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

// naiveBayes is a multinomial NB over non-negative TF-IDF features.
type naiveBayes struct {
	Alpha          float64
	ClassLogPrior  []float64
	FeatureLogProb [][]float64
}

func (nb *naiveBayes) fit(X [][]float64, y []int, numClasses int) {
	dim := 0
	if len(X) > 0 {
		dim = len(X[0])
	}
	classCount := make([]float64, numClasses)
	featureSum := make([][]float64, numClasses)
	for c := range featureSum {
		featureSum[c] = make([]float64, dim)
	}
	for i, x := range X {
		c := y[i]
		classCount[c]++
		for j, v := range x {
			featureSum[c][j] += v
		}
	}

	total := float64(len(X))
	nb.ClassLogPrior = make([]float64, numClasses)
	nb.FeatureLogProb = make([][]float64, numClasses)
	for c := 0; c < numClasses; c++ {
		nb.ClassLogPrior[c] = math.Log(classCount[c] / total)
		nb.FeatureLogProb[c] = make([]float64, dim)
		var classTotal float64
		for _, v := range featureSum[c] {
			classTotal += v
		}
		denom := classTotal + nb.Alpha*float64(dim)
		for j := 0; j < dim; j++ {
			nb.FeatureLogProb[c][j] = math.Log((featureSum[c][j] + nb.Alpha) / denom)
		}
	}
}

func (nb *naiveBayes) predict(x []float64) (int, float64, bool) {
	scores := make([]float64, len(nb.ClassLogPrior))
	for c := range scores {
		score := nb.ClassLogPrior[c]
		for j, v := range x {
			if v != 0 {
				score += v * nb.FeatureLogProb[c][j]
			}
		}
		scores[c] = score
	}
	probs := softmax(scores)
	best := argmax(probs)
	return best, probs[best], true
}

// logisticRegression is softmax regression fit by deterministic full-batch
// gradient descent.
type logisticRegression struct {
	LearningRate float64
	Epochs       int
	L2           float64
	Weights      [][]float64
	Bias         []float64
}

func (lr *logisticRegression) fit(X [][]float64, y []int, numClasses int) {
	dim := 0
	if len(X) > 0 {
		dim = len(X[0])
	}
	lr.Weights = make([][]float64, numClasses)
	for c := range lr.Weights {
		lr.Weights[c] = make([]float64, dim)
	}
	lr.Bias = make([]float64, numClasses)

	n := float64(len(X))
	for epoch := 0; epoch < lr.Epochs; epoch++ {
		gradW := make([][]float64, numClasses)
		for c := range gradW {
			gradW[c] = make([]float64, dim)
		}
		gradB := make([]float64, numClasses)

		for i, x := range X {
			probs := softmax(lr.scores(x))
			for c := 0; c < numClasses; c++ {
				diff := probs[c]
				if c == y[i] {
					diff -= 1
				}
				gradB[c] += diff
				for j, v := range x {
					if v != 0 {
						gradW[c][j] += diff * v
					}
				}
			}
		}

		for c := 0; c < numClasses; c++ {
			lr.Bias[c] -= lr.LearningRate * gradB[c] / n
			for j := 0; j < dim; j++ {
				lr.Weights[c][j] -= lr.LearningRate * (gradW[c][j]/n + lr.L2*lr.Weights[c][j])
			}
		}
	}
}

func (lr *logisticRegression) scores(x []float64) []float64 {
	scores := make([]float64, len(lr.Bias))
	for c := range scores {
		score := lr.Bias[c]
		for j, v := range x {
			if v != 0 {
				score += v * lr.Weights[c][j]
			}
		}
		scores[c] = score
	}
	return scores
}

func (lr *logisticRegression) predict(x []float64) (int, float64, bool) {
	probs := softmax(lr.scores(x))
	best := argmax(probs)
	return best, probs[best], true
}

// nearestCentroid assigns the class whose mean vector is closest by cosine
// similarity. It has no probability output; the engine substitutes the
// fixed default confidence.
type nearestCentroid struct {
	Centroids [][]float64
}

func (nc *nearestCentroid) fit(X [][]float64, y []int, numClasses int) {
	dim := 0
	if len(X) > 0 {
		dim = len(X[0])
	}
	nc.Centroids = make([][]float64, numClasses)
	counts := make([]float64, numClasses)
	for c := range nc.Centroids {
		nc.Centroids[c] = make([]float64, dim)
	}
	for i, x := range X {
		c := y[i]
		counts[c]++
		for j, v := range x {
			nc.Centroids[c][j] += v
		}
	}
	for c := range nc.Centroids {
		var norm float64
		for j := range nc.Centroids[c] {
			if counts[c] > 0 {
				nc.Centroids[c][j] /= counts[c]
			}
			norm += nc.Centroids[c][j] * nc.Centroids[c][j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range nc.Centroids[c] {
				nc.Centroids[c][j] /= norm
			}
		}
	}
}

func (nc *nearestCentroid) predict(x []float64) (int, float64, bool) {
	best, bestSim := 0, math.Inf(-1)
	for c, centroid := range nc.Centroids {
		var sim float64
		for j, v := range x {
			if v != 0 {
				sim += v * centroid[j]
			}
		}
		if sim > bestSim {
			best, bestSim = c, sim
		}
	}
	return best, 0, false
}

func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
