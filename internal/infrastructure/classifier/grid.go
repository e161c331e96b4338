package classifier

import (
	"fmt"
	"math/rand"
	"strconv"
)

const cvFolds = 3

// hyperParams is one point of the tuning grid.
type hyperParams struct {
	vec VectorizerConfig
	fam familyParams
}

func (h hyperParams) describe(modelType string) map[string]string {
	out := map[string]string{
		"vectorizer.max_features": strconv.Itoa(h.vec.MaxFeatures),
	}
	switch modelType {
	case ModelNaiveBayes:
		out["naive_bayes.alpha"] = fmt.Sprintf("%g", h.fam.Alpha)
	case ModelLogReg:
		out["logreg.learning_rate"] = fmt.Sprintf("%g", h.fam.LearningRate)
		out["logreg.epochs"] = strconv.Itoa(h.fam.Epochs)
	}
	return out
}

// searchHyperparameters runs a cross-validated grid over the vectorizer
// and family parameters, scored by mean fold accuracy. Folds are assigned
// deterministically from the seeded shuffle, so the search itself is
// reproducible.
func (e *Engine) searchHyperparameters(texts []string, y []int, numClasses int) hyperParams {
	best := hyperParams{vec: e.vectorizerCfg, fam: e.familyParams}
	if len(texts) < cvFolds*2 {
		return best
	}

	folds := assignFolds(len(texts))
	bestScore := -1.0
	for _, point := range e.grid() {
		score := crossValidate(e.modelType, point, texts, y, numClasses, folds)
		if score > bestScore {
			bestScore = score
			best = point
		}
	}
	return best
}

func (e *Engine) grid() []hyperParams {
	maxFeatures := []int{1000, 3000, 5000}
	var points []hyperParams
	for _, mf := range maxFeatures {
		vec := VectorizerConfig{MaxFeatures: mf, MinDocFreq: e.vectorizerCfg.MinDocFreq}
		switch e.modelType {
		case ModelNaiveBayes:
			for _, alpha := range []float64{0.1, 0.5, 1.0} {
				fam := e.familyParams
				fam.Alpha = alpha
				points = append(points, hyperParams{vec: vec, fam: fam})
			}
		case ModelLogReg:
			for _, lr := range []float64{0.1, 0.5, 1.0} {
				fam := e.familyParams
				fam.LearningRate = lr
				points = append(points, hyperParams{vec: vec, fam: fam})
			}
		default:
			points = append(points, hyperParams{vec: vec, fam: e.familyParams})
		}
	}
	return points
}

func crossValidate(modelType string, point hyperParams, texts []string, y []int, numClasses int, folds []int) float64 {
	var total float64
	var scored int
	for fold := 0; fold < cvFolds; fold++ {
		var trainTexts, valTexts []string
		var trainY, valY []int
		for i := range texts {
			if folds[i] == fold {
				valTexts = append(valTexts, texts[i])
				valY = append(valY, y[i])
			} else {
				trainTexts = append(trainTexts, texts[i])
				trainY = append(trainY, y[i])
			}
		}
		if len(valTexts) == 0 || !coversAllClasses(trainY, numClasses) {
			continue
		}

		vectorizer := newVectorizer(point.vec)
		vectorizer.Fit(trainTexts)
		family, err := newFamily(modelType, point.fam)
		if err != nil {
			return -1
		}
		family.fit(vectorizer.TransformAll(trainTexts), trainY, numClasses)

		predicted := make([]int, len(valTexts))
		for i, text := range valTexts {
			class, _, _ := family.predict(vectorizer.Transform(text))
			predicted[i] = class
		}
		total += evaluate(valY, predicted, numClasses).Accuracy
		scored++
	}
	if scored == 0 {
		return -1
	}
	return total / float64(scored)
}

func assignFolds(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(splitSeed))
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	folds := make([]int, n)
	for position, idx := range order {
		folds[idx] = position % cvFolds
	}
	return folds
}

func coversAllClasses(y []int, numClasses int) bool {
	seen := make([]bool, numClasses)
	count := 0
	for _, c := range y {
		if !seen[c] {
			seen[c] = true
			count++
		}
	}
	return count == numClasses
}
