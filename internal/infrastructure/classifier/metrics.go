package classifier

// Evaluation holds held-out metrics; precision/recall/F1 are weighted by
// class support so imbalanced datasets report honest aggregates.
type Evaluation struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

func evaluate(yTrue, yPred []int, numClasses int) Evaluation {
	if len(yTrue) == 0 {
		return Evaluation{}
	}

	tp := make([]float64, numClasses)
	fp := make([]float64, numClasses)
	fn := make([]float64, numClasses)
	support := make([]float64, numClasses)

	var correct float64
	for i := range yTrue {
		support[yTrue[i]]++
		if yPred[i] == yTrue[i] {
			correct++
			tp[yTrue[i]]++
		} else {
			fp[yPred[i]]++
			fn[yTrue[i]]++
		}
	}

	total := float64(len(yTrue))
	var precision, recall, f1 float64
	for c := 0; c < numClasses; c++ {
		if support[c] == 0 {
			continue
		}
		p := safeDiv(tp[c], tp[c]+fp[c])
		r := safeDiv(tp[c], tp[c]+fn[c])
		f := safeDiv(2*p*r, p+r)
		weight := support[c] / total
		precision += weight * p
		recall += weight * r
		f1 += weight * f
	}

	return Evaluation{
		Accuracy:  correct / total,
		Precision: precision,
		Recall:    recall,
		F1:        f1,
	}
}

func safeDiv(num, denom float64) float64 {
	if denom == 0 {
		return 0
	}
	return num / denom
}
