// Package classifier implements the trainable document classification
// engine: a TF-IDF feature extractor in front of a pluggable model family,
// with versioned artifacts, a TTL-bounded prediction cache, and bounded
// parallel batch prediction.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/core/ports"
)

const (
	// splitSeed fixes the train/held-out shuffle so evaluation is
	// reproducible across runs on the same data.
	splitSeed = 42

	holdoutRatio = 0.2

	defaultBatchSize = 64
	defaultPoolSize  = 4
)

// Metadata describes a trained artifact; it is also written verbatim to the
// human-readable sidecar next to the binary blob.
type Metadata struct {
	ModelType       string            `json:"model_type"`
	Version         string            `json:"version"`
	TrainedAt       time.Time         `json:"trained_at"`
	Evaluation      Evaluation        `json:"performance"`
	NumSamples      int               `json:"num_samples"`
	NumClasses      int               `json:"num_classes"`
	Hyperparameters map[string]string `json:"hyperparameters,omitempty"`
}

// Engine moves through untrained -> trained -> persisted -> loaded. After
// Train or Load the model state is read-only and safe to share across
// workers; retraining produces a new version rather than mutating a loaded
// artifact in place.
type Engine struct {
	modelType     string
	vectorizerCfg VectorizerConfig
	familyParams  familyParams

	vectorizer *Vectorizer
	family     modelFamily
	classes    []string
	meta       Metadata
	trained    bool

	cache     *predictionCache
	batchSize int
	poolSize  int
}

type Option func(*Engine)

// WithCache enables the bounded-TTL prediction cache.
func WithCache(size int, ttl time.Duration) Option {
	return func(e *Engine) {
		if size > 0 && ttl > 0 {
			e.cache = newPredictionCache(size, ttl)
		}
	}
}

// WithBatching bounds batch prediction: batchSize texts per vectorization
// unit, poolSize concurrent units.
func WithBatching(batchSize, poolSize int) Option {
	return func(e *Engine) {
		if batchSize > 0 {
			e.batchSize = batchSize
		}
		if poolSize > 0 {
			e.poolSize = poolSize
		}
	}
}

// New builds an untrained engine. An unknown model family is a fatal
// configuration error, not a default.
func New(modelType string, opts ...Option) (*Engine, error) {
	if _, err := newFamily(modelType, defaultFamilyParams()); err != nil {
		return nil, domain.WrapError(domain.ErrClassification, "new classifier", err)
	}
	e := &Engine{
		modelType:     modelType,
		vectorizerCfg: defaultVectorizerConfig(),
		familyParams:  defaultFamilyParams(),
		batchSize:     defaultBatchSize,
		poolSize:      defaultPoolSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) ModelType() string { return e.modelType }

func (e *Engine) Version() string { return e.meta.Version }

func (e *Engine) Metadata() Metadata { return e.meta }

// Train fits the vectorizer and model family on a deterministic stratified
// split and evaluates on the held-out portion. With tune set, a
// cross-validated grid search picks the vectorizer and family
// hyperparameters first and records the winners in the metadata.
func (e *Engine) Train(texts, labels []string, tune bool) (Metadata, error) {
	if len(texts) == 0 || len(texts) != len(labels) {
		return Metadata{}, domain.WrapError(domain.ErrClassification, "train",
			fmt.Errorf("texts/labels mismatch: %d/%d", len(texts), len(labels)))
	}

	classes := sortedClasses(labels)
	if len(classes) < 2 {
		return Metadata{}, domain.WrapError(domain.ErrClassification, "train",
			errors.New("need at least two classes"))
	}
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	y := make([]int, len(labels))
	for i, label := range labels {
		y[i] = classIndex[label]
	}

	trainIdx, testIdx := stratifiedSplit(y, len(classes))

	trainTexts := pick(texts, trainIdx)
	trainY := pickInts(y, trainIdx)

	if tune {
		chosen := e.searchHyperparameters(trainTexts, trainY, len(classes))
		e.vectorizerCfg = chosen.vec
		e.familyParams = chosen.fam
		e.meta.Hyperparameters = chosen.describe(e.modelType)
	}

	vectorizer := newVectorizer(e.vectorizerCfg)
	vectorizer.Fit(trainTexts)

	family, err := newFamily(e.modelType, e.familyParams)
	if err != nil {
		return Metadata{}, domain.WrapError(domain.ErrClassification, "train", err)
	}
	family.fit(vectorizer.TransformAll(trainTexts), trainY, len(classes))

	evalIdx := testIdx
	if len(evalIdx) == 0 {
		evalIdx = trainIdx
	}
	predicted := make([]int, len(evalIdx))
	for i, idx := range evalIdx {
		class, _, _ := family.predict(vectorizer.Transform(texts[idx]))
		predicted[i] = class
	}

	e.vectorizer = vectorizer
	e.family = family
	e.classes = classes
	e.trained = true

	hyper := e.meta.Hyperparameters
	e.meta = Metadata{
		ModelType:       e.modelType,
		Version:         ulid.Make().String(),
		TrainedAt:       time.Now().UTC(),
		Evaluation:      evaluate(pickInts(y, evalIdx), predicted, len(classes)),
		NumSamples:      len(texts),
		NumClasses:      len(classes),
		Hyperparameters: hyper,
	}
	if e.cache != nil {
		e.cache.purge()
	}
	return e.meta, nil
}

// Predict classifies a single normalized text, consulting the prediction
// cache first. Calling before Train or Load is a configuration error.
func (e *Engine) Predict(_ context.Context, text string) (ports.Prediction, error) {
	if !e.trained {
		return ports.Prediction{}, domain.WrapError(domain.ErrClassification, "predict",
			errors.New("model not trained or loaded"))
	}

	var key string
	if e.cache != nil {
		key = fingerprintKey(e.modelType, e.meta.Version, text)
		if p, ok := e.cache.get(key); ok {
			return p, nil
		}
	}

	p := e.predictOne(text)
	if e.cache != nil {
		e.cache.add(key, p)
	}
	return p, nil
}

// PredictBatch vectorizes bounded batches on a bounded worker pool and
// predicts over the assembled matrix. Output order equals input order.
func (e *Engine) PredictBatch(_ context.Context, texts []string) ([]ports.Prediction, error) {
	if !e.trained {
		return nil, domain.WrapError(domain.ErrClassification, "predict batch",
			errors.New("model not trained or loaded"))
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, len(texts))
	pool, err := ants.NewPool(e.poolSize)
	if err != nil {
		return nil, fmt.Errorf("create vectorize pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batchStart, batchEnd := start, end
		job := func() {
			defer wg.Done()
			for i := batchStart; i < batchEnd; i++ {
				vectors[i] = e.vectorizer.Transform(texts[i])
			}
		}
		wg.Add(1)
		if err := pool.Submit(job); err != nil {
			// Pool is released only after Wait; a submit failure here
			// means the batch runs on the caller instead.
			job()
		}
	}
	wg.Wait()

	predictions := make([]ports.Prediction, len(texts))
	for i, x := range vectors {
		class, confidence, hasProbability := e.family.predict(x)
		if !hasProbability {
			confidence = defaultConfidence
		}
		predictions[i] = ports.Prediction{Category: e.classes[class], Confidence: confidence}
	}
	return predictions, nil
}

func (e *Engine) predictOne(text string) ports.Prediction {
	class, confidence, hasProbability := e.family.predict(e.vectorizer.Transform(text))
	if !hasProbability {
		confidence = defaultConfidence
	}
	return ports.Prediction{Category: e.classes[class], Confidence: confidence}
}

// sortedClasses returns the unique labels in stable sorted order; class
// indices must survive save/load/retrain, so label order is data, never
// map iteration order.
func sortedClasses(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	classes := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		classes = append(classes, label)
	}
	sort.Strings(classes)
	return classes
}

// stratifiedSplit holds out a fixed ratio per class with a fixed seed.
// Every class keeps at least one training sample; single-sample classes
// contribute nothing to the held-out set.
func stratifiedSplit(y []int, numClasses int) (trainIdx, testIdx []int) {
	perClass := make([][]int, numClasses)
	for i, c := range y {
		perClass[c] = append(perClass[c], i)
	}

	rng := rand.New(rand.NewSource(splitSeed))
	for _, indices := range perClass {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		holdout := int(float64(len(indices)) * holdoutRatio)
		if holdout == 0 && len(indices) >= 2 {
			holdout = 1
		}
		if holdout >= len(indices) {
			holdout = len(indices) - 1
		}
		testIdx = append(testIdx, indices[:holdout]...)
		trainIdx = append(trainIdx, indices[holdout:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx
}

func pick(values []string, indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

func pickInts(values []int, indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}
