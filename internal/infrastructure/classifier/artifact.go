package classifier

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/finvault/docclassify/internal/core/domain"
)

const (
	artifactMagic         = "docclassify.model"
	artifactSchemaVersion = 1

	artifactExt = ".bin"
	sidecarExt  = ".meta.json"
)

// artifactEnvelope is the self-describing on-disk form of a trained engine.
// Exactly one family state pointer is set, matching ModelType; the decoder
// rejects anything it does not recognize instead of guessing.
type artifactEnvelope struct {
	Magic         string
	SchemaVersion int
	ModelType     string
	Classes       []string
	Vectorizer    *Vectorizer
	Metadata      Metadata

	NaiveBayes *naiveBayes
	LogReg     *logisticRegression
	Centroid   *nearestCentroid
}

// Save writes the binary artifact and a human-readable metadata sidecar
// next to it. The artifact is addressed by path; the version lives in the
// metadata.
func (e *Engine) Save(path string) error {
	if !e.trained {
		return domain.WrapError(domain.ErrClassification, "save", errors.New("model not trained"))
	}

	env := artifactEnvelope{
		Magic:         artifactMagic,
		SchemaVersion: artifactSchemaVersion,
		ModelType:     e.modelType,
		Classes:       e.classes,
		Vectorizer:    e.vectorizer,
		Metadata:      e.meta,
	}
	switch family := e.family.(type) {
	case *naiveBayes:
		env.NaiveBayes = family
	case *logisticRegression:
		env.LogReg = family
	case *nearestCentroid:
		env.Centroid = family
	default:
		return domain.WrapError(domain.ErrClassification, "save",
			fmt.Errorf("unknown family %T", e.family))
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}
	if err := os.WriteFile(path+artifactExt, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	sidecar, err := json.MarshalIndent(e.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata sidecar: %w", err)
	}
	if err := os.WriteFile(path+sidecarExt, sidecar, 0o644); err != nil {
		return fmt.Errorf("write metadata sidecar: %w", err)
	}
	return nil
}

// Load reconstructs an engine from a saved artifact. The envelope is
// validated before use; predictions from the loaded engine are
// bit-for-bit identical to the engine that was saved.
func Load(path string, opts ...Option) (*Engine, error) {
	raw, err := os.ReadFile(path + artifactExt)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var env artifactEnvelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return nil, domain.WrapError(domain.ErrClassification, "load", fmt.Errorf("decode artifact: %w", err))
	}
	if err := validateEnvelope(&env); err != nil {
		return nil, domain.WrapError(domain.ErrClassification, "load", err)
	}

	e, err := New(env.ModelType, opts...)
	if err != nil {
		return nil, err
	}
	e.vectorizer = env.Vectorizer
	e.vectorizerCfg = env.Vectorizer.Config
	e.classes = env.Classes
	e.meta = env.Metadata

	switch env.ModelType {
	case ModelNaiveBayes:
		e.family = env.NaiveBayes
	case ModelLogReg:
		e.family = env.LogReg
	case ModelNearestCentroid:
		e.family = env.Centroid
	}
	e.trained = true
	return e, nil
}

func validateEnvelope(env *artifactEnvelope) error {
	if env.Magic != artifactMagic {
		return fmt.Errorf("not a model artifact (magic %q)", env.Magic)
	}
	if env.SchemaVersion != artifactSchemaVersion {
		return fmt.Errorf("unsupported artifact schema version %d", env.SchemaVersion)
	}
	if env.Vectorizer == nil || len(env.Classes) == 0 {
		return errors.New("artifact missing vectorizer or class list")
	}
	if !sort.StringsAreSorted(env.Classes) {
		return errors.New("artifact class list is not sorted")
	}
	switch env.ModelType {
	case ModelNaiveBayes:
		if env.NaiveBayes == nil {
			return errors.New("artifact missing naive bayes state")
		}
	case ModelLogReg:
		if env.LogReg == nil {
			return errors.New("artifact missing logistic regression state")
		}
	case ModelNearestCentroid:
		if env.Centroid == nil {
			return errors.New("artifact missing centroid state")
		}
	default:
		return fmt.Errorf("unsupported model type %q", env.ModelType)
	}
	return nil
}
