package ports

import (
	"context"

	"github.com/finvault/docclassify/internal/core/domain"
)

// DocumentRepository reads document state and appends classification rows.
// Rows are written by the external upload handler; the pipeline only reads
// them, appends classifications, and flips the processed flag.
type DocumentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	AppendClassification(ctx context.Context, cls *domain.Classification) error
	LatestClassification(ctx context.Context, documentID int64) (*domain.Classification, error)
	MarkProcessed(ctx context.Context, id int64) error
}

// ContentStore upserts extracted text keyed by document id. TrainingSamples
// feeds the trainer from already-classified records.
type ContentStore interface {
	Upsert(ctx context.Context, record *domain.ContentRecord) error
	TrainingSamples(ctx context.Context) (texts []string, labels []string, err error)
}

// SearchIndex upserts the denormalized retrieval projection keyed by
// document id.
type SearchIndex interface {
	Upsert(ctx context.Context, projection *domain.SearchProjection) error
}

// TaskQueue is the durable broker contract. Publish must survive broker
// restart once accepted; Consume holds at most one unacknowledged task per
// worker and redelivers on failure.
type TaskQueue interface {
	Publish(ctx context.Context, task domain.ProcessingTask) error
	Consume(ctx context.Context, handler TaskHandler) error
}

// TaskHandler processes one task; the queue acks iff the outcome succeeded.
type TaskHandler func(ctx context.Context, task domain.ProcessingTask) domain.TaskOutcome

// TextExtractor returns best-effort plain text for a stored file. Structural
// failures surface as an error with empty text, never as a panic.
type TextExtractor interface {
	Extract(ctx context.Context, fileType domain.FileType, path string) (string, error)
}

// TextNormalizer is the deterministic, language-aware preprocessing step.
type TextNormalizer interface {
	Normalize(text string) string
}

// Prediction is the classifier output for a single text.
type Prediction struct {
	Category   string
	Confidence float64
}

// Classifier predicts over normalized text using a loaded model artifact.
type Classifier interface {
	Predict(ctx context.Context, text string) (Prediction, error)
	PredictBatch(ctx context.Context, texts []string) ([]Prediction, error)
	Version() string
}
