package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/core/ports"
)

// PersistOutcomeUseCase writes a classification outcome to the three stores
// in order. The classification row is the source of truth and must succeed;
// the content record and search projection are idempotent upserts whose
// failures leave a repairable inconsistency that is logged for
// reconciliation, not rolled back.
type PersistOutcomeUseCase struct {
	repo    ports.DocumentRepository
	content ports.ContentStore
	search  ports.SearchIndex
	logger  *slog.Logger
	now     func() time.Time

	// onRepair is notified of every repairable inconsistency, keyed by
	// store name; the worker binds it to a metric.
	onRepair func(store string)
}

func NewPersistOutcomeUseCase(
	repo ports.DocumentRepository,
	content ports.ContentStore,
	search ports.SearchIndex,
	logger *slog.Logger,
) *PersistOutcomeUseCase {
	return &PersistOutcomeUseCase{
		repo:    repo,
		content: content,
		search:  search,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Persist applies the ordered writes. A returned error means the document is
// not classified at all and the task must be redelivered. A nil return can
// still leave the content store or search index stale; that state is
// recoverable because both writes are upserts keyed by document id.
func (uc *PersistOutcomeUseCase) Persist(
	ctx context.Context,
	doc *domain.Document,
	rawText string,
	prediction ports.Prediction,
	modelVersion string,
) error {
	classifiedAt := uc.now()

	cls := &domain.Classification{
		DocumentID:   doc.ID,
		Category:     prediction.Category,
		Confidence:   prediction.Confidence,
		ModelVersion: modelVersion,
		ClassifiedAt: classifiedAt,
	}
	if err := uc.repo.AppendClassification(ctx, cls); err != nil {
		return domain.WrapError(domain.ErrStoreWrite, "append classification", err)
	}

	metadata := domain.ContentMetadata{
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		UploaderID: doc.UploaderID,
		UploadTime: doc.UploadTime,
		Category:   prediction.Category,
		Confidence: prediction.Confidence,
	}

	record := &domain.ContentRecord{
		DocumentID: doc.ID,
		Content:    rawText,
		Metadata:   metadata,
		CreatedAt:  classifiedAt,
	}
	if err := uc.content.Upsert(ctx, record); err != nil {
		uc.logRepairable(doc.ID, "content_store", "upsert content record", err)
	}

	projection := &domain.SearchProjection{
		DocumentID: doc.ID,
		Content:    rawText,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		UploaderID: doc.UploaderID,
		UploadTime: doc.UploadTime,
		Category:   prediction.Category,
		Confidence: prediction.Confidence,
	}
	if err := uc.search.Upsert(ctx, projection); err != nil {
		uc.logRepairable(doc.ID, "search_index", "upsert search projection", err)
	}

	if err := uc.repo.MarkProcessed(ctx, doc.ID); err != nil {
		uc.logRepairable(doc.ID, "document_repository", "mark processed", err)
	}

	return nil
}

// WithRepairHook registers a callback for repairable inconsistencies.
func (uc *PersistOutcomeUseCase) WithRepairHook(hook func(store string)) *PersistOutcomeUseCase {
	uc.onRepair = hook
	return uc
}

// logRepairable records enough context for an external reconciliation pass:
// the document is durably classified but one projection is stale.
func (uc *PersistOutcomeUseCase) logRepairable(documentID int64, store, op string, err error) {
	uc.logger.Error("repairable store inconsistency",
		"document_id", documentID,
		"store", store,
		"operation", op,
		"error", fmt.Sprintf("%v", err),
	)
	if uc.onRepair != nil {
		uc.onRepair(store)
	}
}
