package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/core/ports"
)

// ProcessTaskUseCase runs the full pipeline for one queued task. Every
// stage folds its failure into the returned TaskOutcome; nothing panics
// past this boundary, so the consumer loop can always decide ack vs nak.
type ProcessTaskUseCase struct {
	repo       ports.DocumentRepository
	extractor  ports.TextExtractor
	normalizer ports.TextNormalizer
	classifier ports.Classifier
	persister  *PersistOutcomeUseCase
	logger     *slog.Logger
}

func NewProcessTaskUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	normalizer ports.TextNormalizer,
	classifier ports.Classifier,
	persister *PersistOutcomeUseCase,
	logger *slog.Logger,
) *ProcessTaskUseCase {
	return &ProcessTaskUseCase{
		repo:       repo,
		extractor:  extractor,
		normalizer: normalizer,
		classifier: classifier,
		persister:  persister,
		logger:     logger,
	}
}

func (uc *ProcessTaskUseCase) Process(ctx context.Context, task domain.ProcessingTask) domain.TaskOutcome {
	doc, err := uc.repo.GetByID(ctx, task.DocumentID)
	if err != nil {
		return domain.FailedTask(task.DocumentID, fmt.Errorf("fetch document: %w", err))
	}

	rawText, err := uc.extractText(ctx, task)
	if err != nil {
		return domain.FailedTask(task.DocumentID, err)
	}

	normalized := uc.normalizer.Normalize(rawText)

	prediction, err := uc.classifier.Predict(ctx, normalized)
	if err != nil {
		return domain.FailedTask(task.DocumentID, fmt.Errorf("classify document: %w", err))
	}

	if err := uc.persister.Persist(ctx, doc, rawText, prediction, uc.classifier.Version()); err != nil {
		return domain.FailedTask(task.DocumentID, err)
	}

	uc.logger.Info("document processed",
		"document_id", doc.ID,
		"category", prediction.Category,
		"confidence", prediction.Confidence,
		"model_version", uc.classifier.Version(),
	)
	return domain.SucceededTask(doc.ID, prediction.Category, prediction.Confidence)
}

// extractText treats empty output as a per-document processing failure:
// the extractor already converted any structural fault into a diagnostic,
// and a document with no text cannot be classified.
func (uc *ProcessTaskUseCase) extractText(ctx context.Context, task domain.ProcessingTask) (string, error) {
	text, err := uc.extractor.Extract(ctx, task.FileType, task.FilePath)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", errors.New("no text extracted"))
	}
	return text, nil
}
