package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/core/ports"
)

// DispatchTaskUseCase submits a task for asynchronous processing. When the
// broker is unreachable the full pipeline runs synchronously in the
// caller's context instead, so a task is never silently dropped; the caller
// pays full pipeline latency in that degraded path.
type DispatchTaskUseCase struct {
	queue     ports.TaskQueue
	processor ports.TaskProcessor
	logger    *slog.Logger
}

func NewDispatchTaskUseCase(
	queue ports.TaskQueue,
	processor ports.TaskProcessor,
	logger *slog.Logger,
) *DispatchTaskUseCase {
	return &DispatchTaskUseCase{
		queue:     queue,
		processor: processor,
		logger:    logger,
	}
}

func (uc *DispatchTaskUseCase) Submit(ctx context.Context, task domain.ProcessingTask) error {
	if _, err := domain.ParseFileType(string(task.FileType)); err != nil {
		return err
	}

	err := uc.queue.Publish(ctx, task)
	if err == nil {
		uc.logger.Info("task enqueued", "document_id", task.DocumentID)
		return nil
	}
	if !domain.IsKind(err, domain.ErrBroker) {
		return fmt.Errorf("publish task: %w", err)
	}

	uc.logger.Warn("broker unavailable, processing task inline",
		"document_id", task.DocumentID,
		"error", err,
	)
	outcome := uc.processor.Process(ctx, task)
	if !outcome.Success {
		return fmt.Errorf("inline fallback processing: %w", outcome.Err)
	}
	return nil
}
