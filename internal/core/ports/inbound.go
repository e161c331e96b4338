package ports

import (
	"context"

	"github.com/finvault/docclassify/internal/core/domain"
)

// TaskDispatcher is the inbound contract the upload handler calls after the
// document row and raw bytes are durably persisted.
type TaskDispatcher interface {
	Submit(ctx context.Context, task domain.ProcessingTask) error
}

// TaskProcessor runs the full pipeline for one task:
// extraction, preprocessing, classification, persistence.
type TaskProcessor interface {
	Process(ctx context.Context, task domain.ProcessingTask) domain.TaskOutcome
}
