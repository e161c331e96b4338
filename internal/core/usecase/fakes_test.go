package usecase

import (
	"context"
	"io"
	"log/slog"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/core/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type repoFake struct {
	doc     *domain.Document
	getErr  error
	appErr  error
	markErr error

	appended  []*domain.Classification
	markedIDs []int64
}

func (f *repoFake) GetByID(context.Context, int64) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *repoFake) AppendClassification(_ context.Context, cls *domain.Classification) error {
	if f.appErr != nil {
		return f.appErr
	}
	f.appended = append(f.appended, cls)
	return nil
}

func (f *repoFake) LatestClassification(context.Context, int64) (*domain.Classification, error) {
	if len(f.appended) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	return f.appended[len(f.appended)-1], nil
}

func (f *repoFake) MarkProcessed(_ context.Context, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedIDs = append(f.markedIDs, id)
	return nil
}

type contentStoreFake struct {
	upsertErr error
	records   []*domain.ContentRecord
}

func (f *contentStoreFake) Upsert(_ context.Context, record *domain.ContentRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *contentStoreFake) TrainingSamples(context.Context) ([]string, []string, error) {
	return nil, nil, nil
}

type searchIndexFake struct {
	upsertErr   error
	projections []*domain.SearchProjection
}

func (f *searchIndexFake) Upsert(_ context.Context, projection *domain.SearchProjection) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.projections = append(f.projections, projection)
	return nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, domain.FileType, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type normalizerFake struct {
	prefix string
	seen   []string
}

func (f *normalizerFake) Normalize(text string) string {
	f.seen = append(f.seen, text)
	return f.prefix + text
}

type classifierFake struct {
	prediction ports.Prediction
	err        error
	version    string
	seen       []string
}

func (f *classifierFake) Predict(_ context.Context, text string) (ports.Prediction, error) {
	f.seen = append(f.seen, text)
	if f.err != nil {
		return ports.Prediction{}, f.err
	}
	return f.prediction, nil
}

func (f *classifierFake) PredictBatch(ctx context.Context, texts []string) ([]ports.Prediction, error) {
	out := make([]ports.Prediction, len(texts))
	for i, text := range texts {
		p, err := f.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func (f *classifierFake) Version() string { return f.version }

type queueFake struct {
	publishErr error
	published  []domain.ProcessingTask
}

func (f *queueFake) Publish(_ context.Context, task domain.ProcessingTask) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, task)
	return nil
}

func (f *queueFake) Consume(context.Context, ports.TaskHandler) error { return nil }

type processorFake struct {
	outcome domain.TaskOutcome
	calls   int
}

func (f *processorFake) Process(context.Context, domain.ProcessingTask) domain.TaskOutcome {
	f.calls++
	return f.outcome
}
