package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/core/ports"
)

func validTask() domain.ProcessingTask {
	return domain.ProcessingTask{
		DocumentID: 17,
		FilePath:   "/data/uploads/contract.docx",
		FileType:   domain.FileTypeDOCX,
	}
}

func TestSubmitEnqueuesWhenBrokerHealthy(t *testing.T) {
	queue := &queueFake{}
	processor := &processorFake{}
	uc := NewDispatchTaskUseCase(queue, processor, discardLogger())

	if err := uc.Submit(context.Background(), validTask()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(queue.published) != 1 {
		t.Fatalf("published = %d, want 1", len(queue.published))
	}
	if processor.calls != 0 {
		t.Fatal("inline processing must not run when publish succeeds")
	}
}

func TestSubmitFallsBackInlineOnBrokerError(t *testing.T) {
	queue := &queueFake{
		publishErr: domain.WrapError(domain.ErrBroker, "publish task", errors.New("no servers available")),
	}
	processor := &processorFake{outcome: domain.SucceededTask(17, "contract", 0.88)}
	uc := NewDispatchTaskUseCase(queue, processor, discardLogger())

	if err := uc.Submit(context.Background(), validTask()); err != nil {
		t.Fatalf("Submit() error = %v, want inline fallback to succeed", err)
	}
	if processor.calls != 1 {
		t.Fatalf("processor calls = %d, want 1", processor.calls)
	}
}

func TestSubmitInlineFallbackPersistsToAllStores(t *testing.T) {
	repo := &repoFake{doc: testDocument()}
	content := &contentStoreFake{}
	search := &searchIndexFake{}
	processor := newProcessUC(repo, content, search,
		&extractorFake{text: "termination clause obligations"},
		&normalizerFake{},
		&classifierFake{prediction: ports.Prediction{Category: "contract", Confidence: 0.9}, version: "v2"},
	)
	queue := &queueFake{
		publishErr: domain.WrapError(domain.ErrBroker, "publish task", errors.New("no servers available")),
	}
	uc := NewDispatchTaskUseCase(queue, processor, discardLogger())

	if err := uc.Submit(context.Background(), domain.ProcessingTask{
		DocumentID: 42,
		FilePath:   "/data/uploads/q3-report.pdf",
		FileType:   domain.FileTypePDF,
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(repo.appended) != 1 || len(content.records) != 1 || len(search.projections) != 1 {
		t.Fatalf("store writes = %d/%d/%d, want 1/1/1 via the synchronous path",
			len(repo.appended), len(content.records), len(search.projections))
	}
}

func TestSubmitReportsInlineFailure(t *testing.T) {
	queue := &queueFake{
		publishErr: domain.WrapError(domain.ErrBroker, "publish task", errors.New("connection closed")),
	}
	processor := &processorFake{outcome: domain.FailedTask(17, errors.New("extraction failed"))}
	uc := NewDispatchTaskUseCase(queue, processor, discardLogger())

	err := uc.Submit(context.Background(), validTask())
	if err == nil {
		t.Fatal("expected error when inline fallback fails")
	}
}

func TestSubmitDoesNotFallBackOnNonBrokerError(t *testing.T) {
	queue := &queueFake{publishErr: errors.New("payload too large")}
	processor := &processorFake{outcome: domain.SucceededTask(17, "contract", 0.88)}
	uc := NewDispatchTaskUseCase(queue, processor, discardLogger())

	err := uc.Submit(context.Background(), validTask())
	if err == nil {
		t.Fatal("expected error")
	}
	if processor.calls != 0 {
		t.Fatal("inline processing must only run for broker errors")
	}
}

func TestSubmitRejectsUnsupportedFileType(t *testing.T) {
	queue := &queueFake{}
	processor := &processorFake{}
	uc := NewDispatchTaskUseCase(queue, processor, discardLogger())

	err := uc.Submit(context.Background(), domain.ProcessingTask{
		DocumentID: 17,
		FilePath:   "/data/uploads/archive.tar",
		FileType:   "tar",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(queue.published) != 0 || processor.calls != 0 {
		t.Fatal("invalid task must not reach the queue or the pipeline")
	}
}
