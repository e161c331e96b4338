package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/core/ports"
)

func TestPersistAbortsWhenClassificationRowFails(t *testing.T) {
	repo := &repoFake{doc: testDocument(), appErr: errors.New("connection refused")}
	content := &contentStoreFake{}
	search := &searchIndexFake{}
	uc := NewPersistOutcomeUseCase(repo, content, search, discardLogger())

	err := uc.Persist(context.Background(), testDocument(), "text", ports.Prediction{Category: "invoice", Confidence: 0.7}, "v1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrStoreWrite) {
		t.Fatalf("err = %v, want ErrStoreWrite kind", err)
	}
	if len(content.records) != 0 || len(search.projections) != 0 {
		t.Fatal("secondary stores must not be written when the primary write fails")
	}
	if len(repo.markedIDs) != 0 {
		t.Fatal("document must not be marked processed")
	}
}

func TestPersistTreatsContentStoreFailureAsRepairable(t *testing.T) {
	repo := &repoFake{doc: testDocument()}
	content := &contentStoreFake{upsertErr: errors.New("mongo down")}
	search := &searchIndexFake{}

	var repaired []string
	uc := NewPersistOutcomeUseCase(repo, content, search, discardLogger()).
		WithRepairHook(func(store string) { repaired = append(repaired, store) })

	err := uc.Persist(context.Background(), testDocument(), "text", ports.Prediction{Category: "invoice", Confidence: 0.7}, "v1")
	if err != nil {
		t.Fatalf("Persist() error = %v, want nil for repairable failure", err)
	}
	if len(repo.appended) != 1 {
		t.Fatal("classification row must still be written")
	}
	if len(search.projections) != 1 {
		t.Fatal("search write must still be attempted after content store failure")
	}
	if len(repaired) != 1 || repaired[0] != "content_store" {
		t.Fatalf("repaired = %v, want [content_store]", repaired)
	}
}

func TestPersistTreatsSearchIndexFailureAsRepairable(t *testing.T) {
	repo := &repoFake{doc: testDocument()}
	content := &contentStoreFake{}
	search := &searchIndexFake{upsertErr: errors.New("index unavailable")}

	var repaired []string
	uc := NewPersistOutcomeUseCase(repo, content, search, discardLogger()).
		WithRepairHook(func(store string) { repaired = append(repaired, store) })

	err := uc.Persist(context.Background(), testDocument(), "text", ports.Prediction{Category: "invoice", Confidence: 0.7}, "v1")
	if err != nil {
		t.Fatalf("Persist() error = %v, want nil", err)
	}
	if len(repaired) != 1 || repaired[0] != "search_index" {
		t.Fatalf("repaired = %v, want [search_index]", repaired)
	}
	if len(repo.markedIDs) != 1 {
		t.Fatal("document must still be marked processed")
	}
}

func TestPersistIsIdempotentPerDocument(t *testing.T) {
	repo := &repoFake{doc: testDocument()}
	content := &contentStoreFake{}
	search := &searchIndexFake{}
	uc := NewPersistOutcomeUseCase(repo, content, search, discardLogger())

	doc := testDocument()
	pred := ports.Prediction{Category: "invoice", Confidence: 0.7}
	for i := 0; i < 2; i++ {
		if err := uc.Persist(context.Background(), doc, "text", pred, "v1"); err != nil {
			t.Fatalf("Persist() run %d error = %v", i, err)
		}
	}

	// Classification rows append; both upserts are keyed by document id so
	// a redelivered task overwrites rather than duplicates.
	if len(repo.appended) != 2 {
		t.Fatalf("appended rows = %d, want 2", len(repo.appended))
	}
	for _, record := range content.records {
		if record.DocumentID != doc.ID {
			t.Fatalf("content record keyed by %d, want %d", record.DocumentID, doc.ID)
		}
	}
	for _, projection := range search.projections {
		if projection.DocumentID != doc.ID {
			t.Fatalf("projection keyed by %d, want %d", projection.DocumentID, doc.ID)
		}
	}
}
