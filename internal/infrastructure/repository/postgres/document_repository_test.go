package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/finvault/docclassify/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDScansDocument(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	uploadTime := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "filename", "file_type", "size_bytes", "storage_path", "uploader_id", "upload_time", "processed",
	}).AddRow(int64(42), "q3-report.pdf", "pdf", int64(2048), "/data/uploads/q3-report.pdf", int64(7), uploadTime, false)

	mock.ExpectQuery("SELECT id, filename, file_type, size_bytes").
		WithArgs(int64(42)).
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.ID != 42 || doc.FileType != domain.FileTypePDF || doc.Filename != "q3-report.pdf" {
		t.Fatalf("doc = %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, file_type, size_bytes").
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 9)
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendClassificationAssignsRowID(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("INSERT INTO document_classifications").
		WithArgs(int64(42), "invoice", 0.93, "v7", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))

	cls := &domain.Classification{
		DocumentID:   42,
		Category:     "invoice",
		Confidence:   0.93,
		ModelVersion: "v7",
		ClassifiedAt: time.Now().UTC(),
	}
	if err := repo.AppendClassification(context.Background(), cls); err != nil {
		t.Fatalf("AppendClassification() error = %v", err)
	}
	if cls.ID != 101 {
		t.Fatalf("cls.ID = %d, want 101", cls.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestClassificationReturnsNewestRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	classifiedAt := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "document_id", "category", "confidence", "model_version", "classified_at"}).
		AddRow(int64(101), int64(42), "invoice", 0.93, "v7", classifiedAt)

	mock.ExpectQuery("SELECT id, document_id, category, confidence").
		WithArgs(int64(42)).
		WillReturnRows(rows)

	cls, err := repo.LatestClassification(context.Background(), 42)
	if err != nil {
		t.Fatalf("LatestClassification() error = %v", err)
	}
	if cls.Category != "invoice" || cls.ModelVersion != "v7" {
		t.Fatalf("cls = %+v", cls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestClassificationReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, document_id, category, confidence").
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LatestClassification(context.Background(), 9)
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMarkProcessedReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents SET processed").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkProcessed(context.Background(), 9)
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkProcessedFlipsFlag(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents SET processed").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkProcessed(context.Background(), 42); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
