// Package postgres holds the relational source of truth: document rows
// written by the upload handler and the append-only classification log.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/finvault/docclassify/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id BIGINT PRIMARY KEY,
	filename TEXT NOT NULL,
	file_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	storage_path TEXT NOT NULL,
	uploader_id BIGINT NOT NULL,
	upload_time TIMESTAMPTZ NOT NULL,
	processed BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS document_classifications (
	id BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES documents(id),
	category TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	model_version TEXT NOT NULL,
	classified_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classifications_latest
	ON document_classifications(document_id, classified_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, file_type, size_bytes, storage_path, uploader_id, upload_time, processed
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var fileType string
	err := row.Scan(
		&doc.ID, &doc.Filename, &fileType, &doc.Size,
		&doc.StoragePath, &doc.UploaderID, &doc.UploadTime, &doc.Processed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %d", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.FileType = domain.FileType(fileType)
	return &doc, nil
}

// AppendClassification inserts a new row; the table is append-only and
// "current" is resolved by latest classified_at at read time.
func (r *DocumentRepository) AppendClassification(ctx context.Context, cls *domain.Classification) error {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO document_classifications (document_id, category, confidence, model_version, classified_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, cls.DocumentID, cls.Category, cls.Confidence, cls.ModelVersion, cls.ClassifiedAt)

	if err := row.Scan(&cls.ID); err != nil {
		return fmt.Errorf("insert classification: %w", err)
	}
	return nil
}

func (r *DocumentRepository) LatestClassification(ctx context.Context, documentID int64) (*domain.Classification, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, category, confidence, model_version, classified_at
FROM document_classifications
WHERE document_id = $1
ORDER BY classified_at DESC, id DESC
LIMIT 1
`, documentID)

	var cls domain.Classification
	err := row.Scan(&cls.ID, &cls.DocumentID, &cls.Category, &cls.Confidence, &cls.ModelVersion, &cls.ClassifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "latest classification", fmt.Errorf("document %d", documentID))
		}
		return nil, fmt.Errorf("scan classification: %w", err)
	}
	return &cls, nil
}

func (r *DocumentRepository) MarkProcessed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents SET processed = TRUE WHERE id = $1
`, id)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processed rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "mark processed", fmt.Errorf("id %d", id))
	}
	return nil
}
