package domain

import (
	"fmt"
	"time"
)

// FileType is the closed set of formats the pipeline extracts text from.
// The type is decided once at upload time and carried on the task; it is
// never re-derived from the file contents.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeHTML FileType = "html"
)

// ParseFileType validates a wire-level file type tag.
func ParseFileType(s string) (FileType, error) {
	switch FileType(s) {
	case FileTypePDF, FileTypeDOCX, FileTypeHTML:
		return FileType(s), nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", ErrInvalidInput, s)
	}
}

// Document is the relational record created by the upload handler before a
// task is dispatched. The pipeline only ever flips Processed.
type Document struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	FileType    FileType  `json:"file_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"`
	UploaderID  int64     `json:"uploader_id"`
	UploadTime  time.Time `json:"upload_time"`
	Processed   bool      `json:"processed"`
}

// Classification is append-only; the current classification for a document
// is the latest row by ClassifiedAt.
type Classification struct {
	ID           int64     `json:"id"`
	DocumentID   int64     `json:"document_id"`
	Category     string    `json:"category"`
	Confidence   float64   `json:"confidence"`
	ModelVersion string    `json:"model_version"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// ContentMetadata is denormalized alongside the raw text in the content
// store so training and reconciliation never need a relational join.
type ContentMetadata struct {
	Filename   string    `json:"filename" bson:"filename"`
	FileType   FileType  `json:"file_type" bson:"file_type"`
	UploaderID int64     `json:"uploader_id" bson:"uploader_id"`
	UploadTime time.Time `json:"upload_time" bson:"upload_time"`
	Category   string    `json:"category" bson:"category"`
	Confidence float64   `json:"confidence" bson:"confidence"`
}

// ContentRecord holds the extracted raw text, upserted by document id.
type ContentRecord struct {
	DocumentID int64           `json:"document_id" bson:"document_id"`
	Content    string          `json:"content" bson:"content"`
	Metadata   ContentMetadata `json:"metadata" bson:"metadata"`
	CreatedAt  time.Time       `json:"created_at" bson:"created_at"`
}

// SearchProjection is the denormalized search index document; its id in the
// index is the document id.
type SearchProjection struct {
	DocumentID int64     `json:"-"`
	Content    string    `json:"content"`
	Filename   string    `json:"filename"`
	FileType   FileType  `json:"file_type"`
	UploaderID int64     `json:"uploader_id"`
	UploadTime time.Time `json:"upload_time"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
}
