// Package extractor dispatches text extraction over the closed set of
// supported file formats. Adding a format means adding a case here and a
// subpackage next to the existing ones.
package extractor

import (
	"context"
	"fmt"

	"github.com/finvault/docclassify/internal/core/domain"
	"github.com/finvault/docclassify/internal/infrastructure/extractor/docx"
	"github.com/finvault/docclassify/internal/infrastructure/extractor/htmlex"
	"github.com/finvault/docclassify/internal/infrastructure/extractor/pdfex"
)

type fileExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

type Registry struct {
	pdf  fileExtractor
	docx fileExtractor
	html fileExtractor
}

func NewRegistry() *Registry {
	return &Registry{
		pdf:  pdfex.New(),
		docx: docx.New(),
		html: htmlex.New(),
	}
}

func (r *Registry) Extract(ctx context.Context, fileType domain.FileType, path string) (string, error) {
	switch fileType {
	case domain.FileTypePDF:
		return r.pdf.Extract(ctx, path)
	case domain.FileTypeDOCX:
		return r.docx.Extract(ctx, path)
	case domain.FileTypeHTML:
		return r.html.Extract(ctx, path)
	default:
		return "", fmt.Errorf("%w: no extractor for file type %q", domain.ErrInvalidInput, fileType)
	}
}
