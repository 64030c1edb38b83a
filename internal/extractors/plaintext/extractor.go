// Package plaintext extracts text from plain text and Markdown files.
package plaintext

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// MediaTypes returns the media types this extractor handles.
func (e *Extractor) MediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaTypeText}
}

// ExtractText decodes raw as UTF-8. A leading BOM is dropped and
// invalid byte sequences are replaced.
func (e *Extractor) ExtractText(_ context.Context, raw []byte, _ domain.MediaType) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}
