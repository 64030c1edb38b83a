// Package pdf extracts text from PDF documents using pdftotext (poppler).
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

const tool = "pdftotext"

// Extractor handles PDF documents.
type Extractor struct {
	runner extractors.CommandRunner
}

// New creates a PDF extractor that runs the real pdftotext binary.
func New() *Extractor {
	return NewWithRunner(extractors.ExecRunner{})
}

// NewWithRunner creates a PDF extractor with a custom command runner.
func NewWithRunner(runner extractors.CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// MediaTypes returns the media types this extractor handles.
func (e *Extractor) MediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaTypePDF}
}

// ExtractText writes raw to a temporary file and runs pdftotext on it.
// A PDF without a text layer yields an empty string.
func (e *Extractor) ExtractText(ctx context.Context, raw []byte, _ domain.MediaType) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var text string
	err := extractors.WithTempFile(raw, ".pdf", func(path string) error {
		out, err := e.runner.Run(ctx, tool, "-layout", "-enc", "UTF-8", path, "-")
		if err != nil {
			return fmt.Errorf("pdftotext failed: %w", err)
		}
		text = string(out)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// CheckAvailable returns ErrPDFToolNotFound if pdftotext is not in PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(tool); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific install hints.
func InstallInstructions() string {
	return `pdftotext is required for PDF documents.
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}
