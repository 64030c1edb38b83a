// Package ocr extracts text from scanned images using tesseract.
package ocr

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

// ErrOCRToolNotFound is returned when tesseract is not installed.
var ErrOCRToolNotFound = errors.New("tesseract not found: install tesseract-ocr")

const tool = "tesseract"

// DefaultLanguage is the tesseract language pack used when none is set.
const DefaultLanguage = "eng"

// Extractor handles image documents.
type Extractor struct {
	runner   extractors.CommandRunner
	language string
}

// Option configures the OCR extractor.
type Option func(*Extractor)

// WithLanguage sets the tesseract language (e.g. "eng+fra").
func WithLanguage(lang string) Option {
	return func(e *Extractor) {
		if lang != "" {
			e.language = lang
		}
	}
}

// New creates an OCR extractor that runs the real tesseract binary.
func New(opts ...Option) *Extractor {
	return NewWithRunner(extractors.ExecRunner{}, opts...)
}

// NewWithRunner creates an OCR extractor with a custom command runner.
func NewWithRunner(runner extractors.CommandRunner, opts ...Option) *Extractor {
	e := &Extractor{runner: runner, language: DefaultLanguage}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MediaTypes returns the media types this extractor handles.
func (e *Extractor) MediaTypes() []domain.MediaType {
	return []domain.MediaType{domain.MediaTypeImage}
}

// ExtractText runs tesseract over the image and returns the recognised text.
func (e *Extractor) ExtractText(ctx context.Context, raw []byte, _ domain.MediaType) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var text string
	err := extractors.WithTempFile(raw, ".img", func(path string) error {
		out, err := e.runner.Run(ctx, tool, path, "stdout", "-l", e.language)
		if err != nil {
			return fmt.Errorf("tesseract failed: %w", err)
		}
		text = string(out)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// CheckAvailable returns ErrOCRToolNotFound if tesseract is not in PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(tool); err != nil {
		return ErrOCRToolNotFound
	}
	return nil
}
