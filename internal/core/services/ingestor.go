package services

import (
	"context"
	"fmt"
	"iter"
	"os"
	"regexp"
	"strings"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// Ingestor converts source files into chunks. It reads, extracts,
// normalises and chunks; it never writes to the index.
type Ingestor struct {
	extractor driven.TextExtractor
	chunker   driven.Chunker
	readFile  func(string) ([]byte, error)
}

// NewIngestor creates an ingestor.
func NewIngestor(extractor driven.TextExtractor, chunker driven.Chunker) *Ingestor {
	return &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		readFile:  os.ReadFile,
	}
}

// Ingest extracts and chunks a single source.
func (s *Ingestor) Ingest(ctx context.Context, source domain.Source) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mt := source.MediaType
	if !mt.IsValid() {
		var ok bool
		if mt, ok = domain.MediaTypeForPath(source.Path); !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, source.ID)
		}
	}

	raw, err := s.readFile(source.Path)
	if err != nil {
		return nil, &domain.ExtractionError{Path: source.Path, MediaType: mt, Err: err}
	}

	text, err := s.extractor.ExtractText(ctx, raw, mt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.ExtractionError{Path: source.Path, MediaType: mt, Err: err}
	}

	text = NormaliseText(text)
	if text == "" {
		logger.Debug("No text extracted from %s", source.ID)
		return nil, nil
	}

	chunks, err := s.chunker.Process(ctx, source.ID, source.Path, text)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", source.ID, err)
	}
	return chunks, nil
}

// Stream ingests sources lazily in order. Iteration stops early when the
// consumer breaks or ctx is cancelled; failures are yielded, not fatal.
func (s *Ingestor) Stream(ctx context.Context, sources []domain.Source) iter.Seq[driving.IngestResult] {
	return func(yield func(driving.IngestResult) bool) {
		for _, src := range sources {
			if ctx.Err() != nil {
				return
			}
			chunks, err := s.Ingest(ctx, src)
			if !yield(driving.IngestResult{Source: src, Chunks: chunks, Err: err}) {
				return
			}
		}
	}
}

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	excessBlank   = regexp.MustCompile(`\n{3,}`)
	textCleaner   = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\x00", "", "\ufeff", "", "\f", "\n")
)

// NormaliseText makes extracted text uniform: LF line endings, no BOM or
// NUL bytes, no trailing spaces, at most one blank line in a row.
func NormaliseText(text string) string {
	text = textCleaner.Replace(text)
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = excessBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
