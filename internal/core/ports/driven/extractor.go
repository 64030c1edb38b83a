package driven

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// TextExtractor turns raw document bytes into plain text.
// Each extractor handles one or more media types.
type TextExtractor interface {
	// MediaTypes returns the media types this extractor handles.
	MediaTypes() []domain.MediaType

	// ExtractText returns the document text. An empty string is valid
	// and means the document has no indexable content.
	ExtractText(ctx context.Context, raw []byte, mediaType domain.MediaType) (string, error)
}
