// Package chunker provides a fixed-size text chunking processor.
package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// chunkNamespace scopes name-based chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/custodia-labs/lexroute/chunk"))

// Processor splits document text into fixed-size overlapping chunks.
// Sizes are measured in characters (runes), never bytes, so multi-byte
// text is never split inside a character.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Size returns the configured chunk size.
func (p *Processor) Size() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits text into chunks belonging to documentID.
// Whitespace-only text produces no chunks. The last chunk always ends at
// the end of the text; no chunk is fully contained in its predecessor.
func (p *Processor) Process(ctx context.Context, documentID, sourcePath, text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)
	step := p.chunkSize - p.overlap

	chunks := make([]domain.Chunk, 0, n/step+1)
	for start, position := 0, 0; start < n; start, position = start+step, position+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+p.chunkSize, n)
		content := string(runes[start:end])

		chunks = append(chunks, domain.Chunk{
			ID:         p.ChunkID(documentID, position, content),
			DocumentID: documentID,
			SourcePath: sourcePath,
			Text:       content,
			Position:   position,
		})

		if end == n {
			break
		}
	}

	return chunks, nil
}

// ChunkID derives a stable identifier from the document, the chunking
// parameters, the position and the content hash.
func (p *Processor) ChunkID(documentID string, position int, content string) string {
	sum := sha256.Sum256([]byte(content))

	var b strings.Builder
	b.WriteString(documentID)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(p.chunkSize))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(p.overlap))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(position))
	b.WriteByte('|')
	b.WriteString(hex.EncodeToString(sum[:]))

	return uuid.NewSHA1(chunkNamespace, []byte(b.String())).String()
}
