package driving

import (
	"context"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// SkippedDocument records a document that failed to build.
type SkippedDocument struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

// BuildReport summarises a directory build.
type BuildReport struct {
	// Indexed is the number of documents that produced chunks.
	Indexed int `json:"indexed"`

	// Empty is the number of documents with no extractable text.
	Empty int `json:"empty"`

	// Chunks is the number of chunks added.
	Chunks int `json:"chunks"`

	// Skipped lists documents that failed ingestion.
	Skipped []SkippedDocument `json:"skipped,omitempty"`
}

// IndexStats describes the current index contents.
type IndexStats struct {
	Chunks     int    `json:"chunks"`
	Documents  int    `json:"documents"`
	Dimensions int    `json:"dimensions"`
	Model      string `json:"model"`
}

// IndexService manages the embedding index.
type IndexService interface {
	Retriever

	// Add embeds and inserts chunks. Re-adding a chunk ID replaces it.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// ReplaceDocument removes every chunk of the document and adds chunks.
	ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// DeleteDocument removes every chunk of the document.
	// Returns the number of chunks removed.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// BuildFromDirectory indexes every supported document under root.
	// Failing documents are reported, not fatal.
	BuildFromDirectory(ctx context.Context, root string) (BuildReport, error)

	// Persist writes the index to its snapshot store.
	Persist(ctx context.Context) error

	// Load replaces the index with the persisted snapshot.
	// A missing snapshot leaves an empty index.
	Load(ctx context.Context) error

	// Stats returns index statistics.
	Stats() IndexStats

	// IsEmpty returns true if nothing is indexed.
	IsEmpty() bool
}
