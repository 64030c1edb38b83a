package domain

import (
	"path/filepath"
	"strings"
)

// MediaType is the kind of source file a document was read from.
type MediaType string

// Supported media types.
const (
	MediaTypeText  MediaType = "text"
	MediaTypePDF   MediaType = "pdf"
	MediaTypeImage MediaType = "image"
)

// mediaTypeExtensions maps each media type to its allowed file extensions.
var mediaTypeExtensions = map[MediaType][]string{
	MediaTypeText:  {".txt", ".text", ".md"},
	MediaTypePDF:   {".pdf"},
	MediaTypeImage: {".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp"},
}

// SupportedExtensions returns the allowed extensions for a media type.
func SupportedExtensions(mt MediaType) []string {
	exts := mediaTypeExtensions[mt]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// MediaTypeForPath resolves the media type of a path by testing its
// extension for membership in each allowed set. Matching is case-insensitive.
func MediaTypeForPath(path string) (MediaType, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", false
	}
	for _, mt := range []MediaType{MediaTypeText, MediaTypePDF, MediaTypeImage} {
		for _, allowed := range mediaTypeExtensions[mt] {
			if ext == allowed {
				return mt, true
			}
		}
	}
	return "", false
}

// IsValid returns true if the media type is one of the supported kinds.
func (m MediaType) IsValid() bool {
	_, ok := mediaTypeExtensions[m]
	return ok
}

// Source is a file discovered under the document root.
type Source struct {
	// ID is the slash-separated path relative to the document root.
	// It doubles as the document ID of everything ingested from it.
	ID string

	// Path is the absolute filesystem path.
	Path string

	// MediaType is resolved from the extension at discovery time.
	MediaType MediaType
}

// Document is the raw input to ingestion.
// It lives only until it has been chunked.
type Document struct {
	// ID is the stable document identifier (see Source.ID).
	ID string

	// SourcePath is where the bytes were read from.
	SourcePath string

	// Raw is the unextracted file content.
	Raw []byte

	// MediaType selects the extractor.
	MediaType MediaType
}

// Chunk represents a searchable unit within a document.
// Chunks are never mutated once created; updates are delete+insert.
type Chunk struct {
	// ID is globally unique and stable while the document content and
	// chunking parameters are unchanged.
	ID string `json:"id"`

	// DocumentID links to the parent document.
	DocumentID string `json:"document_id"`

	// SourcePath is the file the chunk was read from.
	SourcePath string `json:"source_path"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Position is the ordinal position within the document.
	Position int `json:"position"`

	// Embedding is the vector representation for semantic search.
	// It is never serialised with the chunk.
	Embedding []float32 `json:"-"`
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk Chunk `json:"chunk"`

	// Score is the cosine similarity to the query.
	Score float64 `json:"score"`
}
