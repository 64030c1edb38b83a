package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMediaTypeForPath tests extension set membership
func TestMediaTypeForPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected MediaType
		ok       bool
	}{
		{name: "txt is text", path: "cases/2019_smith.txt", expected: MediaTypeText, ok: true},
		{name: "md is text", path: "notes.md", expected: MediaTypeText, ok: true},
		{name: "text extension is text", path: "a.text", expected: MediaTypeText, ok: true},
		{name: "pdf", path: "judgment.pdf", expected: MediaTypePDF, ok: true},
		{name: "upper case pdf", path: "JUDGMENT.PDF", expected: MediaTypePDF, ok: true},
		{name: "png is image", path: "scan.png", expected: MediaTypeImage, ok: true},
		{name: "jpeg is image", path: "scan.jpeg", expected: MediaTypeImage, ok: true},
		{name: "tiff is image", path: "scan.TIFF", expected: MediaTypeImage, ok: true},
		{name: "docx is unsupported", path: "brief.docx", ok: false},
		{name: "no extension", path: "README", ok: false},
		{name: "substring of allowed set is not a match", path: "file.df", ok: false},
		{name: "superstring of allowed set is not a match", path: "file.pdfx", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, ok := MediaTypeForPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, mt)
			}
		})
	}
}

// TestSupportedExtensions_ReturnsCopy tests callers cannot mutate the sets
func TestSupportedExtensions_ReturnsCopy(t *testing.T) {
	exts := SupportedExtensions(MediaTypePDF)
	assert.Equal(t, []string{".pdf"}, exts)

	exts[0] = ".exe"
	assert.Equal(t, []string{".pdf"}, SupportedExtensions(MediaTypePDF))
}

// TestMediaType_IsValid tests media type validity
func TestMediaType_IsValid(t *testing.T) {
	assert.True(t, MediaTypeText.IsValid())
	assert.True(t, MediaTypePDF.IsValid())
	assert.True(t, MediaTypeImage.IsValid())
	assert.False(t, MediaType("audio").IsValid())
	assert.False(t, MediaType("").IsValid())
}
