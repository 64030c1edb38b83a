package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIntent_IsValid tests the closed intent set
func TestIntent_IsValid(t *testing.T) {
	for _, i := range Intents() {
		assert.True(t, i.IsValid(), i.String())
	}
	assert.False(t, Intent("").IsValid())
	assert.False(t, Intent("summarise").IsValid())
}

// TestKnownIntents_ExcludesUnknown tests that unknown cannot be positively assigned
func TestKnownIntents_ExcludesUnknown(t *testing.T) {
	known := KnownIntents()
	assert.Len(t, known, 3)
	assert.NotContains(t, known, IntentUnknown)
}

// TestParseIntent tests canonical, variant and legacy labels
func TestParseIntent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Intent
		ok       bool
	}{
		{name: "canonical", input: "case_discovery", expected: IntentCaseDiscovery, ok: true},
		{name: "hyphenated", input: "legal-aid", expected: IntentLegalAid, ok: true},
		{name: "spaced and cased", input: "  Legal Drafting ", expected: IntentLegalDrafting, ok: true},
		{name: "legacy summarization", input: "document summarization", expected: IntentCaseDiscovery, ok: true},
		{name: "legacy query resolution", input: "Query Resolution", expected: IntentLegalAid, ok: true},
		{name: "unknown is parseable", input: "unknown", expected: IntentUnknown, ok: true},
		{name: "garbage", input: "tax advice", expected: IntentUnknown, ok: false},
		{name: "empty", input: "", expected: IntentUnknown, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseIntent(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestIntent_Description tests human-readable names
func TestIntent_Description(t *testing.T) {
	assert.Equal(t, "Case discovery", IntentCaseDiscovery.Description())
	assert.Equal(t, "Legal aid", IntentLegalAid.Description())
	assert.Equal(t, "Legal drafting", IntentLegalDrafting.Description())
	assert.Equal(t, "Unknown", IntentUnknown.Description())
	assert.Equal(t, "Unknown", Intent("other").Description())
}
