package domain

import "strings"

// Intent is the closed set of help categories a sub-query can request.
type Intent string

// Available intents.
const (
	// IntentCaseDiscovery finds and summarises relevant case documents.
	IntentCaseDiscovery Intent = "case_discovery"

	// IntentLegalAid answers a legal question using retrieved context.
	IntentLegalAid Intent = "legal_aid"

	// IntentLegalDrafting drafts documents or clauses.
	IntentLegalDrafting Intent = "legal_drafting"

	// IntentUnknown is assigned when no intent is confident enough.
	IntentUnknown Intent = "unknown"
)

// Intents returns every intent in declaration order.
func Intents() []Intent {
	return []Intent{IntentCaseDiscovery, IntentLegalAid, IntentLegalDrafting, IntentUnknown}
}

// KnownIntents returns the intents a classifier can positively assign.
func KnownIntents() []Intent {
	return []Intent{IntentCaseDiscovery, IntentLegalAid, IntentLegalDrafting}
}

// IsValid returns true if the intent is part of the closed set.
func (i Intent) IsValid() bool {
	switch i {
	case IntentCaseDiscovery, IntentLegalAid, IntentLegalDrafting, IntentUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (i Intent) String() string {
	return string(i)
}

// Description returns a human-readable description of the intent.
func (i Intent) Description() string {
	switch i {
	case IntentCaseDiscovery:
		return "Case discovery"
	case IntentLegalAid:
		return "Legal aid"
	case IntentLegalDrafting:
		return "Legal drafting"
	default:
		return "Unknown"
	}
}

// legacyIntents maps task labels used by earlier deployments.
var legacyIntents = map[string]Intent{
	"case discovery":         IntentCaseDiscovery,
	"document summarization": IntentCaseDiscovery,
	"document summarisation": IntentCaseDiscovery,
	"query resolution":       IntentLegalAid,
	"legal aid":              IntentLegalAid,
	"legal drafting":         IntentLegalDrafting,
}

// ParseIntent converts a label to an Intent.
// It accepts canonical names, hyphen/space variants and legacy task labels.
func ParseIntent(s string) (Intent, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if i, ok := legacyIntents[norm]; ok {
		return i, true
	}
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	i := Intent(norm)
	if i.IsValid() {
		return i, true
	}
	return IntentUnknown, false
}

// SubQuery is one classified fragment of a decomposed query.
// It lives for a single query-handling cycle.
type SubQuery struct {
	// Text is the fragment as the user wrote it, trimmed.
	Text string `json:"text"`

	// Intent is the classified intent.
	Intent Intent `json:"intent"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`

	// Order is the zero-based left-to-right position in the query.
	Order int `json:"order"`
}
