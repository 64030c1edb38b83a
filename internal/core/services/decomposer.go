package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
	"github.com/custodia-labs/lexroute/internal/logger"
)

// Ensure Decomposer implements the interface.
var _ driving.QueryDecomposer = (*Decomposer)(nil)

// DefaultActionVerbs open a new request after a bare "and" or "or".
var DefaultActionVerbs = []string{
	"analyse", "analyze", "answer", "check", "compare", "compose", "create",
	"discover", "draft", "explain", "fetch", "file", "find", "generate",
	"get", "give", "help", "identify", "list", "locate", "look", "outline",
	"prepare", "provide", "recommend", "research", "retrieve", "review",
	"search", "show", "suggest", "summarise", "summarize", "tell", "write",
}

// questionOpeners also start a new request after a bare conjunction.
var questionOpeners = []string{
	"am", "are", "can", "could", "do", "does", "how", "is", "may", "should",
	"what", "when", "where", "whether", "which", "who", "why", "would",
}

// stopWords carry no request on their own. A fragment made only of
// these is noise.
var stopWords = toSet([]string{
	"a", "about", "all", "also", "an", "and", "any", "are", "as", "at", "be",
	"but", "by", "can", "could", "do", "does", "for", "from", "hello", "help",
	"hi", "how", "i", "i'd", "i'm", "if", "in", "is", "it", "just", "kindly",
	"like", "me", "my", "need", "no", "now", "of", "ok", "okay", "on", "or",
	"our", "please", "plus", "so", "some", "sure", "thank", "thanks", "that",
	"the", "then", "there", "these", "this", "those", "to", "too", "us",
	"very", "want", "we", "what", "will", "with", "would", "yes", "you",
	"your",
})

// abbreviations end in a period without ending a sentence.
var abbreviations = toSet([]string{
	"al", "anr", "art", "arts", "cf", "ch", "cl", "co", "corp", "dr", "e.g",
	"ibid", "i.e", "inc", "jr", "ltd", "mr", "mrs", "ms", "no", "nos", "ors",
	"p", "para", "paras", "pp", "r", "s", "sec", "secs", "sr", "st", "u.k",
	"u.s", "v", "viz", "vs",
})

var (
	lineEnumeration   = regexp.MustCompile(`(?m)^[ \t]*(?:\d{1,2}[.)]|\(?[a-zA-Z]\)|[-*•])[ \t]+`)
	inlineEnumeration = regexp.MustCompile(`(?:^|\s)(?:\(\d{1,2}\)|\d{1,2}\)|\([a-zA-Z]\)|[a-zA-Z]\))\s+`)
	inlineBullet      = regexp.MustCompile(`(?:^|\s)[-•]\s+`)
	strongMarker      = regexp.MustCompile(`(?i)(?:,\s*)?\b(?:and also|and then|additionally|furthermore|also)\b[,:]?`)
	weakConjunction   = regexp.MustCompile(`(?i)(?:,\s*)?\b(?:as well as|plus|and|or)\b[,:]?\s+`)
	wordPattern       = regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)?`)
)

// Decomposer splits a query into ordered, classified sub-queries.
type Decomposer struct {
	classifier  driving.QueryClassifier
	actionVerbs map[string]struct{}
}

// DecomposerOption configures a Decomposer.
type DecomposerOption func(*Decomposer)

// WithActionVerbs replaces the verbs that let a bare "and"/"or" split.
// An empty list keeps the defaults.
func WithActionVerbs(verbs []string) DecomposerOption {
	return func(d *Decomposer) {
		if len(verbs) == 0 {
			return
		}
		lower := make([]string, len(verbs))
		for i, v := range verbs {
			lower[i] = strings.ToLower(strings.TrimSpace(v))
		}
		d.actionVerbs = toSet(lower)
	}
}

// NewDecomposer creates a decomposer.
func NewDecomposer(classifier driving.QueryClassifier, opts ...DecomposerOption) (*Decomposer, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: decomposer requires a classifier", domain.ErrMisconfigured)
	}
	d := &Decomposer{
		classifier:  classifier,
		actionVerbs: toSet(DefaultActionVerbs),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Decompose splits query on sentence boundaries, list markers and
// conjunctions, drops noise fragments and classifies the rest.
//
// A query with no meaningful fragment yields exactly one unknown
// sub-query holding the whole trimmed query. If classification fails the
// whole query is returned as one unknown sub-query.
func (d *Decomposer) Decompose(ctx context.Context, query string) ([]domain.SubQuery, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, domain.ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fragments := d.Split(trimmed)
	if len(fragments) == 0 {
		return []domain.SubQuery{whole(trimmed)}, nil
	}

	subs := make([]domain.SubQuery, 0, len(fragments))
	for order, frag := range fragments {
		intent, confidence, err := d.classifier.Classify(ctx, frag)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("Classification failed, treating query as a single request: %v", err)
			return []domain.SubQuery{whole(trimmed)}, nil
		}
		subs = append(subs, domain.SubQuery{
			Text:       frag,
			Intent:     intent,
			Confidence: confidence,
			Order:      order,
		})
	}
	return subs, nil
}

// Split returns the meaningful fragments of query in order, without
// classifying them. Noise fragments are dropped.
func (d *Decomposer) Split(query string) []string {
	var fragments []string
	for _, item := range splitByPattern(query, lineEnumeration) {
		for _, sentence := range splitSentences(item) {
			for _, part := range splitByPattern(sentence, inlineEnumeration) {
				for _, entry := range splitBullets(part) {
					for _, clause := range splitByPattern(entry, strongMarker) {
						fragments = append(fragments, d.splitConjunctions(clause)...)
					}
				}
			}
		}
	}

	out := fragments[:0]
	for _, f := range fragments {
		f = cleanFragment(f)
		if f != "" && !isNoise(f) {
			out = append(out, f)
		}
	}
	return out
}

// splitConjunctions splits on "and", "or", "plus" and "as well as" only
// where the right side opens with an action verb or a question word.
func (d *Decomposer) splitConjunctions(text string) []string {
	var parts []string
	start := 0
	for _, m := range weakConjunction.FindAllStringIndex(text, -1) {
		if m[0] < start {
			continue
		}
		next := strings.ToLower(firstWord(text[m[1]:]))
		if !d.opensRequest(next) {
			continue
		}
		parts = append(parts, text[start:m[0]])
		start = m[1]
	}
	return append(parts, text[start:])
}

func (d *Decomposer) opensRequest(word string) bool {
	if _, ok := d.actionVerbs[word]; ok {
		return true
	}
	for _, q := range questionOpeners {
		if word == q {
			return true
		}
	}
	return false
}

// splitSentences splits on . ! ? ; followed by whitespace or the end, and
// on newlines. Periods after known abbreviations and single letters do
// not end a sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch == '\n' {
			out = append(out, text[start:i])
			start = i + 1
			continue
		}
		if ch != '.' && ch != '!' && ch != '?' && ch != ';' {
			continue
		}

		end := i
		for end+1 < len(text) && strings.IndexByte(".!?", text[end+1]) >= 0 {
			end++
		}
		if end+1 < len(text) && !unicode.IsSpace(rune(text[end+1])) {
			i = end
			continue
		}
		if ch == '.' && end == i {
			if _, ok := abbreviations[strings.ToLower(lastWord(text[start:i]))]; ok {
				continue
			}
		}

		out = append(out, text[start:end+1])
		start = end + 1
		i = end
	}
	return append(out, text[start:])
}

// splitBullets splits on inline "-" or "•" markers only when the text
// holds at least two of them. A lone dash is punctuation.
func splitBullets(text string) []string {
	if len(inlineBullet.FindAllStringIndex(text, 2)) < 2 {
		return []string{text}
	}
	return splitByPattern(text, inlineBullet)
}

func splitByPattern(text string, re *regexp.Regexp) []string {
	var parts []string
	start := 0
	for _, m := range re.FindAllStringIndex(text, -1) {
		parts = append(parts, text[start:m[0]])
		start = m[1]
	}
	return append(parts, text[start:])
}

// cleanFragment trims whitespace and dangling separators. Sentence
// terminators are kept.
func cleanFragment(f string) string {
	f = strings.TrimSpace(f)
	f = strings.TrimLeft(f, ",;:-*• \t")
	f = strings.TrimRight(f, ",;:-* \t")
	return strings.TrimSpace(f)
}

func isNoise(f string) bool {
	for _, w := range wordPattern.FindAllString(strings.ToLower(f), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if strings.IndexFunc(w, unicode.IsLetter) >= 0 {
			return false
		}
	}
	return true
}

func firstWord(s string) string {
	return wordPattern.FindString(s)
}

func lastWord(s string) string {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	i := strings.LastIndexFunc(s, unicode.IsSpace)
	return strings.Trim(s[i+1:], "()[]\"'")
}

func whole(query string) domain.SubQuery {
	return domain.SubQuery{Text: query, Intent: domain.IntentUnknown, Confidence: 0, Order: 0}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
