// Package lexicon scores text against intents using a weighted cue lexicon.
package lexicon

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Ensure Model implements the interface.
var _ driven.IntentModel = (*Model)(nil)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['-][\p{L}\p{N}]+)*`)

// File is the on-disk lexicon format.
type File struct {
	Version int                  `yaml:"version"`
	Intents map[string]IntentCue `yaml:"intents"`
}

// IntentCue lists the cue phrases for one intent.
type IntentCue struct {
	Cues map[string]float64 `yaml:"cues"`
}

// cue is a compiled phrase. Each token is matched exactly unless it is
// a prefix (written with a trailing *).
type cue struct {
	tokens []string
	prefix []bool
	weight float64
}

// Model is a deterministic bag-of-cues intent model.
type Model struct {
	cues map[domain.Intent][]cue
}

// Default returns the built-in lexicon.
func Default() (*Model, error) {
	return Parse(defaultLexicon)
}

// Load reads a lexicon from a YAML file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return Parse(data)
}

// Parse compiles a YAML lexicon. Unknown intents and non-positive
// weights are rejected.
func Parse(data []byte) (*Model, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse lexicon: %v", domain.ErrMisconfigured, err)
	}
	if len(f.Intents) == 0 {
		return nil, fmt.Errorf("%w: lexicon has no intents", domain.ErrMisconfigured)
	}

	m := &Model{cues: make(map[domain.Intent][]cue, len(f.Intents))}
	for name, ic := range f.Intents {
		intent, ok := domain.ParseIntent(name)
		if !ok || intent == domain.IntentUnknown {
			return nil, fmt.Errorf("%w: lexicon names unknown intent %q", domain.ErrMisconfigured, name)
		}

		phrases := make([]string, 0, len(ic.Cues))
		for p := range ic.Cues {
			phrases = append(phrases, p)
		}
		sort.Strings(phrases)

		for _, phrase := range phrases {
			weight := ic.Cues[phrase]
			if weight <= 0 {
				return nil, fmt.Errorf("%w: cue %q has non-positive weight", domain.ErrMisconfigured, phrase)
			}
			c, err := compile(phrase, weight)
			if err != nil {
				return nil, err
			}
			m.cues[intent] = append(m.cues[intent], c)
		}
	}
	return m, nil
}

func compile(phrase string, weight float64) (cue, error) {
	fields := strings.Fields(strings.ToLower(phrase))
	if len(fields) == 0 {
		return cue{}, fmt.Errorf("%w: empty cue", domain.ErrMisconfigured)
	}
	c := cue{weight: weight, tokens: make([]string, len(fields)), prefix: make([]bool, len(fields))}
	for i, f := range fields {
		c.prefix[i] = strings.HasSuffix(f, "*")
		c.tokens[i] = strings.TrimSuffix(f, "*")
	}
	return c, nil
}

// Name identifies the model in logs.
func (m *Model) Name() string { return "lexicon" }

// Scores sums the weights of every cue occurrence per intent.
func (m *Model) Scores(_ context.Context, text string) (map[domain.Intent]float64, error) {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	scores := make(map[domain.Intent]float64, len(m.cues))
	for intent, cues := range m.cues {
		var total float64
		for _, c := range cues {
			total += c.weight * float64(c.count(words))
		}
		scores[intent] = total
	}
	return scores, nil
}

func (c cue) count(words []string) int {
	n := 0
	for start := 0; start+len(c.tokens) <= len(words); start++ {
		if c.matchAt(words, start) {
			n++
		}
	}
	return n
}

func (c cue) matchAt(words []string, start int) bool {
	for i, tok := range c.tokens {
		w := words[start+i]
		if c.prefix[i] {
			if !strings.HasPrefix(w, tok) {
				return false
			}
		} else if w != tok {
			return false
		}
	}
	return true
}
