package sentiment

import (
	_ "embed"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Label constants
const (
	Positive = "Positive"
	Negative = "Negative"
	Neutral  = "Neutral"
	Unknown  = "Unknown"
)

// Display colors used by the dashboard for each label
const (
	ColorPositive = "#00ff88"
	ColorNegative = "#ff3d71"
	ColorNeutral  = "#ff6b35"
	ColorUnknown  = "#666666"
)

// Labels lists the labels a successful classification can return, in display order.
var Labels = []string{Positive, Negative, Neutral}

//go:embed lexicon.yaml
var defaultLexicon []byte

// Lexicon holds the keyword lists the classifier matches against.
type Lexicon struct {
	Positive []string `yaml:"positive" json:"positive"`
	Negative []string `yaml:"negative" json:"negative"`
}

// Result is the label and display color for one text.
type Result struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Classifier is a keyword-bag sentiment classifier over free text.
type Classifier struct {
	positive []string
	negative []string
}

// ParseLexicon decodes a YAML word list document.
func ParseLexicon(data []byte) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("decode lexicon: %w", err)
	}
	if len(lex.Positive) == 0 || len(lex.Negative) == 0 {
		return Lexicon{}, fmt.Errorf("lexicon needs both positive and negative words")
	}
	return lex, nil
}

// New builds a classifier from a lexicon. Words are lowercased and blanks dropped.
func New(lex Lexicon) *Classifier {
	return &Classifier{
		positive: normalizeWords(lex.Positive),
		negative: normalizeWords(lex.Negative),
	}
}

// Default returns a classifier over the embedded lexicon.
func Default() *Classifier {
	lex, err := ParseLexicon(defaultLexicon)
	if err != nil {
		panic(err)
	}
	return New(lex)
}

// Classify labels text as Positive, Negative or Neutral.
//
// p and n count how many positive and negative keywords occur in the
// lowercased text. A side with at least two hits and strictly more hits wins
// first; otherwise any strict majority wins; ties are Neutral.
func (c *Classifier) Classify(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Label: Unknown, Color: ColorUnknown}
		}
	}()

	lowered := strings.ToLower(text)
	p := countHits(lowered, c.positive)
	n := countHits(lowered, c.negative)

	switch {
	case p > n && p >= 2:
		return Result{Label: Positive, Color: ColorPositive}
	case n > p && n >= 2:
		return Result{Label: Negative, Color: ColorNegative}
	case p > n:
		return Result{Label: Positive, Color: ColorPositive}
	case n > p:
		return Result{Label: Negative, Color: ColorNegative}
	default:
		return Result{Label: Neutral, Color: ColorNeutral}
	}
}

// Label is a shorthand for Classify(text).Label.
func (c *Classifier) Label(text string) string {
	return c.Classify(text).Label
}

// Words returns a copy of the active lexicon.
func (c *Classifier) Words() Lexicon {
	return Lexicon{
		Positive: append([]string(nil), c.positive...),
		Negative: append([]string(nil), c.negative...),
	}
}

// Distribution returns the percentage of Positive, Negative and Neutral labels,
// rounded to one decimal. Unknown labels count toward the total only.
func Distribution(labels []string) map[string]float64 {
	dist := map[string]float64{
		Positive: 0,
		Negative: 0,
		Neutral:  0,
	}
	if len(labels) == 0 {
		return dist
	}

	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	total := float64(len(labels))
	for _, l := range Labels {
		dist[l] = math.Round(float64(counts[l])/total*1000) / 10
	}
	return dist
}

func countHits(text string, words []string) int {
	hits := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			hits++
		}
	}
	return hits
}

func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]bool)
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
