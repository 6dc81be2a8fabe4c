package fusion

import (
	"regexp"
	"strings"
)

var queryStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {},
}

var nonWord = regexp.MustCompile(`[^\w]`)

// ExtractTerms lowercases the query and keeps stop-word-filtered tokens of
// at least three characters, stripped of punctuation.
func ExtractTerms(query string) []string {
	var out []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if _, stop := queryStopWords[word]; stop || len(word) <= 2 {
			continue
		}
		if clean := nonWord.ReplaceAllString(word, ""); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// SynonymProvider expands query terms. Implementations must be safe for
// concurrent use and should return nil for unknown terms.
type SynonymProvider interface {
	Synonyms(term string) []string
	ContextualTerms(term string) []string
}

// StaticSynonyms is the built-in table-driven provider.
type StaticSynonyms struct{}

var synonymTable = map[string][]string{
	"ai":        {"artificial intelligence", "machine learning", "neural network"},
	"quantum":   {"quantum computing", "quantum mechanics", "qubit"},
	"algorithm": {"algorithms", "data structure", "programming"},
	"learning":  {"education", "training", "study"},
	"system":    {"platform", "framework", "architecture"},
}

var contextualTable = map[string][]string{
	"ai":        {"deep learning", "neural networks", "natural language processing"},
	"quantum":   {"superposition", "entanglement", "quantum gates"},
	"algorithm": {"complexity", "optimization", "sorting"},
	"learning":  {"curriculum", "assessment", "progress"},
}

func (StaticSynonyms) Synonyms(term string) []string        { return synonymTable[term] }
func (StaticSynonyms) ContextualTerms(term string) []string { return contextualTable[term] }

// Enhanced carries a query through the retrieval pipeline. Expanded feeds
// the embedding strategy only; exact matching always uses Original.
type Enhanced struct {
	Original   string
	Terms      []string
	Synonyms   []string
	Contextual []string
	Expanded   string
}

// Enhance expands the query with synonyms and contextual terms. Expansion
// never fails; an empty provider leaves Expanded equal to the original.
func Enhance(query string, provider SynonymProvider) Enhanced {
	e := Enhanced{Original: query, Terms: ExtractTerms(query)}
	if provider != nil {
		for _, term := range e.Terms {
			e.Synonyms = append(e.Synonyms, provider.Synonyms(term)...)
			e.Contextual = append(e.Contextual, provider.ContextualTerms(term)...)
		}
	}
	parts := append([]string{query}, e.Synonyms...)
	parts = append(parts, e.Contextual...)
	e.Expanded = strings.Join(parts, " ")
	return e
}
