package graph

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Concept is a weighted term extracted from record content.
type Concept struct {
	Term      string
	Frequency int
	Weight    float64
	Class     string
}

// Extractor turns raw content into concepts. Implementations must be safe
// for concurrent use.
type Extractor interface {
	Extract(content string) []Concept
}

var (
	reCamelCase = regexp.MustCompile(`\b[A-Z][a-z]*(?:[A-Z][a-z]*)*\b`)
	reFileExt   = regexp.MustCompile(`\b\w+\.(?:js|py|java|cpp|ts|jsx|tsx|go|rs)\b`)
	reAcronyms  = regexp.MustCompile(`\b(?:API|HTTP|HTTPS|JSON|XML|SQL|NoSQL|AI|ML|DL|NLP|CV)\b`)
	reProgTerms = regexp.MustCompile(`\b(?:function|class|method|variable|constant|interface|type)\b`)
	reCSTerms   = regexp.MustCompile(`\b(?:algorithm|data structure|complexity|optimization)\b`)
	reQuantum   = regexp.MustCompile(`\b(?:quantum|superposition|entanglement|qubit|gate)\b`)
	reMLTerms   = regexp.MustCompile(`\b(?:neural network|deep learning|backpropagation|gradient)\b`)

	reEntities = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:MIT|Stanford|Princeton|Harvard|Berkeley)\b`),
		regexp.MustCompile(`\b(?:Google|Microsoft|IBM|Amazon|Facebook|Apple)\b`),
		regexp.MustCompile(`\b(?:React|Vue|Angular|Node\.js|Python|JavaScript|TypeScript)\b`),
		regexp.MustCompile(`\b(?:Qiskit|TensorFlow|PyTorch|Scikit-learn|Pandas|NumPy)\b`),
		regexp.MustCompile(`\b(?:GitHub|GitLab|Docker|Kubernetes|AWS|Azure|GCP)\b`),
	}

	reSentenceSplit = regexp.MustCompile(`[.!?]+`)
)

var technicalVocab = []string{
	"algorithm", "function", "class", "method", "variable", "api", "http",
	"json", "sql", "database", "server", "client", "framework", "library",
	"quantum", "superposition", "entanglement", "qubit", "neural", "network",
	"machine", "learning", "artificial", "intelligence", "deep",
}

// RegexExtractor mines technical terms, named entities and short phrases
// from content using fixed patterns.
type RegexExtractor struct{}

func NewRegexExtractor() *RegexExtractor { return &RegexExtractor{} }

func (x *RegexExtractor) Extract(content string) []Concept {
	seen := make(map[string]struct{})
	var terms []string

	add := func(matches []string) {
		for _, m := range matches {
			key := strings.ToLower(strings.TrimSpace(m))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			terms = append(terms, key)
		}
	}

	for _, re := range []*regexp.Regexp{
		reCamelCase, reFileExt, reAcronyms, reProgTerms, reCSTerms, reQuantum, reMLTerms,
	} {
		add(re.FindAllString(content, -1))
	}
	for _, re := range reEntities {
		add(re.FindAllString(content, -1))
	}
	add(keyPhrases(content))

	words := len(strings.Fields(content))
	concepts := make([]Concept, 0, len(terms))
	for _, term := range terms {
		freq := countTerm(content, term)
		concepts = append(concepts, Concept{
			Term:      term,
			Frequency: freq,
			Weight:    conceptWeight(term, freq, words),
			Class:     classify(term),
		})
	}
	return concepts
}

// keyPhrases returns each sentence of two to five words as a candidate phrase.
func keyPhrases(content string) []string {
	var phrases []string
	for _, sentence := range reSentenceSplit.Split(content, -1) {
		words := strings.Fields(strings.TrimSpace(sentence))
		if len(words) >= 2 && len(words) <= 5 {
			phrases = append(phrases, strings.Join(words, " "))
		}
	}
	return phrases
}

func countTerm(content, term string) int {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	if err != nil {
		return 0
	}
	return len(re.FindAllString(content, -1))
}

func conceptWeight(term string, freq, contentWords int) float64 {
	if contentWords == 0 {
		return 0
	}
	w := float64(freq) / float64(contentWords)
	if isTechnical(term) {
		w *= 1.5
	}
	if first := []rune(term); len(first) > 0 && unicode.IsUpper(first[0]) {
		w *= 1.3
	}
	if w > 1.0 {
		w = 1.0
	}
	return w
}

func isTechnical(term string) bool {
	lower := strings.ToLower(term)
	for _, tech := range technicalVocab {
		if strings.Contains(lower, tech) || strings.Contains(tech, lower) {
			return true
		}
	}
	return false
}

func classify(term string) string {
	switch {
	case isTechnical(term):
		return "technical"
	case len(term) > 0 && unicode.IsUpper([]rune(term)[0]):
		return "proper_noun"
	case strings.Contains(term, "."):
		return "file"
	case len(term) > 10:
		return "phrase"
	default:
		return "general"
	}
}

// TopConcepts returns the n heaviest concepts, weight descending with the
// original extraction order breaking ties.
func TopConcepts(concepts []Concept, n int) []Concept {
	out := append([]Concept(nil), concepts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
