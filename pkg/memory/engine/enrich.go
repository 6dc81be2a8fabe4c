package engine

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/mindvault/memoria/pkg/memory/model"
)

// Classifier labels content at write time. Implementations may call out to
// a model service; failures fall back to the heuristic labels.
type Classifier interface {
	Language(ctx context.Context, content string) (string, error)
	Sentiment(ctx context.Context, content string) (string, error)
}

var arabicScript = regexp.MustCompile(`[\x{0600}-\x{06FF}]`)

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "amazing": {}, "wonderful": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "awful": {}, "horrible": {}, "disappointing": {},
}

// HeuristicClassifier labels without any external dependency.
type HeuristicClassifier struct{}

func (HeuristicClassifier) Language(_ context.Context, content string) (string, error) {
	if arabicScript.MatchString(content) {
		return "ar", nil
	}
	return "en", nil
}

func (HeuristicClassifier) Sentiment(_ context.Context, content string) (string, error) {
	positive, negative := 0, 0
	for _, w := range strings.Fields(strings.ToLower(content)) {
		if _, ok := positiveWords[w]; ok {
			positive++
		}
		if _, ok := negativeWords[w]; ok {
			negative++
		}
	}
	switch {
	case positive > negative:
		return "positive", nil
	case negative > positive:
		return "negative", nil
	default:
		return "neutral", nil
	}
}

// qualityScore rewards substantial, well-labeled records.
func qualityScore(in StoreInput) float64 {
	q := 0.5
	if len(in.Content) > 50 {
		q += 0.2
	}
	if in.Kind != "" {
		q += 0.1
	}
	if in.Category != "" {
		q += 0.1
	}
	if len(in.Tags) > 0 {
		q += 0.1
	}
	if q > 1.0 {
		q = 1.0
	}
	return q
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// complexityScore is average words per sentence, normalized against 20.
func complexityScore(content string) float64 {
	words := len(strings.Fields(content))
	sentences := len(sentenceSplit.Split(content, -1))
	if sentences == 0 {
		return 0
	}
	c := float64(words) / float64(sentences) / 20
	if c > 1.0 {
		c = 1.0
	}
	return c
}

var tagStopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "they": {}, "have": {},
	"will": {}, "been": {},
}

// autoTags picks the five most frequent non-trivial words.
func autoTags(content string) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range strings.Fields(strings.ToLower(content)) {
		if len(w) <= 3 {
			continue
		}
		if _, stop := tagStopWords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > 5 {
		order = order[:5]
	}
	return order
}

// inferCategory buckets content by keyword, most specific first.
func inferCategory(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "quantum") || strings.Contains(lower, "qubit"):
		return "quantum_computing"
	case strings.Contains(lower, "algorithm") || strings.Contains(lower, "programming"):
		return "algorithms"
	case strings.Contains(lower, "trading") || strings.Contains(lower, "finance"):
		return "trading"
	case strings.Contains(lower, "ai") || strings.Contains(lower, "machine learning"):
		return "ai_education"
	default:
		return model.DefaultCategory
	}
}

var kindWeights = map[string]float64{
	"critical":    0.9,
	"important":   0.7,
	"educational": 0.6,
	"technical":   0.5,
	"general":     0.3,
}

var categoryWeights = map[string]float64{
	"ai_education":      0.8,
	"quantum_computing": 0.7,
	"algorithms":        0.6,
	"trading":           0.5,
}

// importanceScore starts at 0.5 and adds length, kind and category weight,
// clamped to [0,1].
func importanceScore(content, kind, category string) float64 {
	importance := 0.5

	switch n := len(content); {
	case n > 1000:
		importance += 0.2
	case n > 500:
		importance += 0.1
	}

	if w, ok := kindWeights[kind]; ok {
		importance += w
	} else {
		importance += 0.3
	}

	if w, ok := categoryWeights[category]; ok {
		importance += w
	} else {
		importance += 0.2
	}

	if importance > 1.0 {
		importance = 1.0
	}
	return importance
}
