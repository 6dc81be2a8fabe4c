// Package fusion answers free-text queries by fanning out to five
// independent retrieval strategies and merging their hits into one ranked,
// deduplicated result list.
package fusion

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/mindvault/memoria/pkg/memory/embed"
	"github.com/mindvault/memoria/pkg/memory/graph"
	"github.com/mindvault/memoria/pkg/memory/index"
	"github.com/mindvault/memoria/pkg/memory/model"
)

// Strategy indices. Boost rules key off these positions.
const (
	strategyEmbedding = iota
	strategyExact
	strategyGraph
	strategyContextual
	strategyTemporal
	strategyCount
)

var strategyNames = [strategyCount]string{
	"embedding", "exact", "graph", "contextual", "temporal",
}

// TimeRange restricts temporal search and filtering to a trailing window.
type TimeRange string

const (
	RangeAll   TimeRange = "all"
	RangeToday TimeRange = "today"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
)

func (r TimeRange) cutoff(now time.Time) (time.Time, bool) {
	switch r {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case RangeWeek:
		return now.Add(-7 * 24 * time.Hour), true
	case RangeMonth:
		return now.Add(-30 * 24 * time.Hour), true
	case RangeYear:
		return now.Add(-365 * 24 * time.Hour), true
	default:
		return time.Time{}, false
	}
}

// relevance buckets recency within the requested window. Hits at or below
// 0.5 are discarded by the temporal strategy.
func (r TimeRange) relevance(ageDays float64) float64 {
	switch {
	case r == RangeToday && ageDays <= 1:
		return 1.0
	case r == RangeWeek && ageDays <= 7:
		return 0.9
	case r == RangeMonth && ageDays <= 30:
		return 0.8
	case r == RangeYear && ageDays <= 365:
		return 0.7
	default:
		return 0.5
	}
}

// Options tune a single retrieval. The zero value is usable: Limit and
// Threshold fall back to the defaults and every strategy runs unless its
// Disable flag is set.
type Options struct {
	Limit                  int
	Threshold              float64
	Category               string
	Kind                   string
	TimeRange              TimeRange
	DisableEmbeddingSearch bool
	DisableExactSearch     bool
}

const (
	defaultLimit     = 10
	maxLimit         = 50
	defaultThreshold = 0.7
)

func DefaultOptions() *Options {
	return &Options{
		Limit:     defaultLimit,
		Threshold: defaultThreshold,
	}
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	}
	if out.Limit > maxLimit {
		out.Limit = maxLimit
	}
	if out.Threshold <= 0 {
		out.Threshold = defaultThreshold
	}
	return out
}

// Result is one fused hit. RawScore is the occurrence-averaged strategy
// score; FinalScore carries the boost pipeline on top of it.
type Result struct {
	Record            *model.Record
	Strategies        []int
	Occurrences       int
	RawScore          float64
	FinalScore        float64
	TemporalRelevance float64
}

// Response wraps the ranked results with query diagnostics.
type Response struct {
	Query           string
	Enhanced        Enhanced
	Results         []*Result
	Insights        Insights
	TotalCandidates int
	Elapsed         time.Duration
}

// Engine coordinates the strategies against a shared index and graph.
type Engine struct {
	index    *index.Index
	graph    *graph.Graph
	embedder embed.Embedder
	synonyms SynonymProvider
	history  *History
	logger   *log.Logger
	now      func() time.Time
}

// Config holds the optional collaborators of an Engine.
type Config struct {
	Synonyms        SynonymProvider
	HistoryCapacity int
	Logger          *log.Logger
	Clock           func() time.Time
}

func NewEngine(ix *index.Index, g *graph.Graph, embedder embed.Embedder, cfg Config) *Engine {
	if cfg.Synonyms == nil {
		cfg.Synonyms = StaticSynonyms{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Engine{
		index:    ix,
		graph:    g,
		embedder: embedder,
		synonyms: cfg.Synonyms,
		history:  NewHistory(cfg.HistoryCapacity),
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
}

func (e *Engine) History() *History { return e.history }

type hit struct {
	rec      *model.Record
	score    float64
	temporal float64
}

// Retrieve runs every enabled strategy concurrently, fuses the hits and
// applies the filter pipeline. A single strategy failing degrades the
// result set; only all strategies failing surfaces an error. Records in
// the returned slice have their access statistics bumped exactly once.
func (e *Engine) Retrieve(ctx context.Context, query string, opts *Options) (*Response, error) {
	start := e.now()
	if opts == nil {
		opts = DefaultOptions()
	}
	o := opts.withDefaults()

	enhanced := Enhance(query, e.synonyms)

	var (
		hits [strategyCount][]hit
		errs [strategyCount]error
		ran  [strategyCount]bool
	)

	g, gctx := errgroup.WithContext(ctx)
	run := func(idx int, enabled bool, fn func(context.Context) ([]hit, error)) {
		if !enabled {
			return
		}
		ran[idx] = true
		g.Go(func() error {
			out, err := fn(gctx)
			if err != nil {
				errs[idx] = &model.StrategyError{Strategy: strategyNames[idx], Cause: err}
				e.logger.Warn("retrieval strategy failed", "strategy", strategyNames[idx], "err", err)
				return nil
			}
			hits[idx] = out
			return nil
		})
	}

	run(strategyEmbedding, !o.DisableEmbeddingSearch, func(ctx context.Context) ([]hit, error) {
		return e.embeddingStrategy(ctx, enhanced.Expanded, o.Threshold)
	})
	run(strategyExact, !o.DisableExactSearch, func(context.Context) ([]hit, error) {
		return e.exactStrategy(enhanced.Original)
	})
	run(strategyGraph, true, func(context.Context) ([]hit, error) {
		return e.graphStrategy(enhanced.Terms)
	})
	run(strategyContextual, true, func(ctx context.Context) ([]hit, error) {
		return e.contextualStrategy(ctx, enhanced.Original, o.Threshold)
	})
	run(strategyTemporal, true, func(context.Context) ([]hit, error) {
		return e.temporalStrategy(o.TimeRange)
	})
	_ = g.Wait()

	executed, failed := 0, 0
	var failures []error
	for i := range ran {
		if !ran[i] {
			continue
		}
		executed++
		if errs[i] != nil {
			failed++
			failures = append(failures, errs[i])
		}
	}
	if executed > 0 && failed == executed {
		return nil, errors.Join(failures...)
	}

	fused := e.fuse(hits)
	results := e.filter(fused, o)

	now := e.now()
	for _, r := range results {
		e.index.Touch(r.Record.ID, now)
	}

	insights := e.insights(query, enhanced, results)
	avg := 0.0
	if len(results) > 0 {
		for _, r := range results {
			avg += r.FinalScore
		}
		avg /= float64(len(results))
	}
	e.history.Add(HistoryEntry{Query: query, ResultCount: len(results), AvgRelevance: avg, At: now})

	elapsed := e.now().Sub(start)
	e.logger.Info("retrieval completed",
		"query", query, "results", len(results), "candidates", len(fused),
		"strategies", executed-failed, "elapsed", elapsed)

	return &Response{
		Query:           query,
		Enhanced:        enhanced,
		Results:         results,
		Insights:        insights,
		TotalCandidates: len(fused),
		Elapsed:         elapsed,
	}, nil
}

func (e *Engine) embeddingStrategy(ctx context.Context, expanded string, threshold float64) ([]hit, error) {
	vec, err := e.embedder.Embed(ctx, expanded)
	if err != nil {
		return nil, err
	}
	matches := e.index.SimilaritySearch(vec, threshold, 0)
	out := make([]hit, 0, len(matches))
	for _, m := range matches {
		out = append(out, hit{rec: m.Record, score: m.Score * m.Record.Importance})
	}
	return out, nil
}

// exactStrategy matches the fingerprint of the raw query, one hit per
// holder. An exact hit scores 1.0 no matter what threshold is in force.
func (e *Engine) exactStrategy(query string) ([]hit, error) {
	recs := e.index.ExactLookup(model.Fingerprint(query))
	out := make([]hit, 0, len(recs))
	for _, rec := range recs {
		out = append(out, hit{rec: rec, score: 1.0})
	}
	return out, nil
}

// graphStrategy resolves each query term through the concept index, then
// takes one traversal hop from every direct hit.
func (e *Engine) graphStrategy(terms []string) ([]hit, error) {
	var out []hit
	seen := make(map[string]bool)
	add := func(id string, score float64) {
		if seen[id] {
			return
		}
		rec, err := e.index.Get(id)
		if err != nil {
			return
		}
		seen[id] = true
		out = append(out, hit{rec: rec, score: score})
	}

	for _, term := range terms {
		for _, id := range e.graph.NodesForConcept(term) {
			add(id, e.scoreDirectHit(id))
			related, err := e.graph.FindRelated(id, graph.TraversalOptions{MaxDepth: 1})
			if err != nil {
				continue
			}
			for _, r := range related {
				add(r.ID, r.Strength/2)
			}
		}
	}
	return out, nil
}

func (e *Engine) scoreDirectHit(id string) float64 {
	rec, err := e.index.Get(id)
	if err != nil || rec.Importance == 0 {
		return 0.5
	}
	return rec.Importance
}

// contextualStrategy bridges the query with each of the last five prior
// queries and re-runs embedding search over the bridged text.
func (e *Engine) contextualStrategy(ctx context.Context, query string, threshold float64) ([]hit, error) {
	var out []hit
	for _, prior := range e.history.Recent(5) {
		vec, err := e.embedder.Embed(ctx, query+" "+prior.Query)
		if err != nil {
			return nil, err
		}
		for _, m := range e.index.SimilaritySearch(vec, threshold, 0) {
			out = append(out, hit{rec: m.Record, score: m.Score * m.Record.Importance})
		}
	}
	return out, nil
}

// temporalStrategy scores records by recency within the requested window.
// Without a bounded window it contributes nothing.
func (e *Engine) temporalStrategy(tr TimeRange) ([]hit, error) {
	cutoff, bounded := tr.cutoff(e.now())
	if !bounded {
		return nil, nil
	}
	var out []hit
	now := e.now()
	for _, rec := range e.index.All() {
		if rec.CreatedAt.Before(cutoff) {
			continue
		}
		ageDays := now.Sub(rec.CreatedAt).Hours() / 24
		rel := tr.relevance(ageDays)
		if rel > 0.5 {
			out = append(out, hit{rec: rec, score: rel, temporal: rel})
		}
	}
	return out, nil
}

// fuse groups hits by record id, averages scores over occurrences and runs
// the boost pipeline: embedding-strategy boost, temporal relevance,
// importance, relationship count, in that order.
func (e *Engine) fuse(hits [strategyCount][]hit) []*Result {
	byID := make(map[string]*Result)
	var order []string

	for strat := 0; strat < strategyCount; strat++ {
		for _, h := range hits[strat] {
			r, ok := byID[h.rec.ID]
			if !ok {
				r = &Result{Record: h.rec}
				byID[h.rec.ID] = r
				order = append(order, h.rec.ID)
			}
			r.Strategies = append(r.Strategies, strat)
			r.RawScore += h.score
			r.Occurrences++
			if h.temporal > r.TemporalRelevance {
				r.TemporalRelevance = h.temporal
			}
		}
	}

	out := make([]*Result, 0, len(order))
	for _, id := range order {
		r := byID[id]
		r.RawScore /= float64(r.Occurrences)
		score := r.RawScore
		if containsInt(r.Strategies, strategyEmbedding) {
			score *= 1.2
		}
		if r.TemporalRelevance > 0 {
			score *= r.TemporalRelevance * 1.1
		}
		if imp := r.Record.Importance; imp > 0 {
			score *= 1 + imp*1.5
		}
		if n := len(r.Record.Relationships); n > 0 {
			score *= 1 + float64(n)*0.1*1.3
		}
		r.FinalScore = score
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	return out
}

// filter applies the post-fusion pipeline: threshold, dedup, categorical
// and time filters, the access and importance re-boost, re-sort, limit.
func (e *Engine) filter(results []*Result, o Options) []*Result {
	kept := results[:0:0]
	seen := make(map[string]bool)
	cutoff, bounded := o.TimeRange.cutoff(e.now())
	for _, r := range results {
		if r.FinalScore < o.Threshold {
			continue
		}
		if seen[r.Record.ID] {
			continue
		}
		seen[r.Record.ID] = true
		if o.Category != "" && r.Record.Category != o.Category {
			continue
		}
		if o.Kind != "" && r.Record.Kind != o.Kind {
			continue
		}
		if bounded && r.Record.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, r)
	}

	for _, r := range kept {
		boost := 1.0
		switch {
		case r.Record.AccessCount > 10:
			boost *= 1.2
		case r.Record.AccessCount > 5:
			boost *= 1.1
		}
		switch {
		case r.Record.Importance > 0.8:
			boost *= 1.3
		case r.Record.Importance > 0.6:
			boost *= 1.1
		}
		r.FinalScore *= boost
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].FinalScore > kept[j].FinalScore })

	if len(kept) > o.Limit {
		kept = kept[:o.Limit]
	}
	return kept
}

func containsInt(xs []int, want int) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

// QueryAnalysis describes the query itself.
type QueryAnalysis struct {
	ConceptCount int
	Complexity   float64
	Specificity  float64
}

// ResultAnalysis describes the shape of the final result set.
type ResultAnalysis struct {
	TotalResults         int
	AverageRelevance     float64
	CategoryDistribution map[string]int
	KindDistribution     map[string]int
	TemporalDistribution map[string]int
}

// Recommendation suggests a follow-up search.
type Recommendation struct {
	Type       string
	Suggestion string
	Confidence float64
}

// Insights bundle the per-query analytics returned alongside results.
type Insights struct {
	QueryAnalysis   QueryAnalysis
	ResultAnalysis  ResultAnalysis
	Recommendations []Recommendation
}

func (e *Engine) insights(query string, enhanced Enhanced, results []*Result) Insights {
	words := len(strings.Fields(query))
	terms := len(enhanced.Terms)

	qa := QueryAnalysis{ConceptCount: terms}
	qa.Complexity = float64(terms) / 5
	if qa.Complexity > 1 {
		qa.Complexity = 1
	}
	if words > 0 {
		qa.Specificity = float64(terms) / float64(words)
	}

	ra := ResultAnalysis{
		TotalResults:         len(results),
		CategoryDistribution: make(map[string]int),
		KindDistribution:     make(map[string]int),
		TemporalDistribution: map[string]int{"today": 0, "week": 0, "month": 0, "year": 0, "older": 0},
	}
	now := e.now()
	for _, r := range results {
		ra.AverageRelevance += r.FinalScore
		ra.CategoryDistribution[r.Record.Category]++
		ra.KindDistribution[r.Record.Kind]++
		switch age := now.Sub(r.Record.CreatedAt).Hours() / 24; {
		case age <= 1:
			ra.TemporalDistribution["today"]++
		case age <= 7:
			ra.TemporalDistribution["week"]++
		case age <= 30:
			ra.TemporalDistribution["month"]++
		case age <= 365:
			ra.TemporalDistribution["year"]++
		default:
			ra.TemporalDistribution["older"]++
		}
	}
	if len(results) > 0 {
		ra.AverageRelevance /= float64(len(results))
	}

	var recs []Recommendation
	if len(results) < 5 {
		recs = append(recs, Recommendation{
			Type:       "broaden_search",
			Suggestion: "Try a broader search term or remove specific filters",
			Confidence: 0.8,
		})
	}
	if terms > 0 {
		shown := enhanced.Terms
		if len(shown) > 3 {
			shown = shown[:3]
		}
		recs = append(recs, Recommendation{
			Type:       "related_concepts",
			Suggestion: "Explore related concepts: " + strings.Join(shown, ", "),
			Confidence: 0.7,
		})
	}
	recs = append(recs, Recommendation{
		Type:       "temporal_search",
		Suggestion: "Try searching within specific time ranges (today, week, month)",
		Confidence: 0.6,
	})

	return Insights{QueryAnalysis: qa, ResultAnalysis: ra, Recommendations: recs}
}

