// Package graph maintains the relationship graph: typed, weighted edges
// discovered between records through concept overlap, embedding similarity
// and temporal proximity.
package graph

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mindvault/memoria/pkg/memory/model"
)

// Node is a record's projection into the graph.
type Node struct {
	ID         string
	Concepts   []Concept
	Edges      []model.Edge
	Centrality float64
	Importance float64
	Embedding  []float32
	CreatedAt  time.Time
}

type conceptRef struct {
	nodeID string
	term   string
	weight float64
	class  string
}

// Graph is safe for concurrent use. All halves of a bidirectional edge are
// published under a single lock acquisition.
type Graph struct {
	mu sync.RWMutex

	nodes        map[string]*Node
	order        []string
	conceptIndex map[string][]conceptRef
	edgeKeys     map[string]int // "src|kind|tgt" -> index into edges
	edges        []model.Edge

	threshold float64
	extractor Extractor
	logger    *log.Logger
}

// New builds an empty graph. Relationship candidates below threshold are
// discarded; zero picks the 0.6 default.
func New(threshold float64, extractor Extractor, logger *log.Logger) *Graph {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	if extractor == nil {
		extractor = NewRegexExtractor()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Graph{
		nodes:        make(map[string]*Node),
		conceptIndex: make(map[string][]conceptRef),
		edgeKeys:     make(map[string]int),
		threshold:    threshold,
		extractor:    extractor,
		logger:       logger,
	}
}

// AddNode projects the record into the graph, runs the three relationship
// passes against every existing node and returns all edge halves created,
// in discovery order. Centrality is refreshed before returning.
func (g *Graph) AddNode(rec *model.Record) ([]model.Edge, error) {
	if rec == nil || rec.ID == "" {
		return nil, &model.ValidationError{Field: "id", Reason: "missing"}
	}

	concepts := g.extractor.Extract(rec.Content)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[rec.ID]; exists {
		return nil, &model.ValidationError{Field: "id", Reason: "duplicate node"}
	}

	node := &Node{
		ID:         rec.ID,
		Concepts:   concepts,
		Importance: rec.Importance,
		Embedding:  append([]float32(nil), rec.Embedding...),
		CreatedAt:  rec.CreatedAt,
	}
	g.nodes[rec.ID] = node
	g.order = append(g.order, rec.ID)

	candidates := g.conceptPassLocked(node)
	candidates = append(candidates, g.semanticPassLocked(node)...)
	candidates = append(candidates, g.temporalPassLocked(node)...)

	var created []model.Edge
	for _, c := range candidates {
		created = append(created, g.createEdgeLocked(c)...)
	}

	for _, c := range concepts {
		key := strings.ToLower(c.Term)
		g.conceptIndex[key] = append(g.conceptIndex[key], conceptRef{
			nodeID: rec.ID,
			term:   c.Term,
			weight: c.Weight,
			class:  c.Class,
		})
	}

	g.refreshCentralityLocked()

	g.logger.Debug("node added to relationship graph",
		"id", rec.ID, "concepts", len(concepts), "edges", len(created))
	return created, nil
}

// conceptPassLocked links the node to earlier nodes sharing extracted terms.
func (g *Graph) conceptPassLocked(node *Node) []model.Edge {
	var out []model.Edge
	for _, c := range node.Concepts {
		for _, ref := range g.conceptIndex[strings.ToLower(c.Term)] {
			if ref.nodeID == node.ID {
				continue
			}
			strength := ConceptSimilarity(c.Term, ref.term)
			if strength >= g.threshold {
				out = append(out, model.Edge{
					Source:        node.ID,
					Target:        ref.nodeID,
					Kind:          model.RelationSimilar,
					Strength:      strength,
					Concept:       c.Term,
					Bidirectional: true,
				})
			}
		}
	}
	return out
}

// semanticPassLocked links the node to embedding-similar nodes; nodes
// without embeddings fall back to concept overlap.
func (g *Graph) semanticPassLocked(node *Node) []model.Edge {
	var out []model.Edge
	for _, otherID := range g.order {
		if otherID == node.ID {
			continue
		}
		other := g.nodes[otherID]
		var sim float64
		if len(node.Embedding) > 0 && len(other.Embedding) > 0 {
			sim = model.CosineSimilarity(node.Embedding, other.Embedding)
		} else {
			sim = conceptOverlap(node.Concepts, other.Concepts)
		}
		if sim >= g.threshold {
			out = append(out, model.Edge{
				Source:        node.ID,
				Target:        otherID,
				Kind:          model.RelationRelated,
				Strength:      sim,
				Bidirectional: true,
			})
		}
	}
	return out
}

// temporalPassLocked links the node to nodes stored close in time. Records
// within a day attract a mutual proximity edge; the later record of a pair
// within a week additionally follows the earlier one.
func (g *Graph) temporalPassLocked(node *Node) []model.Edge {
	var out []model.Edge
	for _, otherID := range g.order {
		if otherID == node.ID {
			continue
		}
		other := g.nodes[otherID]
		diffHours := node.CreatedAt.Sub(other.CreatedAt).Hours()
		absHours := diffHours
		if absHours < 0 {
			absHours = -absHours
		}

		if absHours <= 24 {
			out = append(out, model.Edge{
				Source:        node.ID,
				Target:        otherID,
				Kind:          model.RelationTemporalProximity,
				Strength:      maxf(0.1, 1-absHours/24),
				Bidirectional: true,
			})
		}
		if diffHours > 0 && diffHours <= 168 {
			out = append(out, model.Edge{
				Source:        node.ID,
				Target:        otherID,
				Kind:          model.RelationFollows,
				Strength:      maxf(0.1, 1-diffHours/168),
				Bidirectional: false,
			})
		}
	}
	return out
}

// createEdgeLocked stores the edge and, for bidirectional kinds, its mirror.
// A later edge with the same source, kind and target replaces the earlier one
// without duplicating it on the node.
func (g *Graph) createEdgeLocked(e model.Edge) []model.Edge {
	e.CreatedAt = time.Now()
	halves := []model.Edge{e}
	if e.Bidirectional {
		halves = append(halves, e.Mirror())
	}

	var published []model.Edge
	for _, half := range halves {
		key := half.Source + "|" + string(half.Kind) + "|" + half.Target
		if idx, dup := g.edgeKeys[key]; dup {
			g.edges[idx] = half
			g.replaceNodeEdgeLocked(half)
		} else {
			g.edgeKeys[key] = len(g.edges)
			g.edges = append(g.edges, half)
			if n, ok := g.nodes[half.Source]; ok {
				n.Edges = append(n.Edges, half)
			}
		}
		published = append(published, half)
	}
	return published
}

func (g *Graph) replaceNodeEdgeLocked(e model.Edge) {
	n, ok := g.nodes[e.Source]
	if !ok {
		return
	}
	for i := range n.Edges {
		if n.Edges[i].Target == e.Target && n.Edges[i].Kind == e.Kind {
			n.Edges[i] = e
			return
		}
	}
}

// refreshCentralityLocked recomputes degree centrality for every node:
// distinct neighbors over the maximum possible degree. Parallel edges of
// different kinds count once, keeping centrality within [0,1].
func (g *Graph) refreshCentralityLocked() {
	max := len(g.nodes) - 1
	for _, n := range g.nodes {
		if max <= 0 {
			n.Centrality = 0
			continue
		}
		neighbors := make(map[string]struct{}, len(n.Edges))
		for _, e := range n.Edges {
			neighbors[e.Target] = struct{}{}
		}
		n.Centrality = float64(len(neighbors)) / float64(max)
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// ConceptSimilarity scores two terms: identical terms are 1, one containing
// the other is 0.7, anything else decays with edit distance.
func ConceptSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.7
	}
	return stringSimilarity(a, b)
}

func stringSimilarity(a, b string) float64 {
	longer, shorter := a, b
	if len(b) > len(a) {
		longer, shorter = b, a
	}
	if len(longer) == 0 {
		return 1.0
	}
	return float64(len(longer)-editDistance(longer, shorter)) / float64(len(longer))
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(rb); i++ {
		curr[0] = i
		for j := 1; j <= len(ra); j++ {
			if rb[i-1] == ra[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = min3(prev[j-1], curr[j-1], prev[j]) + 1
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// conceptOverlap is the Jaccard ratio of the two concept term sets.
func conceptOverlap(a, b []Concept) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, c := range a {
		setA[c.Term] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for k := range setA {
		union[k] = struct{}{}
	}
	inter := 0
	for _, c := range b {
		if _, ok := setA[c.Term]; ok {
			inter++
		}
		union[c.Term] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

// RelatedNode is a traversal hit, scored by strength over distance.
type RelatedNode struct {
	ID       string
	Kind     model.RelationKind
	Strength float64
	Distance int
}

// TraversalOptions bound FindRelated. Zero values pick the defaults:
// depth 2, minimum strength 0.5, limit 10, all kinds.
type TraversalOptions struct {
	MaxDepth    int
	Kinds       []model.RelationKind
	MinStrength float64
	Limit       int
}

func (o TraversalOptions) withDefaults() TraversalOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 2
	}
	if o.MinStrength <= 0 {
		o.MinStrength = 0.5
	}
	if o.Limit <= 0 {
		o.Limit = 10
	}
	return o
}

// FindRelated walks the graph breadth-first from the given node, collecting
// each reachable node at most once where an edge clears the strength floor,
// ranked by strength/(distance+1) with discovery order breaking ties.
func (g *Graph) FindRelated(id string, opts TraversalOptions) ([]RelatedNode, error) {
	opts = opts.withDefaults()

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return nil, model.ErrNotFound
	}

	kindOK := func(k model.RelationKind) bool {
		if len(opts.Kinds) == 0 {
			return true
		}
		for _, want := range opts.Kinds {
			if k == want {
				return true
			}
		}
		return false
	}

	type frame struct {
		id    string
		depth int
	}
	visited := make(map[string]bool)
	collected := make(map[string]bool)
	queue := []frame{{id: id}}
	var found []RelatedNode

	for len(queue) > 0 && len(found) < opts.Limit {
		f := queue[0]
		queue = queue[1:]
		if visited[f.id] || f.depth > opts.MaxDepth {
			continue
		}
		visited[f.id] = true

		node := g.nodes[f.id]
		for _, e := range node.Edges {
			if e.Strength < opts.MinStrength || !kindOK(e.Kind) {
				continue
			}
			if _, ok := g.nodes[e.Target]; !ok || visited[e.Target] || collected[e.Target] {
				continue
			}
			collected[e.Target] = true
			found = append(found, RelatedNode{
				ID:       e.Target,
				Kind:     e.Kind,
				Strength: e.Strength,
				Distance: f.depth + 1,
			})
			if f.depth < opts.MaxDepth {
				queue = append(queue, frame{id: e.Target, depth: f.depth + 1})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		si := found[i].Strength / float64(found[i].Distance+1)
		sj := found[j].Strength / float64(found[j].Distance+1)
		return si > sj
	})
	return found, nil
}

// Centrality reports the node's degree centrality, zero for unknown ids.
func (g *Graph) Centrality(id string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.nodes[id]; ok {
		return n.Centrality
	}
	return 0
}

// Concepts returns the node's extracted concepts.
func (g *Graph) Concepts(id string) []Concept {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.nodes[id]; ok {
		return append([]Concept(nil), n.Concepts...)
	}
	return nil
}

// NodesForConcept resolves a term to the ids of nodes mentioning it.
func (g *Graph) NodesForConcept(term string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	refs := g.conceptIndex[strings.ToLower(term)]
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.nodeID)
	}
	return out
}

// ConceptUsage pairs a term with how many nodes mention it.
type ConceptUsage struct {
	Term  string
	Count int
}

// TrendingConcepts returns the n most widely shared terms, count descending.
func (g *Graph) TrendingConcepts(n int) []ConceptUsage {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ConceptUsage, 0, len(g.conceptIndex))
	for term, refs := range g.conceptIndex {
		out = append(out, ConceptUsage{Term: term, Count: len(refs)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MostConnected returns up to n node ids by descending centrality.
func (g *Graph) MostConnected(n int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := append([]string(nil), g.order...)
	sort.SliceStable(ids, func(i, j int) bool {
		return g.nodes[ids[i]].Centrality > g.nodes[ids[j]].Centrality
	})
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// Isolated returns ids of nodes without any edges.
func (g *Graph) Isolated() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []string
	for _, id := range g.order {
		if len(g.nodes[id].Edges) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Stats summarizes graph shape for analytics and health checks.
type Stats struct {
	Nodes            int
	Edges            int
	Concepts         int
	AvgConnections   float64
	KindDistribution map[model.RelationKind]int
}

func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := Stats{
		Nodes:            len(g.nodes),
		Edges:            len(g.edges),
		Concepts:         len(g.conceptIndex),
		KindDistribution: make(map[model.RelationKind]int),
	}
	if s.Nodes > 0 {
		s.AvgConnections = float64(s.Edges) / float64(s.Nodes)
	}
	for _, e := range g.edges {
		s.KindDistribution[e.Kind]++
	}
	return s
}
