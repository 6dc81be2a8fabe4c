// Command demo stores a handful of records and walks the retrieval,
// graph traversal and analytics surface of the engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/mindvault/memoria"
	"github.com/mindvault/memoria/pkg/memory/store"
)

func main() {
	ctx := context.Background()
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "memoria"})

	opts := memoria.DefaultOptions()
	opts.Logger = logger

	// Optional Postgres durability: set MEMORIA_POSTGRES_URL to enable.
	if dsn := os.Getenv("MEMORIA_POSTGRES_URL"); dsn != "" {
		ps, err := store.NewPostgresStore(ctx, dsn)
		if err != nil {
			logger.Fatal("postgres connect failed", "err", err)
		}
		opts.Persister = ps
	}

	eng, err := memoria.New(opts)
	if err != nil {
		logger.Fatal("engine construction failed", "err", err)
	}
	defer eng.Close(ctx)

	if err := eng.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap failed, starting empty", "err", err)
	}

	seeds := []memoria.StoreInput{
		{Content: "Quantum computers exploit qubit superposition to evaluate many states at once."},
		{Content: "A sorting algorithm orders elements; quicksort averages n log n comparisons.", Kind: "technical"},
		{Content: "Neural network training adjusts weights with gradient descent over many epochs."},
		{Content: "Qubit decoherence limits how long quantum superposition survives in hardware."},
	}

	var firstID string
	for _, in := range seeds {
		res, err := eng.Store(ctx, in)
		if err != nil {
			logger.Error("store failed", "err", err)
			continue
		}
		if firstID == "" {
			firstID = res.ID
		}
		fmt.Printf("stored %s  importance=%.2f  edges=%d\n", res.ID, res.Importance, len(res.Relationships))
	}

	out, err := eng.Retrieve(ctx, "quantum superposition", nil)
	if err != nil {
		logger.Fatal("retrieve failed", "err", err)
	}
	fmt.Printf("\nquery %q: %d results from %d candidates in %s\n",
		out.Query, len(out.Results), out.TotalCandidates, out.Elapsed)
	for _, r := range out.Results {
		fmt.Printf("  %.3f  %s\n", r.IntelligentRank, r.Record.Content)
	}

	if firstID != "" {
		related, err := eng.FindRelated(firstID, memoria.TraversalOptions{})
		if err == nil {
			fmt.Printf("\nrelated to %s: %v\n", firstID, related)
		}
	}

	a := eng.Analytics()
	fmt.Printf("\nrecords=%d clusters=%d edges=%d utilization=%.1f%%\n",
		a.TotalRecords, a.Index.Clusters, a.Graph.Edges, a.UtilizationPct)
	for _, c := range a.Trending {
		fmt.Printf("  trending: %s (%d)\n", c.Term, c.Count)
	}

	h := eng.HealthCheck()
	fmt.Printf("\nhealth: %s %v\n", h.Status, h.Components)
}
