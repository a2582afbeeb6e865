// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphanalysis is the Graph Analyzer: centrality (in/out
// degree, betweenness, PageRank), cycle/SCC queries, repair-batch
// ordering, and the impact score formula, all computed over a
// depgraph.DependencyGraph projected into an adjacency representation
// chosen for each algorithm's access pattern.
//
// Centrality results are computed lazily on first query and cached
// until the caller tells the Analyzer the graph changed via
// MarkModified — mirroring the teacher's GraphAnalytics, which recomputes
// only when asked and otherwise serves cached scores.
package graphanalysis

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/aleutian-oss/depsentry/internal/depgraph"
)

// Analyzer wraps a DependencyGraph with cached centrality results.
type Analyzer struct {
	graph *depgraph.DependencyGraph

	mu          sync.Mutex
	pagerank    map[string]float64
	betweenness map[string]float64
	dirty       bool

	// db is the optional cross-session centrality cache; see
	// WithBadgerCache. Nil unless a caller opts in.
	db          *badger.DB
	cacheLogger *slog.Logger
}

// New wraps graph. The Analyzer does not copy the graph; callers must
// call MarkModified after any mutation to graph for cached centrality to
// be recomputed on the next query.
func New(graph *depgraph.DependencyGraph, opts ...Option) *Analyzer {
	a := &Analyzer{graph: graph, dirty: true}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MarkModified invalidates every cached centrality result. The Incremental
// Analyzer calls this after applying updates to the wrapped graph.
func (a *Analyzer) MarkModified() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirty = true
	a.pagerank = nil
	a.betweenness = nil
}

// FindCycles returns SCCs of size >= 2 plus self-loops. Thin pass-through
// to depgraph — kept on Analyzer so callers have one entry point for
// every graph-analysis query.
func (a *Analyzer) FindCycles(ctx context.Context) ([][]string, error) {
	return a.graph.FindCycles(ctx)
}

// StronglyConnectedComponents returns every SCC including singletons.
func (a *Analyzer) StronglyConnectedComponents(ctx context.Context) ([][]string, error) {
	return a.graph.StronglyConnectedComponents(ctx)
}
