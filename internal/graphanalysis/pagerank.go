// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphanalysis

import "fmt"

const (
	// DefaultDampingFactor is the classic PageRank damping factor: the
	// probability of following an outgoing edge rather than jumping to a
	// uniformly random node.
	DefaultDampingFactor = 0.85
	// DefaultMaxIterations bounds the power iteration.
	DefaultMaxIterations = 100
	// DefaultConvergence is the max per-node score delta below which the
	// power iteration is considered converged.
	DefaultConvergence = 1e-6
)

// PageRankOptions configures the power-iteration PageRank computation.
type PageRankOptions struct {
	DampingFactor float64
	MaxIterations int
	Convergence   float64
}

// DefaultPageRankOptions returns the classic PageRank defaults.
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{
		DampingFactor: DefaultDampingFactor,
		MaxIterations: DefaultMaxIterations,
		Convergence:   DefaultConvergence,
	}
}

func (o *PageRankOptions) validate() {
	if o.DampingFactor < 0 || o.DampingFactor > 1 {
		o.DampingFactor = DefaultDampingFactor
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Convergence <= 0 {
		o.Convergence = DefaultConvergence
	}
}

// PageRank returns each file's PageRank score, scores summing to ~1.0.
// Sink nodes (no outgoing edges) redistribute their mass uniformly
// across every node each iteration, which is the standard fix for rank
// sinks in a directed graph that is not strongly connected.
//
// The result is cached until MarkModified is called.
func (a *Analyzer) PageRank(opts PageRankOptions) map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.dirty && a.pagerank != nil {
		return a.pagerank
	}

	opts.validate()
	cacheKey := a.centralityCacheKey("pagerank", fmt.Sprintf("%.4f:%d:%g", opts.DampingFactor, opts.MaxIterations, opts.Convergence))
	if cached, ok := a.getCachedScores(cacheKey); ok {
		a.pagerank = cached
		a.dirty = false
		return cached
	}

	nodes := a.graph.Nodes()
	n := float64(len(nodes))
	if n == 0 {
		a.pagerank = map[string]float64{}
		return a.pagerank
	}

	scores := make(map[string]float64, len(nodes))
	outDegree := make(map[string]int, len(nodes))
	initial := 1.0 / n
	for _, node := range nodes {
		scores[node.Path] = initial
		outDegree[node.Path] = len(a.graph.Successors(node.Path))
	}

	d := opts.DampingFactor
	for iter := 0; iter < opts.MaxIterations; iter++ {
		newScores := make(map[string]float64, len(nodes))
		base := (1 - d) / n

		var sinkMass float64
		for _, node := range nodes {
			if outDegree[node.Path] == 0 {
				sinkMass += scores[node.Path]
			}
		}

		for _, node := range nodes {
			newScores[node.Path] = base + d*sinkMass/n
		}
		for _, node := range nodes {
			if outDegree[node.Path] == 0 {
				continue
			}
			share := d * scores[node.Path] / float64(outDegree[node.Path])
			for _, succ := range a.graph.Successors(node.Path) {
				newScores[succ] += share
			}
		}

		var maxDiff float64
		for id, v := range newScores {
			diff := v - scores[id]
			if diff < 0 {
				diff = -diff
			}
			if diff > maxDiff {
				maxDiff = diff
			}
		}
		scores = newScores
		if maxDiff < opts.Convergence {
			break
		}
	}

	a.pagerank = scores
	a.dirty = false
	a.setCachedScores(cacheKey, scores)
	return scores
}
