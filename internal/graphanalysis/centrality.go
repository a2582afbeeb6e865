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

// InDegree and OutDegree return the named file's direct dependent and
// dependency counts. Unlike PageRank and Betweenness these are
// recomputed from the graph's adjacency maps on every call and are not
// cached.
func (a *Analyzer) InDegree(path string) int {
	return len(a.graph.Predecessors(path))
}

func (a *Analyzer) OutDegree(path string) int {
	return len(a.graph.Successors(path))
}

// Betweenness returns each file's betweenness centrality: the fraction
// of shortest paths between every other pair of files that pass through
// it. Computed via Brandes' algorithm (unweighted, one BFS per source),
// O(V*E) overall. Cached until MarkModified.
func (a *Analyzer) Betweenness() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.dirty && a.betweenness != nil {
		return a.betweenness
	}

	cacheKey := a.centralityCacheKey("betweenness", "unweighted")
	if cached, ok := a.getCachedScores(cacheKey); ok {
		a.betweenness = cached
		a.dirty = false
		return cached
	}

	nodes := a.graph.Nodes()
	scores := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		scores[n.Path] = 0
	}

	for _, src := range nodes {
		a.brandesSingleSource(src.Path, scores)
	}

	if len(nodes) > 2 {
		// Normalize so scores are comparable across graphs of different
		// size, matching the conventional (n-1)(n-2) pair-count scaling
		// for a directed graph.
		norm := float64((len(nodes) - 1) * (len(nodes) - 2))
		for id := range scores {
			scores[id] /= norm
		}
	}

	a.betweenness = scores
	a.dirty = false
	a.setCachedScores(cacheKey, scores)
	return scores
}

// brandesSingleSource accumulates the contribution of shortest paths
// rooted at src into scores in place, following Brandes (2001): a BFS
// from src builds predecessor sets and shortest-path counts, then a
// reverse accumulation pass propagates dependency scores back along
// those predecessor sets.
func (a *Analyzer) brandesSingleSource(src string, scores map[string]float64) {
	sigma := map[string]float64{src: 1}
	dist := map[string]int{src: 0}
	preds := map[string][]string{}
	order := []string{src}

	frontier := []string{src}
	for len(frontier) > 0 {
		next := make([]string, 0)
		for _, v := range frontier {
			for _, w := range a.graph.Successors(v) {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					order = append(order, w)
					next = append(next, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}
		frontier = next
	}

	delta := make(map[string]float64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		w := order[i]
		for _, v := range preds[w] {
			if sigma[w] == 0 {
				continue
			}
			delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
		}
		if w != src {
			scores[w] += delta[w]
		}
	}
}
