// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package depgraph

// DefaultMaxDepth caps traversal depth for HasPath, TransitiveDependencies,
// and TransitiveDependents when the caller does not request a shallower
// bound. Large monorepos can otherwise make an unbounded BFS cross the
// entire graph for a single query.
const DefaultMaxDepth = 64

// HasPath reports whether a path from source to target exists within
// maxDepth hops, using breadth-first search. maxDepth <= 0 means
// DefaultMaxDepth.
func (g *DependencyGraph) HasPath(source, target string, maxDepth int) bool {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if source == target {
		return g.HasNode(source)
	}
	if !g.HasNode(source) || !g.HasNode(target) {
		return false
	}

	visited := map[string]struct{}{source: {}}
	frontier := []string{source}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		next := make([]string, 0)
		for _, node := range frontier {
			for _, succ := range g.Successors(node) {
				if succ == target {
					return true
				}
				if _, seen := visited[succ]; seen {
					continue
				}
				visited[succ] = struct{}{}
				next = append(next, succ)
			}
		}
		frontier = next
	}
	return false
}

// bfs walks the graph from start following next (Successors for a
// forward walk, Predecessors for a reverse walk) up to maxDepth hops and
// returns every distinct node reached, excluding start itself, ordered
// lexicographically.
func (g *DependencyGraph) bfs(start string, maxDepth int, next func(string) []string) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if !g.HasNode(start) {
		return nil
	}

	visited := map[string]struct{}{start: {}}
	reached := make([]string, 0)
	frontier := []string{start}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		nextFrontier := make([]string, 0)
		for _, node := range frontier {
			for _, n := range next(node) {
				if _, seen := visited[n]; seen {
					continue
				}
				visited[n] = struct{}{}
				reached = append(reached, n)
				nextFrontier = append(nextFrontier, n)
			}
		}
		frontier = nextFrontier
	}
	return sortedPaths(reached)
}

// TransitiveDependencies returns every file path reachable forward from
// path (the files path depends on, directly or indirectly), within
// maxDepth hops. maxDepth <= 0 means DefaultMaxDepth.
func (g *DependencyGraph) TransitiveDependencies(path string, maxDepth int) []string {
	return g.bfs(path, maxDepth, g.Successors)
}

// TransitiveDependents returns every file path that can reach path
// (the files that depend on path, directly or indirectly), within
// maxDepth hops. maxDepth <= 0 means DefaultMaxDepth.
func (g *DependencyGraph) TransitiveDependents(path string, maxDepth int) []string {
	return g.bfs(path, maxDepth, g.Predecessors)
}

// Subgraph returns a new DependencyGraph containing only the given
// paths and the edges between them (an edge is kept only when both of
// its endpoints are in paths). The subgraph's created/modified
// timestamps are both set to nowUnixNano.
func (g *DependencyGraph) Subgraph(paths []string, nowUnixNano int64) *DependencyGraph {
	keep := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		keep[p] = struct{}{}
	}

	sub := New(nowUnixNano)
	for _, p := range sortedPaths(paths) {
		if node := g.Node(p); node != nil {
			sub.AddNode(*node, nowUnixNano)
		}
	}
	for _, p := range sub.Nodes() {
		for _, e := range g.OutgoingEdges(p.Path) {
			if _, ok := keep[e.Target]; !ok {
				continue
			}
			_ = sub.AddEdge(e.Source, e.Target, e.Metadata, nowUnixNano)
		}
	}
	return sub
}
