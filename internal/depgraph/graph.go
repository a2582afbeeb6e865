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

import (
	"fmt"

	"github.com/aleutian-oss/depsentry/internal/errs"
)

// DependencyGraph is the ordered set of FileNodes keyed by path, with
// outgoing/incoming adjacency maps and a pair of bookkeeping timestamps.
//
// Every operation here is single-threaded per graph; internal/graphbuild
// and internal/incremental own whatever concurrency discipline (locking,
// per-file work queues, merge-then-write) surrounds the calls they make
// into a shared graph.
type DependencyGraph struct {
	nodes map[string]*FileNode

	// outgoing[source] and incoming[target] hold edges keyed by the
	// (source, target, type) triple so duplicate-type insertion is a
	// simple map overwrite rather than a linear scan.
	outgoing map[string]map[edgeKey]DependencyEdge
	incoming map[string]map[edgeKey]DependencyEdge

	createdAt  int64
	modifiedAt int64
}

// New returns an empty DependencyGraph stamped with createdAtUnixNano as
// both its created and modified time.
func New(createdAtUnixNano int64) *DependencyGraph {
	return &DependencyGraph{
		nodes:      make(map[string]*FileNode),
		outgoing:   make(map[string]map[edgeKey]DependencyEdge),
		incoming:   make(map[string]map[edgeKey]DependencyEdge),
		createdAt:  createdAtUnixNano,
		modifiedAt: createdAtUnixNano,
	}
}

// CreatedAt and ModifiedAt return the graph's bookkeeping timestamps in
// Unix nanoseconds.
func (g *DependencyGraph) CreatedAt() int64  { return g.createdAt }
func (g *DependencyGraph) ModifiedAt() int64 { return g.modifiedAt }

// touch records nowUnixNano as the graph's last-modified time. Callers
// pass the timestamp rather than this package reading the clock, so
// graph mutation stays deterministic and testable.
func (g *DependencyGraph) touch(nowUnixNano int64) {
	g.modifiedAt = nowUnixNano
}

// NodeCount and EdgeCount report the graph's current size.
func (g *DependencyGraph) NodeCount() int { return len(g.nodes) }

func (g *DependencyGraph) EdgeCount() int {
	n := 0
	for _, edges := range g.outgoing {
		n += len(edges)
	}
	return n
}

// HasNode reports whether path is present.
func (g *DependencyGraph) HasNode(path string) bool {
	_, ok := g.nodes[path]
	return ok
}

// Node returns the FileNode for path, or nil if absent. The returned
// pointer aliases the graph's internal state; callers must not mutate it
// outside this package's own update paths.
func (g *DependencyGraph) Node(path string) *FileNode {
	return g.nodes[path]
}

// Nodes returns every FileNode in the graph, ordered by path.
func (g *DependencyGraph) Nodes() []*FileNode {
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	paths = sortedPaths(paths)
	out := make([]*FileNode, 0, len(paths))
	for _, p := range paths {
		out = append(out, g.nodes[p])
	}
	return out
}

// AddNode inserts node, or overwrites the existing entry at node.Path if
// one is already present. AddNode never touches edges — removing a node
// via RemoveNode is the only path that cascades to incident edges.
func (g *DependencyGraph) AddNode(node FileNode, nowUnixNano int64) {
	n := node
	g.nodes[node.Path] = &n
	if _, ok := g.outgoing[node.Path]; !ok {
		g.outgoing[node.Path] = make(map[edgeKey]DependencyEdge)
	}
	if _, ok := g.incoming[node.Path]; !ok {
		g.incoming[node.Path] = make(map[edgeKey]DependencyEdge)
	}
	g.touch(nowUnixNano)
}

// AddEdge inserts or overwrites the edge identified by
// (source, target, metadata.Type). Both endpoints must already exist as
// nodes; AddEdge returns a *errs.Record with errs.KindGraphInvariant
// otherwise. A self-loop (source == target) is rejected unless
// metadata.Type permits it.
func (g *DependencyGraph) AddEdge(source, target string, metadata DependencyMetadata, nowUnixNano int64) error {
	if !g.HasNode(source) {
		return errs.New(errs.KindGraphInvariant, errs.SeverityHigh, fmt.Sprintf("add_edge: source node %q not present", source)).WithFile(source, 0)
	}
	if !g.HasNode(target) {
		return errs.New(errs.KindGraphInvariant, errs.SeverityHigh, fmt.Sprintf("add_edge: target node %q not present", target)).WithFile(target, 0)
	}
	if source == target && !selfLoopAllowed(metadata.Type) {
		return errs.New(errs.KindGraphInvariant, errs.SeverityHigh, fmt.Sprintf("add_edge: self-loop of type %s is not permitted on %q", metadata.Type, source)).WithFile(source, 0)
	}

	key := edgeKey{source: source, target: target, dtype: metadata.Type}
	edge := DependencyEdge{Source: source, Target: target, Metadata: metadata}
	g.outgoing[source][key] = edge
	g.incoming[target][key] = edge
	g.touch(nowUnixNano)
	return nil
}

// RemoveNode deletes path and every edge incident to it (outgoing or
// incoming), maintaining the invariant that every surviving edge's
// endpoints are present as nodes. Removing an absent path is a no-op.
func (g *DependencyGraph) RemoveNode(path string, nowUnixNano int64) {
	if !g.HasNode(path) {
		return
	}
	for key, edge := range g.outgoing[path] {
		delete(g.incoming[edge.Target], key)
	}
	for key, edge := range g.incoming[path] {
		delete(g.outgoing[edge.Source], key)
	}
	delete(g.outgoing, path)
	delete(g.incoming, path)
	delete(g.nodes, path)
	g.touch(nowUnixNano)
}

// RemoveOutgoingEdges drops every edge whose source is path, without
// touching the node itself or the edges that point at it.
func (g *DependencyGraph) RemoveOutgoingEdges(path string, nowUnixNano int64) {
	for key, edge := range g.outgoing[path] {
		delete(g.incoming[edge.Target], key)
	}
	g.outgoing[path] = make(map[edgeKey]DependencyEdge)
	g.touch(nowUnixNano)
}

// GetEdge returns the edge for (source, target, dtype) and whether it
// exists.
func (g *DependencyGraph) GetEdge(source, target string, dtype DependencyType) (DependencyEdge, bool) {
	edges, ok := g.outgoing[source]
	if !ok {
		return DependencyEdge{}, false
	}
	e, ok := edges[edgeKey{source: source, target: target, dtype: dtype}]
	return e, ok
}

// OutgoingEdges returns every edge whose source is path, ordered by
// (target, type).
func (g *DependencyGraph) OutgoingEdges(path string) []DependencyEdge {
	return sortedEdges(g.outgoing[path])
}

// IncomingEdges returns every edge whose target is path, ordered by
// (source, type).
func (g *DependencyGraph) IncomingEdges(path string) []DependencyEdge {
	return sortedEdges(g.incoming[path])
}

func sortedEdges(m map[edgeKey]DependencyEdge) []DependencyEdge {
	out := make([]DependencyEdge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sortEdgeSlice(out)
	return out
}

// Successors returns the distinct set of paths path has an outgoing edge
// to, sorted lexicographically.
func (g *DependencyGraph) Successors(path string) []string {
	seen := make(map[string]struct{})
	for _, e := range g.outgoing[path] {
		seen[e.Target] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return sortedPaths(out)
}

// Predecessors returns the distinct set of paths with an outgoing edge
// to path, sorted lexicographically.
func (g *DependencyGraph) Predecessors(path string) []string {
	seen := make(map[string]struct{})
	for _, e := range g.incoming[path] {
		seen[e.Source] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return sortedPaths(out)
}
