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
	"encoding/json"
	"fmt"
)

// wireGraph is the JSON-serializable shadow of DependencyGraph. The
// graph itself holds its adjacency as two redundant maps for O(1)
// lookup in either direction; the wire form stores only the edge list
// once and lets Deserialize rebuild both maps.
type wireGraph struct {
	SchemaVersion int              `json:"schema_version"`
	CreatedAt     int64            `json:"created_at"`
	ModifiedAt    int64            `json:"modified_at"`
	Nodes         []FileNode       `json:"nodes"`
	Edges         []DependencyEdge `json:"edges"`
}

// Serialize renders the graph to its versioned JSON form. Node and edge
// order are both lexicographic by path, so two graphs with identical
// contents produce byte-identical output regardless of construction
// order — this makes Serialize output diffable and the incremental-build
// "only the touched edges changed" test case meaningful.
func (g *DependencyGraph) Serialize() ([]byte, error) {
	w := wireGraph{
		SchemaVersion: SchemaVersion,
		CreatedAt:     g.createdAt,
		ModifiedAt:    g.modifiedAt,
	}

	for _, n := range g.Nodes() {
		w.Nodes = append(w.Nodes, *n)
	}
	for _, n := range g.Nodes() {
		w.Edges = append(w.Edges, g.OutgoingEdges(n.Path)...)
	}

	return json.MarshalIndent(w, "", "  ")
}

// Deserialize parses data produced by Serialize into a new
// DependencyGraph. It refuses a schema_version newer than this package
// understands; an older, still-recognized version is accepted as-is
// since every field added since SchemaVersion 1 has been additive.
func Deserialize(data []byte) (*DependencyGraph, error) {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("depgraph: decoding serialized graph: %w", err)
	}
	if w.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("depgraph: serialized graph schema_version %d is newer than this build supports (%d)", w.SchemaVersion, SchemaVersion)
	}

	g := New(w.CreatedAt)
	g.modifiedAt = w.ModifiedAt
	for _, n := range w.Nodes {
		g.AddNode(n, w.ModifiedAt)
	}
	for _, e := range w.Edges {
		if err := g.AddEdge(e.Source, e.Target, e.Metadata, w.ModifiedAt); err != nil {
			return nil, fmt.Errorf("depgraph: rebuilding edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return g, nil
}
