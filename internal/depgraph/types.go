// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package depgraph implements the typed directed multigraph of source
// files and their cross-file dependencies: FileNode, DependencyEdge,
// DependencyMetadata, and the DependencyGraph that holds them.
//
// DependencyGraph is a pure data structure, not a service: every method
// here operates on already-resolved paths and metadata. It does not walk
// a filesystem, parse source, or take locks — single-file-at-a-time
// mutation and any concurrency policy around it belong to the caller
// (internal/graphbuild for construction, internal/incremental for
// updates). This mirrors how the teacher's graph package separates the
// graph model from everything that populates it.
package depgraph

import (
	"sort"

	"github.com/aleutian-oss/depsentry/internal/langtag"
)

// SchemaVersion is bumped whenever the on-disk JSON shape changes in a
// way that is not purely additive. Serialize stamps every graph with the
// current value; Deserialize refuses to load a newer one.
const SchemaVersion = 1

// FileNode represents one source file tracked in the graph.
type FileNode struct {
	// Path is the repo-relative, forward-slash-separated canonical path.
	// Unique within a graph.
	Path string `json:"path"`

	Language langtag.Tag `json:"language"`

	// LastModified is the Unix-nanosecond mtime last observed for this
	// file on disk.
	LastModified int64 `json:"last_modified"`

	// Hash is a secure hash (sha256, hex-encoded) of the file's bytes as
	// of LastModified.
	Hash string `json:"hash"`

	// Module is the optional logical module/package name the file
	// belongs to, when the source language makes that distinct from its
	// path (e.g. a Java package declaration). Empty if not applicable.
	Module string `json:"module,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// DependencyType is a closed enumeration of the relationships an edge
// can represent.
type DependencyType string

// The full set of dependency types a parser may emit.
const (
	DepImport       DependencyType = "IMPORT"
	DepInheritance  DependencyType = "INHERITANCE"
	DepFunctionCall DependencyType = "FUNCTION_CALL"
	DepVariableUse  DependencyType = "VARIABLE_USE"
	DepTypeRef      DependencyType = "TYPE_REFERENCE"
	DepRuntime      DependencyType = "RUNTIME"
	DepImplicit     DependencyType = "IMPLICIT"
	DepUnknown      DependencyType = "UNKNOWN"
)

// selfLoopAllowed reports whether dt may legally form a self-loop edge.
// Per spec, only INHERITANCE (a class referencing itself in generic
// bounds, e.g.) and FUNCTION_CALL (direct recursion) are permitted.
func selfLoopAllowed(dt DependencyType) bool {
	return dt == DepInheritance || dt == DepFunctionCall
}

// DependencyMetadata annotates one DependencyEdge with where and how
// confidently it was detected.
type DependencyMetadata struct {
	Type DependencyType `json:"type"`

	// Lines holds the 1-based source line numbers where this dependency
	// was observed. May contain more than one entry when a parser
	// coalesces repeated references into a single edge.
	Lines []int `json:"lines,omitempty"`

	// Symbols lists the names involved (imported symbol, called
	// function, base class, ...).
	Symbols []string `json:"symbols,omitempty"`

	Verified bool `json:"verified"`

	// Confidence is in [0.0, 1.0]. Verified implies Confidence >= 0.5;
	// constructors in this package enforce that invariant.
	Confidence float64 `json:"confidence"`

	AdditionalInfo map[string]any `json:"additional_info,omitempty"`
}

// NewDependencyMetadata builds a DependencyMetadata, clamping confidence
// into range and downgrading an inconsistent verified+low-confidence
// combination rather than silently accepting a graph that violates the
// invariant.
func NewDependencyMetadata(dt DependencyType, lines []int, symbols []string, verified bool, confidence float64) DependencyMetadata {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if verified && confidence < 0.5 {
		verified = false
	}
	return DependencyMetadata{
		Type:       dt,
		Lines:      lines,
		Symbols:    symbols,
		Verified:   verified,
		Confidence: confidence,
	}
}

// DependencyEdge is a directed edge from Source to Target, annotated
// with a DependencyMetadata. Edges are unique per (Source, Target, Type)
// triple — a graph may hold multiple edges between the same two files
// as long as their Type differs.
type DependencyEdge struct {
	Source   string             `json:"source"`
	Target   string             `json:"target"`
	Metadata DependencyMetadata `json:"metadata"`
}

// edgeKey identifies an edge slot for uniqueness and lookup purposes.
type edgeKey struct {
	source string
	target string
	dtype  DependencyType
}

// sortedPaths returns a lexicographically sorted copy of paths, used
// wherever an operation's output order is otherwise undefined.
func sortedPaths(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	return out
}

// sortEdgeSlice orders edges by (target-or-source, type) so callers get
// deterministic output regardless of map iteration order.
func sortEdgeSlice(edges []DependencyEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Target != edges[j].Target {
			return edges[i].Target < edges[j].Target
		}
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Metadata.Type < edges[j].Metadata.Type
	})
}
