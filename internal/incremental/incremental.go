// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package incremental is the Incremental Analyzer: given a map of
// changed file contents, it classifies each entry as ADDED, MODIFIED or
// REMOVED against the currently-known graph, patches the graph in
// place, and reports the impact boundary of the change.
//
// The Builder owns the graph during a full construction; after that,
// exclusive ownership of in-place mutation belongs here, matching the
// teacher's rule that no two components hold a mutable graph reference
// at once (graph/dominators_articulation.go's single-writer comment;
// see also spec §4.7's ownership model).
package incremental

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aleutian-oss/depsentry/internal/ast"
	"github.com/aleutian-oss/depsentry/internal/depgraph"
	"github.com/aleutian-oss/depsentry/internal/langtag"
)

var incrementalTracer = otel.Tracer("depsentry.incremental")

// ChangeKind classifies how an updated file relates to the graph's
// prior state.
type ChangeKind string

const (
	Added    ChangeKind = "ADDED"
	Modified ChangeKind = "MODIFIED"
	Removed  ChangeKind = "REMOVED"
)

// ChangeRecord is one entry in a file's change history.
type ChangeRecord struct {
	Path      string
	Kind      ChangeKind
	Hash      string // empty for Removed
	Timestamp time.Time
}

// modificationNotifier is satisfied by graphanalysis.Analyzer; declared
// here (not imported) to avoid a dependency from incremental onto
// graphanalysis for what is otherwise a one-method coupling.
type modificationNotifier interface {
	MarkModified()
}

// Analyzer patches a depgraph.DependencyGraph in place as files change
// and tracks enough history to answer "what changed and when" without
// a separate changelog store.
type Analyzer struct {
	graph    *depgraph.DependencyGraph
	registry *ast.Registry
	rootDir  string
	notify   modificationNotifier
	logger   *slog.Logger

	mu       sync.Mutex
	history  []ChangeRecord
	lastHash map[string]string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithNotifier registers a graphanalysis.Analyzer (or anything
// satisfying MarkModified()) to invalidate whenever ApplyUpdates
// mutates the graph.
func WithNotifier(n modificationNotifier) Option {
	return func(a *Analyzer) { a.notify = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New wraps graph for in-place incremental updates. rootDir is the
// repository root used to resolve relative imports the same way the
// Graph Builder did when it first constructed graph.
func New(graph *depgraph.DependencyGraph, registry *ast.Registry, rootDir string, opts ...Option) *Analyzer {
	a := &Analyzer{
		graph:    graph,
		registry: registry,
		rootDir:  rootDir,
		lastHash: make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	for _, node := range graph.Nodes() {
		a.lastHash[node.Path] = node.Hash
	}
	return a
}

// UpdateResult is the outcome of one ApplyUpdates call.
type UpdateResult struct {
	// Affected is every path ApplyUpdates classified as ADDED, MODIFIED
	// or REMOVED, sorted.
	Affected []string
	// ImpactBoundary is Affected unioned with every transitive
	// dependent and transitive dependency of every affected path,
	// sorted — the full set of files whose analysis results might now
	// be stale. Dependents are gathered from the graph both before and
	// after the update, since removing a node drops the edges into it.
	ImpactBoundary []string
	Changes        []ChangeRecord
}

// ApplyUpdates classifies each entry of updates against the graph's
// prior state and patches the graph in place:
//
//   - path unknown to the graph              -> ADDED: parse and insert.
//   - path known, content nil                -> REMOVED: delete the node
//     (cascading its edges).
//   - path known, content's hash differs      -> MODIFIED: remove the
//     node (cascading edges), re-insert, re-parse.
//   - path known, content's hash is unchanged -> no-op, not reported.
//
// A nil byte slice is the tombstone for "this file was deleted"; Go has
// no other natural way to distinguish "no change" from "write empty
// bytes" inside a single map value, and an explicitly empty (non-nil)
// slice is a legitimate zero-byte file.
func (a *Analyzer) ApplyUpdates(ctx context.Context, updates map[string][]byte) (*UpdateResult, error) {
	ctx, span := incrementalTracer.Start(ctx, "Analyzer.ApplyUpdates", trace.WithAttributes(attribute.Int("updates", len(updates))))
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	paths := make([]string, 0, len(updates))
	for p := range updates {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	now := time.Now().UnixNano()
	affected := make(map[string]struct{}, len(paths))
	changes := make([]ChangeRecord, 0, len(paths))

	// Every added path gets its node before any file is parsed, so an
	// import between two files added in the same call finds its target.
	preAdded := make(map[string]bool)
	for _, path := range paths {
		if updates[path] != nil && !a.graph.HasNode(path) {
			a.graph.AddNode(depgraph.FileNode{Path: path, Language: langtag.FromPath(path)}, now)
			preAdded[path] = true
		}
	}

	priorDependents := make(map[string]struct{})
	notePriorDependents := func(path string) {
		for _, d := range a.graph.TransitiveDependents(path, 0) {
			priorDependents[d] = struct{}{}
		}
	}

	for _, path := range paths {
		content := updates[path]
		existing := a.graph.Node(path)
		if preAdded[path] {
			existing = nil
		}

		if content == nil {
			if existing == nil {
				continue // removal of a file the graph never knew about: no-op
			}
			notePriorDependents(path)
			a.graph.RemoveNode(path, now)
			delete(a.lastHash, path)
			affected[path] = struct{}{}
			changes = append(changes, ChangeRecord{Path: path, Kind: Removed, Timestamp: time.Unix(0, now)})
			continue
		}

		sum := sha256.Sum256(content)
		newHash := hex.EncodeToString(sum[:])

		if existing != nil && existing.Hash == newHash {
			continue // content unchanged
		}

		kind := Added
		if existing != nil {
			kind = Modified
			notePriorDependents(path)
			a.graph.RemoveNode(path, now) // cascades outgoing/incoming edges
		}

		node := depgraph.FileNode{
			Path:         path,
			Language:     langtag.FromPath(path),
			LastModified: now,
			Hash:         newHash,
		}
		a.graph.AddNode(node, now)

		if parser, ok := a.registry.For(node.Language); ok {
			deps, err := parser.Parse(ctx, a.rootDir, path, content)
			if err != nil {
				a.logger.Warn("incremental: parse failed", "path", path, "error", err)
			} else {
				for _, dep := range deps {
					if !a.graph.HasNode(dep.TargetPath) {
						continue
					}
					if err := a.graph.AddEdge(path, dep.TargetPath, dep.Metadata, now); err != nil {
						a.logger.Debug("incremental: edge rejected", "source", path, "target", dep.TargetPath, "error", err)
					}
				}
			}
		}

		a.lastHash[path] = newHash
		affected[path] = struct{}{}
		changes = append(changes, ChangeRecord{Path: path, Kind: kind, Hash: newHash, Timestamp: time.Unix(0, now)})
	}

	a.history = append(a.history, changes...)
	if a.notify != nil {
		a.notify.MarkModified()
	}

	affectedList := make([]string, 0, len(affected))
	for p := range affected {
		affectedList = append(affectedList, p)
	}
	sort.Strings(affectedList)

	boundary := a.impactBoundary(affectedList)
	if len(priorDependents) > 0 {
		for _, p := range boundary {
			priorDependents[p] = struct{}{}
		}
		boundary = make([]string, 0, len(priorDependents))
		for p := range priorDependents {
			boundary = append(boundary, p)
		}
		sort.Strings(boundary)
	}

	span.SetAttributes(attribute.Int("affected", len(affectedList)), attribute.Int("impact_boundary", len(boundary)))
	return &UpdateResult{Affected: affectedList, ImpactBoundary: boundary, Changes: changes}, nil
}

// impactBoundary computes affected ∪ transitive_dependents(affected) ∪
// transitive_dependencies(affected), sorted and deduplicated.
func (a *Analyzer) impactBoundary(affected []string) []string {
	set := make(map[string]struct{}, len(affected))
	for _, p := range affected {
		set[p] = struct{}{}
		for _, d := range a.graph.TransitiveDependents(p, 0) {
			set[d] = struct{}{}
		}
		for _, d := range a.graph.TransitiveDependencies(p, 0) {
			set[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// History returns every change record accumulated so far, oldest
// first.
func (a *Analyzer) History() []ChangeRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ChangeRecord, len(a.history))
	copy(out, a.history)
	return out
}

// LastKnownHash returns the most recently observed content hash for
// path and whether the graph currently knows about it.
func (a *Analyzer) LastKnownHash(path string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.lastHash[path]
	return h, ok
}

// Hashes returns a copy of every path's last-known hash.
func (a *Analyzer) Hashes() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.lastHash))
	for k, v := range a.lastHash {
		out[k] = v
	}
	return out
}
