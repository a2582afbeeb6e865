// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphbuild is the Graph Builder: it walks a repository,
// dispatches per-file parsing to a bounded worker pool, and populates a
// depgraph.DependencyGraph from the results.
//
// Per-file parse failures are recorded, not raised — a single
// unparseable file never aborts a build. Only walk-level failures
// (root_dir missing, unreadable) are returned as errors.
package graphbuild

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aleutian-oss/depsentry/internal/ast"
	"github.com/aleutian-oss/depsentry/internal/depgraph"
	"github.com/aleutian-oss/depsentry/internal/fscache"
	"github.com/aleutian-oss/depsentry/internal/langtag"
	"github.com/aleutian-oss/depsentry/internal/workerpool"
)

var buildTracer = otel.Tracer("depsentry.graphbuild")

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	Include    []string
	Exclude    []string
	MaxWorkers int
	CacheDir   string // empty disables snapshot writing
	Logger     *slog.Logger

	// StatCache, when set, is both consulted for file existence/mtime
	// during the walk and registered with an fsnotify-driven Watcher
	// (see internal/fscache/watcher.go) so external changes under
	// rootDir invalidate it for the lifetime of the returned
	// Result.Watcher. Nil disables both.
	StatCache *fscache.Cache
}

// DefaultBuilderOptions returns the Builder's defaults: no include
// filter (everything matches), a conservative exclude list for the
// directories every repo wants pruned, 8 workers, and no cache.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		Exclude:    []string{".git", "node_modules", "__pycache__", ".venv", "vendor", "dist", "build"},
		MaxWorkers: 8,
	}
}

// BuilderOption is a functional option for NewBuilder.
type BuilderOption func(*BuilderOptions)

func WithInclude(globs ...string) BuilderOption {
	return func(o *BuilderOptions) { o.Include = globs }
}

func WithExclude(globs ...string) BuilderOption {
	return func(o *BuilderOptions) { o.Exclude = globs }
}

func WithMaxWorkers(n int) BuilderOption {
	return func(o *BuilderOptions) { o.MaxWorkers = n }
}

func WithCacheDir(dir string) BuilderOption {
	return func(o *BuilderOptions) { o.CacheDir = dir }
}

func WithLogger(l *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) { o.Logger = l }
}

// WithStatCache enables the opportunistic fsnotify invalidator: the
// Builder registers every directory it walks with an fscache.Watcher
// bound to cache, so a later Build or the Relationship Service's
// incremental path sees a cache that already dropped entries for
// anything changed out-of-process since the last build.
func WithStatCache(cache *fscache.Cache) BuilderOption {
	return func(o *BuilderOptions) { o.StatCache = cache }
}

// Builder constructs a depgraph.DependencyGraph from a filesystem tree.
type Builder struct {
	options  BuilderOptions
	registry *ast.Registry
	logger   *slog.Logger
}

// NewBuilder constructs a Builder using registry to parse each matched
// file. opts override DefaultBuilderOptions.
func NewBuilder(registry *ast.Registry, opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{options: options, registry: registry, logger: logger}
}

// FileFailure records one file's parse failure during a build; the
// build itself still succeeds per spec §4.5's failure policy.
type FileFailure struct {
	Path string
	Err  error
}

// Result is the outcome of a full (non-incremental) Build.
type Result struct {
	Graph    *depgraph.DependencyGraph
	Failures []FileFailure

	// Watcher is non-nil iff BuilderOptions.StatCache was set. The
	// caller owns it from here and must Close it when rootDir no
	// longer needs live invalidation (e.g. at process exit for a
	// long-running command, or immediately for a one-shot CLI run).
	Watcher *fscache.Watcher
}

// Build walks rootDir per opts, creates one FileNode per matched file,
// parses every file's dependencies on a bounded worker pool, and adds
// the resolved edges. If every file fails to parse, Build still returns
// a non-nil empty graph and success — only a walk-level failure (e.g.
// rootDir missing) returns an error.
func (b *Builder) Build(ctx context.Context, rootDir string) (*Result, error) {
	ctx, span := buildTracer.Start(ctx, "Builder.Build", trace.WithAttributes(attribute.String("root_dir", rootDir)))
	defer span.End()

	paths, err := Walk(rootDir, b.options.Include, b.options.Exclude)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixNano()
	graph := depgraph.New(now)

	type fileInfo struct {
		path    string
		content []byte
		node    depgraph.FileNode
	}
	loaded := make([]*fileInfo, 0, len(paths))
	watchDirs := make(map[string]struct{})

	// Step 2: create every FileNode up front so every potential edge
	// target exists before any edge is added (spec §4.5 step 2).
	for _, rel := range paths {
		full := filepath.Join(rootDir, filepath.FromSlash(rel))
		content, readErr := os.ReadFile(full)
		if readErr != nil {
			b.logger.Warn("graphbuild: skipping unreadable file", "path", rel, "error", readErr)
			continue
		}
		var mtime int64
		if b.options.StatCache != nil {
			if info, statErr := b.options.StatCache.Stat(full); statErr == nil && info.Exists {
				mtime = info.ModTime
			}
		} else if info, statErr := os.Stat(full); statErr == nil {
			mtime = info.ModTime().UnixNano()
		}
		sum := sha256.Sum256(content)
		node := depgraph.FileNode{
			Path:         rel,
			Language:     langtag.FromPath(rel),
			LastModified: mtime,
			Hash:         hex.EncodeToString(sum[:]),
		}
		graph.AddNode(node, now)
		loaded = append(loaded, &fileInfo{path: rel, content: content, node: node})
		watchDirs[filepath.Dir(full)] = struct{}{}
	}

	var watcher *fscache.Watcher
	if b.options.StatCache != nil {
		w, watchErr := fscache.NewWatcher(b.options.StatCache, b.logger)
		if watchErr != nil {
			b.logger.Warn("graphbuild: starting fs watcher failed, continuing without live invalidation", "error", watchErr)
		} else {
			for dir := range watchDirs {
				if err := w.Watch(dir); err != nil {
					b.logger.Debug("graphbuild: watching directory failed", "dir", dir, "error", err)
				}
			}
			watcher = w
		}
	}

	// Step 3: dispatch per-file parsing to a bounded worker pool.
	type parseOutcome struct {
		deps []ast.Dependency
		err  error
	}
	outcomes := make([]parseOutcome, len(loaded))

	workerpool.Run(ctx, len(loaded), b.options.MaxWorkers, func(ctx context.Context, i int) error {
		f := loaded[i]
		parser, ok := b.registry.For(f.node.Language)
		if !ok {
			return nil // unsupported language: not a failure, just no edges
		}
		deps, err := parser.Parse(ctx, rootDir, f.path, f.content)
		outcomes[i] = parseOutcome{deps: deps, err: err}
		return nil
	})

	failures := make([]FileFailure, 0)
	for i, f := range loaded {
		oc := outcomes[i]
		if oc.err != nil {
			failures = append(failures, FileFailure{Path: f.path, Err: oc.err})
			b.logger.Warn("graphbuild: parse failed", "path", f.path, "error", oc.err)
			continue
		}
		for _, dep := range oc.deps {
			if !graph.HasNode(dep.TargetPath) {
				continue // unresolved or out-of-scan target: drop silently
			}
			if err := graph.AddEdge(f.path, dep.TargetPath, dep.Metadata, now); err != nil {
				b.logger.Debug("graphbuild: edge rejected", "source", f.path, "target", dep.TargetPath, "error", err)
			}
		}
	}
	if len(loaded) > 0 && len(failures) == len(loaded) {
		graph = depgraph.New(now)
	}

	if b.options.CacheDir != "" {
		if err := b.writeSnapshot(rootDir, graph); err != nil {
			b.logger.Warn("graphbuild: snapshot write failed", "error", err)
		}
	}

	span.SetAttributes(
		attribute.Int("files_scanned", len(loaded)),
		attribute.Int("failures", len(failures)),
		attribute.Int("edges", graph.EdgeCount()),
	)
	return &Result{Graph: graph, Failures: failures, Watcher: watcher}, nil
}

// writeSnapshot serializes graph to the cache directory under a name
// stable for this rootDir, via fsops-style atomic write.
func (b *Builder) writeSnapshot(rootDir string, graph *depgraph.DependencyGraph) error {
	data, err := graph.Serialize()
	if err != nil {
		return fmt.Errorf("graphbuild: serializing snapshot: %w", err)
	}
	path := SnapshotPath(b.options.CacheDir, rootDir)
	if err := os.MkdirAll(b.options.CacheDir, 0o755); err != nil {
		return fmt.Errorf("graphbuild: creating cache dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("graphbuild: writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("graphbuild: renaming snapshot into place: %w", err)
	}
	return nil
}

// SnapshotPath returns the stable cache-file path for rootDir inside
// cacheDir: dep_graph_cache_<basename>_<8 hex digits of a hash of the
// absolute root path>.json. Two different directories sharing a
// basename never collide because the hash covers the full path.
func SnapshotPath(cacheDir, rootDir string) string {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		abs = rootDir
	}
	sum := sha256.Sum256([]byte(abs))
	suffix := hex.EncodeToString(sum[:])[:8]
	name := fmt.Sprintf("dep_graph_cache_%s_%s.json", filepath.Base(abs), suffix)
	return filepath.Join(cacheDir, name)
}
