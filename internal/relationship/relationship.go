// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package relationship is the Relationship Service: a read-mostly
// façade over internal/graphbuild and internal/graphanalysis that
// produces analysis summaries, central-file rankings, cycle reports,
// and impact predictions for the CLI and any other caller that should
// not need to know the Builder/Analyzer split exists.
package relationship

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/aleutian-oss/depsentry/internal/ast"
	"github.com/aleutian-oss/depsentry/internal/depgraph"
	"github.com/aleutian-oss/depsentry/internal/errs"
	"github.com/aleutian-oss/depsentry/internal/fscache"
	"github.com/aleutian-oss/depsentry/internal/graphanalysis"
	"github.com/aleutian-oss/depsentry/internal/graphbuild"
	"github.com/aleutian-oss/depsentry/internal/incremental"
)

// Summary is the result of an analyze_codebase call.
type Summary struct {
	FilesAnalyzed     int
	DependenciesFound int
	CyclesDetected    int
	LanguagesDetected []string
	Timestamp         time.Time
}

// Metric names a centrality measure for GetMostCentralFiles.
type Metric string

const (
	MetricPageRank    Metric = "pagerank"
	MetricInDegree    Metric = "in_degree"
	MetricOutDegree   Metric = "out_degree"
	MetricBetweenness Metric = "betweenness"
)

// RankedFile pairs a path with its score under whatever Metric was
// requested.
type RankedFile struct {
	Path  string
	Score float64
}

// Service wraps one repository's graph, builder, and analyzer behind
// the operations spec §4.8 names. A Service must be analyzed (via
// AnalyzeCodebase) before any query method succeeds; querying first
// returns errs.ErrNoAnalysis, matching spec's NoAnalysis kind.
type Service struct {
	builder  *graphbuild.Builder
	registry *ast.Registry

	mu           sync.RWMutex
	graph        *depgraph.DependencyGraph
	analyzer     *graphanalysis.Analyzer
	analyzerOpts []graphanalysis.Option
	incr         *incremental.Analyzer
	rootDir      string
	analyzed     bool
	watcher      *fscache.Watcher
}

// SetAnalyzerOptions configures every graphanalysis.Analyzer this
// Service creates from here on (including the one built by the next
// full AnalyzeCodebase call). Primarily used to pass WithBadgerCache
// through to the Graph Analyzer without the CLI needing to know the
// Analyzer type exists.
func (s *Service) SetAnalyzerOptions(opts ...graphanalysis.Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzerOpts = opts
}

// New constructs a Service that parses files via registry, using
// buildOpts to configure the Builder's walk/worker settings.
func New(registry *ast.Registry, buildOpts ...graphbuild.BuilderOption) *Service {
	return &Service{
		builder:  graphbuild.NewBuilder(registry, buildOpts...),
		registry: registry,
	}
}

// AnalyzeCodebase builds (or incrementally updates) the graph rooted at
// root and returns a Summary. Calling it twice with an unchanged
// filesystem and incremental=true is a no-op beyond re-stating every
// file's hash, and returns the same counts (idempotent per spec §4.8).
func (s *Service) AnalyzeCodebase(ctx context.Context, root string, incrementalMode bool) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if incrementalMode && s.graph != nil && s.rootDir == root {
		// Re-walk and feed every current file's bytes through the
		// Incremental Analyzer; unchanged files are a no-op per its hash
		// comparison.
		if err := s.refreshIncremental(ctx, root); err != nil {
			return nil, err
		}
	} else {
		result, err := s.builder.Build(ctx, root)
		if err != nil {
			return nil, err
		}
		if s.watcher != nil {
			s.watcher.Close()
		}
		s.graph = result.Graph
		s.analyzer = graphanalysis.New(s.graph, s.analyzerOpts...)
		s.incr = incremental.New(s.graph, s.registry, root, incremental.WithNotifier(s.analyzer))
		s.rootDir = root
		s.watcher = result.Watcher
	}
	s.analyzed = true

	languages := make(map[string]struct{})
	deps := 0
	for _, node := range s.graph.Nodes() {
		languages[node.Language.String()] = struct{}{}
		deps += len(s.graph.OutgoingEdges(node.Path))
	}
	langList := make([]string, 0, len(languages))
	for l := range languages {
		langList = append(langList, l)
	}
	sort.Strings(langList)

	cycles, err := s.analyzer.FindCycles(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		FilesAnalyzed:     s.graph.NodeCount(),
		DependenciesFound: deps,
		CyclesDetected:    len(cycles),
		LanguagesDetected: langList,
		Timestamp:         time.Now(),
	}, nil
}

// refreshIncremental re-reads every file currently in the graph plus
// any new files under root, and feeds the {path -> bytes} map through
// the Incremental Analyzer so the affected set is minimized.
func (s *Service) refreshIncremental(ctx context.Context, root string) error {
	paths, err := graphbuild.Walk(root, nil, nil)
	if err != nil {
		return err
	}
	updates := make(map[string][]byte, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, rel := range paths {
		content, readErr := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if readErr != nil {
			continue
		}
		updates[rel] = content
		seen[rel] = struct{}{}
	}
	// Anything the graph still knows about but that the walk no longer
	// sees is a removal.
	for _, node := range s.graph.Nodes() {
		if _, ok := seen[node.Path]; !ok {
			updates[node.Path] = nil
		}
	}
	_, err = s.incr.ApplyUpdates(ctx, updates)
	return err
}

func (s *Service) requireAnalyzed() error {
	if !s.analyzed {
		return errs.Wrap(errs.KindNoAnalysis, errs.SeverityHigh, "query made before analyze_codebase", errs.ErrNoAnalysis)
	}
	return nil
}

// GetMostCentralFiles returns the top-n files ranked by metric,
// descending.
func (s *Service) GetMostCentralFiles(n int, metric Metric) ([]RankedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireAnalyzed(); err != nil {
		return nil, err
	}

	var scores map[string]float64
	switch metric {
	case MetricInDegree:
		scores = make(map[string]float64)
		for _, node := range s.graph.Nodes() {
			scores[node.Path] = float64(s.analyzer.InDegree(node.Path))
		}
	case MetricOutDegree:
		scores = make(map[string]float64)
		for _, node := range s.graph.Nodes() {
			scores[node.Path] = float64(s.analyzer.OutDegree(node.Path))
		}
	case MetricBetweenness:
		scores = s.analyzer.Betweenness()
	default:
		scores = s.analyzer.PageRank(graphanalysis.DefaultPageRankOptions())
	}

	ranked := make([]RankedFile, 0, len(scores))
	for p, v := range scores {
		ranked = append(ranked, RankedFile{Path: p, Score: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Path < ranked[j].Path
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// FindCycles returns every SCC of size >= 2 plus self-loops.
func (s *Service) FindCycles(ctx context.Context) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireAnalyzed(); err != nil {
		return nil, err
	}
	return s.analyzer.FindCycles(ctx)
}

// GetFileDependents returns path's direct predecessors, or its full
// transitive-dependent set if transitive is true.
func (s *Service) GetFileDependents(path string, transitive bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireAnalyzed(); err != nil {
		return nil, err
	}
	if transitive {
		return s.graph.TransitiveDependents(path, 0), nil
	}
	return s.graph.Predecessors(path), nil
}

// GetFileDependencies returns path's direct successors, or its full
// transitive-dependency set if transitive is true.
func (s *Service) GetFileDependencies(path string, transitive bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireAnalyzed(); err != nil {
		return nil, err
	}
	if transitive {
		return s.graph.TransitiveDependencies(path, 0), nil
	}
	return s.graph.Successors(path), nil
}

// PredictImpact returns the union of the transitive dependents of every
// path in modifiedFiles: everything that could be affected by changing
// those files.
func (s *Service) PredictImpact(modifiedFiles []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireAnalyzed(); err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for _, p := range modifiedFiles {
		for _, d := range s.graph.TransitiveDependents(p, 0) {
			set[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// Graph exposes the underlying graph for callers (the Bug Detector,
// the Repair Coordinator) that need direct read access beyond this
// façade's fixed operation set. Returns nil if not yet analyzed.
func (s *Service) Graph() *depgraph.DependencyGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// Analyzer exposes the underlying Analyzer for the same reason as
// Graph.
func (s *Service) Analyzer() *graphanalysis.Analyzer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analyzer
}

// Close stops the opportunistic fsnotify watcher started when the
// Builder was configured with graphbuild.WithStatCache, releasing its
// file descriptors. A no-op if the Service was never built with a
// stat cache.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
