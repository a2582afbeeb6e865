// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/aleutian-oss/depsentry/internal/ast"
	"github.com/aleutian-oss/depsentry/internal/fscache"
	"github.com/aleutian-oss/depsentry/internal/graphanalysis"
	"github.com/aleutian-oss/depsentry/internal/graphbuild"
	"github.com/aleutian-oss/depsentry/internal/langtag"
	"github.com/aleutian-oss/depsentry/pkg/validation"
)

// newRegistry wires every language parser depsentry supports into one
// ast.Registry, the shape every command that touches the dependency
// graph needs.
func newRegistry() *ast.Registry {
	r := ast.NewRegistry()
	r.Register(ast.NewGoParser())
	r.Register(ast.NewPythonParser())
	r.Register(ast.NewJSParser(langtag.JavaScript))
	r.Register(ast.NewJSParser(langtag.TypeScript))
	return r
}

// buildOptionsFromFlags translates the --include/--exclude/--max-workers
// persistent flags into graphbuild.BuilderOptions, so every graph-facing
// command shares the same flag wiring. The glob patterns come straight
// off the command line, so they're validated before being handed to
// filepath.Match deep inside the walk.
func buildOptionsFromFlags() ([]graphbuild.BuilderOption, error) {
	if err := validation.ValidateGlobPatterns(includeGlobs); err != nil {
		return nil, err
	}
	if err := validation.ValidateGlobPatterns(excludeGlobs); err != nil {
		return nil, err
	}

	var opts []graphbuild.BuilderOption
	if len(includeGlobs) > 0 {
		opts = append(opts, graphbuild.WithInclude(includeGlobs...))
	}
	if len(excludeGlobs) > 0 {
		opts = append(opts, graphbuild.WithExclude(excludeGlobs...))
	}
	if maxWorkers > 0 {
		opts = append(opts, graphbuild.WithMaxWorkers(maxWorkers))
	}
	if appLogger != nil {
		opts = append(opts, graphbuild.WithLogger(appLogger.Slog()))
	}
	if watchFS {
		opts = append(opts, graphbuild.WithStatCache(fscache.New()))
	}
	return opts, nil
}

// openCentralityCache opens the on-disk badger store backing
// --centrality-cache, or returns a nil *badger.DB (and a no-op
// closer) when the flag is unset. Centrality results keyed off the
// graph's content hash persist here across invocations, so a repeat
// `central`/`cycles` run against an unchanged repo skips recomputing
// PageRank/Betweenness entirely.
func openCentralityCache() (*badger.DB, func() error, error) {
	if centralityCachePath == "" {
		return nil, func() error { return nil }, nil
	}
	opts := badger.DefaultOptions(centralityCachePath).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

// analyzerOptionsFromFlags builds the graphanalysis.Option set driven
// by CLI flags; currently just the badger cache, but the single entry
// point matches buildOptionsFromFlags's pattern for the Builder side.
func analyzerOptionsFromFlags(db *badger.DB) []graphanalysis.Option {
	if db == nil {
		return nil
	}
	var logger *slog.Logger
	if appLogger != nil {
		logger = appLogger.Slog()
	}
	return []graphanalysis.Option{graphanalysis.WithBadgerCache(db, logger)}
}
