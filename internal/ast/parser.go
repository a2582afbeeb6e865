// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast is the Parser Registry: one Parser per supported source
// language, each extracting the cross-file dependencies of a single file
// into (target_path, DependencyMetadata) tuples for the Graph Builder to
// turn into edges.
//
// Parsers in this package never read the file they parse (the caller
// reads bytes and passes them in) and never mutate a
// depgraph.DependencyGraph; they consult the filesystem only to check
// which candidate import targets exist under rootDir. Resolving an import to a concrete
// repo-relative path is the parser's job; a reference that cannot be
// resolved against the repo is dropped rather than surfaced as an error,
// per spec §4.3.
package ast

import (
	"context"

	"github.com/aleutian-oss/depsentry/internal/depgraph"
	"github.com/aleutian-oss/depsentry/internal/langtag"
)

// Dependency is one resolved cross-file reference a Parser emits for a
// source file.
type Dependency struct {
	TargetPath string
	Metadata   depgraph.DependencyMetadata
}

// Parser extracts a file's outgoing dependencies from its source bytes.
//
// Implementations must be safe for concurrent use: the Graph Builder
// calls Parse from many goroutines at once, one per file being walked.
type Parser interface {
	// Parse returns the dependencies relPath has on other files in the
	// repository rooted at rootDir. content is relPath's current bytes;
	// the parser does not re-read the file itself.
	Parse(ctx context.Context, rootDir, relPath string, content []byte) ([]Dependency, error)

	// Language reports the langtag.Tag this Parser handles.
	Language() langtag.Tag
}

// Registry selects a Parser by a file's langtag.Tag.
type Registry struct {
	parsers map[langtag.Tag]Parser
}

// NewRegistry builds a Registry with no parsers registered.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[langtag.Tag]Parser)}
}

// Register adds p, keyed by p.Language(). A later call for the same
// language replaces the earlier one.
func (r *Registry) Register(p Parser) {
	r.parsers[p.Language()] = p
}

// For returns the Parser registered for tag, and whether one exists.
func (r *Registry) For(tag langtag.Tag) (Parser, bool) {
	p, ok := r.parsers[tag]
	return p, ok
}

// NewDefaultRegistry returns a Registry with the parsers this module
// ships: an AST-accurate Python parser, regex-based JavaScript and
// TypeScript parsers, and a tree-sitter-based Go parser. Languages
// outside this set (Java, C++, Rust) carry a langtag.Tag for forward
// compatibility but have no registered Parser yet — the Graph Builder
// treats them the same as any unknown-language file: skipped, not
// errored.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPythonParser())
	r.Register(NewJSParser(langtag.JavaScript))
	r.Register(NewJSParser(langtag.TypeScript))
	r.Register(NewGoParser())
	return r
}
