// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/aleutian-oss/depsentry/internal/depgraph"
	"github.com/aleutian-oss/depsentry/internal/langtag"
)

// DefaultGoMaxFileSize mirrors PythonParser's size guard.
const DefaultGoMaxFileSize = 10 * 1024 * 1024

// GoParserOptions configures GoParser.
type GoParserOptions struct {
	MaxFileSize int
	// ModulePrefix is this repo's own module path (from go.mod); import
	// specifiers under it resolve to in-repo files by stripping the
	// prefix, everything else is an external/stdlib import and is
	// dropped.
	ModulePrefix string
}

// DefaultGoParserOptions returns GoParser's defaults. ModulePrefix is
// empty by default — callers wire it from the scanned repo's go.mod via
// WithGoModulePrefix, since this package has no notion of "the repo
// being scanned" beyond rootDir.
func DefaultGoParserOptions() GoParserOptions {
	return GoParserOptions{MaxFileSize: DefaultGoMaxFileSize}
}

// GoParserOption is a functional option for NewGoParser.
type GoParserOption func(*GoParserOptions)

// WithGoMaxFileSize overrides the max file size GoParser accepts.
func WithGoMaxFileSize(n int) GoParserOption {
	return func(o *GoParserOptions) { o.MaxFileSize = n }
}

// WithGoModulePrefix sets the scanned repo's module path so import specs
// under it resolve to in-repo files.
func WithGoModulePrefix(prefix string) GoParserOption {
	return func(o *GoParserOptions) { o.ModulePrefix = strings.TrimSuffix(prefix, "/") }
}

// GoParser extracts import dependencies from Go source via tree-sitter,
// walking its import_declaration/import_spec nodes.
type GoParser struct {
	options GoParserOptions
}

// NewGoParser builds a GoParser with opts applied over the defaults.
func NewGoParser(opts ...GoParserOption) *GoParser {
	options := DefaultGoParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &GoParser{options: options}
}

// Language reports langtag.Go.
func (p *GoParser) Language() langtag.Tag { return langtag.Go }

// Parse walks relPath's syntax tree and emits one Dependency per
// resolvable import spec.
func (p *GoParser) Parse(ctx context.Context, rootDir, relPath string, content []byte) ([]Dependency, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ast: go parse of %s canceled before start: %w", relPath, err)
	}
	if len(content) > p.options.MaxFileSize {
		return nil, fmt.Errorf("ast: go file %s exceeds max size %d", relPath, p.options.MaxFileSize)
	}
	if p.options.ModulePrefix == "" {
		// Nothing to resolve against; every import is external by
		// definition. Not an error — many single-package scans have no
		// internal cross-file Go imports at all.
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("ast: tree-sitter go parse of %s failed: %w", relPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, nil
	}

	deps := make([]Dependency, 0)
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == "import_declaration" {
			deps = append(deps, p.fromImportDecl(child, content, rootDir)...)
		}
	}
	return deps, nil
}

func (p *GoParser) fromImportDecl(node *sitter.Node, content []byte, rootDir string) []Dependency {
	deps := make([]Dependency, 0)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import_spec":
			if d, ok := p.fromImportSpec(child, content, rootDir); ok {
				deps = append(deps, d)
			}
		case "import_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() == "import_spec" {
					if d, ok := p.fromImportSpec(spec, content, rootDir); ok {
						deps = append(deps, d)
					}
				}
			}
		}
	}
	return deps
}

func (p *GoParser) fromImportSpec(node *sitter.Node, content []byte, rootDir string) (Dependency, bool) {
	var path string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "interpreted_string_literal" {
			raw := string(content[child.StartByte():child.EndByte()])
			path = strings.Trim(raw, "\"")
		}
	}
	if path == "" || !strings.HasPrefix(path, p.options.ModulePrefix) {
		return Dependency{}, false
	}

	pkgDir := strings.TrimPrefix(strings.TrimPrefix(path, p.options.ModulePrefix), "/")
	line := int(node.StartPoint().Row) + 1

	// A Go import names a package directory, not a file; resolve to any
	// .go file directly inside it so the edge has a concrete target
	// node. If the directory holds several files, the first
	// lexicographic match is used — acceptable since the dependency
	// really is on the package as a whole.
	target, ok := resolveGoPackageFile(rootDir, pkgDir)
	if !ok {
		return Dependency{}, false
	}
	return Dependency{
		TargetPath: target,
		Metadata:   depgraph.NewDependencyMetadata(depgraph.DepImport, []int{line}, []string{path}, true, 0.9),
	}, true
}
