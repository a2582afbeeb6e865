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
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/aleutian-oss/depsentry/internal/depgraph"
	"github.com/aleutian-oss/depsentry/internal/langtag"
)

// Tree-sitter-python node type constants this parser walks. Named the
// way the rest of the registry names its node-type constants: direct
// traversal over node types rather than the tree-sitter query language,
// for precise control over which constructs become dependency edges.
const (
	pyNodeModule              = "module"
	pyNodeImportStatement     = "import_statement"
	pyNodeImportFromStatement = "import_from_statement"
	pyNodeDottedName          = "dotted_name"
	pyNodeAliasedImport       = "aliased_import"
	pyNodeRelativeImport      = "relative_import"
	pyNodeImportPrefix        = "import_prefix"
	pyNodeWildcardImport      = "wildcard_import"
	pyNodeIdentifier          = "identifier"
)

// DefaultPythonMaxFileSize bounds how large a file PythonParser will
// attempt to parse before returning errs.KindFileTooLarge territory to
// the caller (the Graph Builder maps that into its own skip-and-record
// policy; this package just refuses the work).
const DefaultPythonMaxFileSize = 10 * 1024 * 1024

// PythonParserOptions configures PythonParser.
type PythonParserOptions struct {
	MaxFileSize int
	Exclusions  Exclusions
}

// DefaultPythonParserOptions returns PythonParser's defaults.
func DefaultPythonParserOptions() PythonParserOptions {
	return PythonParserOptions{
		MaxFileSize: DefaultPythonMaxFileSize,
		Exclusions:  DefaultPythonExclusions(),
	}
}

// PythonParserOption is a functional option for NewPythonParser.
type PythonParserOption func(*PythonParserOptions)

// WithPythonMaxFileSize overrides the max file size PythonParser accepts.
func WithPythonMaxFileSize(n int) PythonParserOption {
	return func(o *PythonParserOptions) { o.MaxFileSize = n }
}

// WithPythonExclusions overrides the curated stdlib/external prefix list.
func WithPythonExclusions(e Exclusions) PythonParserOption {
	return func(o *PythonParserOptions) { o.Exclusions = e }
}

// PythonParser extracts import dependencies from Python source using an
// abstract-syntax-tree walk (tree-sitter-python), per spec §4.3's
// requirement that the Python parser be AST-accurate rather than
// line-based: it correctly handles multi-line imports, aliasing, and
// leveled relative imports that a regex pass would mis-parse.
type PythonParser struct {
	options PythonParserOptions
}

// NewPythonParser builds a PythonParser with opts applied over the
// defaults.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	options := DefaultPythonParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &PythonParser{options: options}
}

// Language reports langtag.Python.
func (p *PythonParser) Language() langtag.Tag { return langtag.Python }

// Parse walks relPath's syntax tree and emits one Dependency per
// resolvable import statement.
func (p *PythonParser) Parse(ctx context.Context, rootDir, relPath string, content []byte) ([]Dependency, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ast: python parse of %s canceled before start: %w", relPath, err)
	}
	if len(content) > p.options.MaxFileSize {
		return nil, fmt.Errorf("ast: python file %s exceeds max size %d", relPath, p.options.MaxFileSize)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("ast: tree-sitter python parse of %s failed: %w", relPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, nil
	}

	deps := make([]Dependency, 0)
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case pyNodeImportStatement:
			deps = append(deps, p.fromImportStatement(child, content, rootDir)...)
		case pyNodeImportFromStatement:
			if d, ok := p.fromImportFromStatement(child, content, rootDir, relPath); ok {
				deps = append(deps, d)
			}
		}
	}
	return deps, nil
}

// fromImportStatement handles `import a.b.c` and `import a.b.c as x`,
// which may list several comma-separated modules under one statement.
func (p *PythonParser) fromImportStatement(node *sitter.Node, content []byte, rootDir string) []Dependency {
	deps := make([]Dependency, 0, 1)
	line := int(node.StartPoint().Row) + 1

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		var dotted *sitter.Node
		switch child.Type() {
		case pyNodeDottedName, pyNodeIdentifier:
			dotted = child
		case pyNodeAliasedImport:
			if n := child.ChildByFieldName("name"); n != nil {
				dotted = n
			} else if child.ChildCount() > 0 {
				dotted = child.Child(0)
			}
		default:
			continue
		}
		if dotted == nil {
			continue
		}
		name := string(content[dotted.StartByte():dotted.EndByte()])
		if p.options.Exclusions.Matches(name) {
			continue
		}
		if target, ok := resolveWithCandidates(rootDir, strings.ReplaceAll(name, ".", "/"), []string{".py", ".pyi"}); ok {
			deps = append(deps, Dependency{
				TargetPath: target,
				Metadata:   depgraph.NewDependencyMetadata(depgraph.DepImport, []int{line}, []string{name}, true, 0.9),
			})
		}
	}
	return deps
}

// fromImportFromStatement handles `from a.b import c`, `from . import x`,
// and `from ..pkg import y` (leveled relative imports).
func (p *PythonParser) fromImportFromStatement(node *sitter.Node, content []byte, rootDir, relPath string) (Dependency, bool) {
	line := int(node.StartPoint().Row) + 1

	var moduleName string
	var relative *sitter.Node
	symbols := make([]string, 0)

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case pyNodeDottedName:
			if moduleName == "" {
				moduleName = string(content[child.StartByte():child.EndByte()])
			} else {
				symbols = append(symbols, string(content[child.StartByte():child.EndByte()]))
			}
		case pyNodeRelativeImport:
			relative = child
		case pyNodeWildcardImport:
			symbols = append(symbols, "*")
		}
	}

	if relative != nil {
		// In a relative import every dotted_name after "import" is an
		// imported name; the module, if any, sits inside relative_import.
		importedName := moduleName
		moduleName = ""
		if importedName != "" {
			symbols = append([]string{importedName}, symbols...)
		}
		level := 0
		for i := 0; i < int(relative.ChildCount()); i++ {
			c := relative.Child(i)
			switch c.Type() {
			case pyNodeImportPrefix:
				level = strings.Count(string(content[c.StartByte():c.EndByte()]), ".")
			case pyNodeDottedName:
				moduleName = string(content[c.StartByte():c.EndByte()])
			}
		}
		// level 1 means "current package" (relPath's own directory);
		// each additional dot climbs one more directory above that.
		dir := filepath.Dir(filepath.FromSlash(relPath))
		for i := 1; i < level; i++ {
			dir = filepath.Dir(dir)
		}
		target := filepath.ToSlash(dir)
		if moduleName != "" {
			target = target + "/" + strings.ReplaceAll(moduleName, ".", "/")
		} else if importedName != "" {
			target = target + "/" + importedName
		}
		if resolved, ok := resolveWithCandidates(rootDir, target, []string{".py", ".pyi"}); ok {
			return Dependency{
				TargetPath: resolved,
				Metadata:   depgraph.NewDependencyMetadata(depgraph.DepImport, []int{line}, symbols, true, 0.9),
			}, true
		}
		return Dependency{}, false
	}

	if moduleName == "" || p.options.Exclusions.Matches(moduleName) {
		return Dependency{}, false
	}
	if resolved, ok := resolveWithCandidates(rootDir, strings.ReplaceAll(moduleName, ".", "/"), []string{".py", ".pyi"}); ok {
		return Dependency{
			TargetPath: resolved,
			Metadata:   depgraph.NewDependencyMetadata(depgraph.DepImport, []int{line}, symbols, true, 0.85),
		}, true
	}
	// `from pkg import util` may name a submodule rather than a symbol
	// defined in pkg itself.
	for _, s := range symbols {
		if resolved, ok := resolveWithCandidates(rootDir, strings.ReplaceAll(moduleName, ".", "/")+"/"+s, []string{".py", ".pyi"}); ok {
			return Dependency{
				TargetPath: resolved,
				Metadata:   depgraph.NewDependencyMetadata(depgraph.DepImport, []int{line}, symbols, true, 0.85),
			}, true
		}
	}
	return Dependency{}, false
}
