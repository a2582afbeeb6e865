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
	"regexp"
	"strings"

	"github.com/aleutian-oss/depsentry/internal/depgraph"
	"github.com/aleutian-oss/depsentry/internal/langtag"
)

// importLinePatterns matches the handful of JS/TS module-reference forms
// spec §4.3 calls out: `import ... from '...'`, bare `import '...'`,
// `require('...')`, and `export ... from '...'`. Each pattern's last
// capture group is the specifier.
var importLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bimport\s+[^'"]*?\sfrom\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`\bexport\s+[^'"]*?\sfrom\s+['"]([^'"]+)['"]`),
}

// jsExtCandidates and tsExtCandidates are the extension-resolution
// orders spec §4.3 names for each language.
var (
	tsExtCandidates = []string{".ts", ".tsx", ".js", ".jsx", ".json"}
	jsExtCandidates = []string{".js", ".jsx", ".json"}
)

// JSParserOptions configures JSParser.
type JSParserOptions struct {
	Exclusions Exclusions
}

// DefaultJSParserOptions returns JSParser's defaults.
func DefaultJSParserOptions() JSParserOptions {
	return JSParserOptions{Exclusions: DefaultJSExclusions()}
}

// JSParserOption is a functional option for NewJSParser.
type JSParserOption func(*JSParserOptions)

// WithJSExclusions overrides the curated stdlib/external prefix list.
func WithJSExclusions(e Exclusions) JSParserOption {
	return func(o *JSParserOptions) { o.Exclusions = e }
}

// JSParser extracts import dependencies from JavaScript or TypeScript
// source using a line-oriented regex pass, per spec §4.3 — regex rather
// than an AST walk, since the four reference forms it needs to catch are
// simple enough that a per-line scan is both faster and easier to extend
// with new specifier forms than a grammar-level walk would be.
type JSParser struct {
	lang    langtag.Tag
	options JSParserOptions
}

// NewJSParser builds a JSParser for lang (langtag.JavaScript or
// langtag.TypeScript); the extension-resolution order differs between
// the two per spec §4.3.
func NewJSParser(lang langtag.Tag, opts ...JSParserOption) *JSParser {
	options := DefaultJSParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &JSParser{lang: lang, options: options}
}

// Language reports the langtag.Tag this parser was constructed for.
func (p *JSParser) Language() langtag.Tag { return p.lang }

func (p *JSParser) extCandidates() []string {
	if p.lang == langtag.TypeScript {
		return tsExtCandidates
	}
	return jsExtCandidates
}

// Parse scans content line by line for the import forms in
// importLinePatterns and resolves each specifier against rootDir.
func (p *JSParser) Parse(ctx context.Context, rootDir, relPath string, content []byte) ([]Dependency, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ast: js/ts parse of %s canceled before start: %w", relPath, err)
	}

	deps := make([]Dependency, 0)
	lines := strings.Split(string(content), "\n")
	exts := p.extCandidates()

	for i, line := range lines {
		spec, ok := firstSpecifier(line)
		if !ok {
			continue
		}
		if p.options.Exclusions.Matches(spec) {
			continue
		}

		var base string
		if strings.HasPrefix(spec, ".") {
			base = joinRel(relPath, spec)
		} else if strings.HasPrefix(spec, "/") {
			base = strings.TrimPrefix(spec, "/")
		} else {
			// Bare specifier not in the exclusion list: likely an
			// unresolved external package. Skip without erroring, per
			// spec §4.3's "unresolved imports are dropped" contract.
			continue
		}

		target, resolved := resolveWithCandidates(rootDir, base, exts)
		if !resolved {
			continue
		}
		deps = append(deps, Dependency{
			TargetPath: target,
			Metadata:   depgraph.NewDependencyMetadata(depgraph.DepImport, []int{i + 1}, []string{spec}, false, 0.75),
		})
	}
	return deps, nil
}

func firstSpecifier(line string) (string, bool) {
	for _, re := range importLinePatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[len(m)-1], true
		}
	}
	return "", false
}
