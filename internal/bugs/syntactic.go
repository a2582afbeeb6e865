// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bugs

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/aleutian-oss/depsentry/internal/langtag"
)

// SyntacticDefaultConfidence is the confidence assigned to every bug
// the syntactic pass produces, per spec §4.9.
const SyntacticDefaultConfidence = 0.7

// syntacticFinding is one structural defect found by the syntactic
// pass.
type syntacticFinding struct {
	kind     string // goes into pattern_id as "ast_<kind>"
	line     int
	bugType  BugType
	severity Severity
	snippet  string
	matched  string
}

// runSyntacticPass walks content's tree-sitter AST (when lang has a
// grammar wired in) for structural defects regex can't reliably
// express: an except clause with no exception type, and an equality
// comparison against the None literal (which should use `is`/`is not`
// so it can't be spoofed by a `__eq__` override).
//
// Only Python has a syntactic pass wired in, matching the Parser
// Registry's own scope (internal/ast registers no grammar for
// Java/C++/Rust) — see DESIGN.md for the parity rationale.
func runSyntacticPass(ctx context.Context, lang langtag.Tag, content []byte) ([]syntacticFinding, error) {
	if lang != langtag.Python {
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, nil
	}

	var findings []syntacticFinding
	walkPythonSyntax(root, content, &findings)
	return findings, nil
}

func walkPythonSyntax(node *sitter.Node, content []byte, findings *[]syntacticFinding) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "except_clause":
		// A bare except has no child naming the caught type: its only
		// named children are "block" (and, in as-clauses, the bound
		// variable) with no preceding expression.
		hasType := false
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() != "except" && c.Type() != ":" && c.Type() != "block" {
				hasType = true
				break
			}
		}
		if !hasType {
			line := int(node.StartPoint().Row) + 1
			*findings = append(*findings, syntacticFinding{
				kind:     "bare_except",
				line:     line,
				bugType:  BugExceptionHandling,
				severity: SeverityMedium,
				snippet:  string(content[node.StartByte():node.EndByte()]),
				matched:  "except:",
			})
		}
	case "comparison_operator":
		text := string(content[node.StartByte():node.EndByte()])
		if matchesNoneEquality(node, content) {
			line := int(node.StartPoint().Row) + 1
			*findings = append(*findings, syntacticFinding{
				kind:     "none_equality",
				line:     line,
				bugType:  BugNullReference,
				severity: SeverityLow,
				snippet:  text,
				matched:  text,
			})
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkPythonSyntax(node.Child(i), content, findings)
	}
}

// matchesNoneEquality reports whether a comparison_operator node
// compares something against the `None` identifier using `==` or `!=`
// rather than `is`/`is not`.
func matchesNoneEquality(node *sitter.Node, content []byte) bool {
	sawOperator := false
	sawNone := false
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "==", "!=":
			sawOperator = true
		case "none":
			sawNone = true
		}
	}
	_ = content
	return sawOperator && sawNone
}
