// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// file paths, include/exclude glob patterns, or pattern IDs. Using these validators
// prevents path traversal outside a repository root and malformed glob patterns from
// reaching filepath.Match unchecked.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// patternIDPattern matches valid bug-pattern identifiers: lowercase
// snake_case, 1-64 characters. These flow into BugID hashing and
// log/report output, never into a query or shell, but a malformed one
// still indicates a corrupt patterns config worth rejecting early.
var patternIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ValidatePatternID validates a bug-pattern identifier loaded from a
// patterns config file.
func ValidatePatternID(id string) error {
	if id == "" {
		return fmt.Errorf("pattern id cannot be empty")
	}
	if !patternIDPattern.MatchString(id) {
		return fmt.Errorf("invalid pattern id %q (must be 1-64 lowercase alphanumeric/underscore chars, starting with a letter)", id)
	}
	return nil
}

// ValidateRepoRelativePath validates that path, once joined to root and
// cleaned, stays within root. Use this before any AnalyzeFile,
// ApplyPatch, or backup/restore call whose path argument came from a
// CLI flag or an external request rather than a filesystem walk.
func ValidateRepoRelativePath(root, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %q: %w", root, err)
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(absRoot, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil {
		return "", fmt.Errorf("resolving %q relative to %q: %w", path, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes root %q", path, root)
	}

	return candidate, nil
}

// ValidateGlobPatterns checks that every pattern in patterns is
// syntactically valid per filepath.Match's grammar, returning an error
// naming every pattern that failed rather than stopping at the first.
func ValidateGlobPatterns(patterns []string) error {
	var invalid []string
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid glob patterns: %v", invalid)
	}
	return nil
}
