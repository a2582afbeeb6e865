// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package testrunner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// readDirTests lists the base names of files directly inside dir.
func readDirTests(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// skipDirs mirrors the lint package's directory-walk skip-list: these
// never contain tests worth discovering and can be large enough to make
// walking them expensive.
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	".git":         true,
	".depsentry":   true,
}

// isTestFile reports whether name looks like a test file by the
// conventions of the languages in commandFor: test_*.py/*_test.py for
// Python, *_test.go for Go, and *.test.js/*.spec.js (and the .ts
// equivalents) for JS/TS.
func isTestFile(name string) bool {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	switch ext {
	case ".py":
		return strings.HasPrefix(stem, "test_") || strings.HasSuffix(stem, "_test")
	case ".go":
		return strings.HasSuffix(stem, "_test")
	case ".js", ".ts":
		return strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec")
	default:
		return false
	}
}

// DiscoverTests walks root and returns every path that looks like a test
// file, skipping vendor/node_modules directories and every directory
// whose name starts with a dot, sorted for deterministic ordering.
func DiscoverTests(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if isTestFile(d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

// FindRelatedTests locates tests likely to cover filePath: test files in
// filePath's own directory and in its tests/ and test/ subdirectories
// whose names contain filePath's stem (test_<stem>, <stem>_test and the
// like). Test files that do not contain the stem are not returned, Go
// *_test.go siblings included.
func FindRelatedTests(filePath string) ([]string, error) {
	dir := filepath.Dir(filePath)
	ext := filepath.Ext(filePath)
	stem := strings.TrimSuffix(filepath.Base(filePath), ext)

	candidateDirs := []string{dir, filepath.Join(dir, "tests"), filepath.Join(dir, "test")}

	var related []string
	seen := map[string]bool{}
	for _, d := range candidateDirs {
		entries, err := readDirTests(d)
		if err != nil {
			continue
		}
		for _, name := range entries {
			if !isTestFile(name) {
				continue
			}
			if !strings.Contains(name, stem) {
				continue
			}
			full := filepath.Join(d, name)
			if full == filePath || seen[full] {
				continue
			}
			seen[full] = true
			related = append(related, full)
		}
	}
	sort.Strings(related)
	return related, nil
}
