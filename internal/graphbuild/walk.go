// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphbuild

import (
	"os"
	"path/filepath"

	"github.com/aleutian-oss/depsentry/internal/errs"
)

// Walk enumerates repo-relative, forward-slash-separated paths under
// rootDir that match at least one include glob and no exclude glob.
// A directory matching an exclude glob is pruned entirely rather than
// descended into, per spec §4.5 step 1. Exported so the Relationship
// Service's incremental refresh can re-enumerate the same tree the
// Builder would, without duplicating the walk logic.
func Walk(rootDir string, include, exclude []string) ([]string, error) {
	if _, err := os.Stat(rootDir); err != nil {
		return nil, errs.Wrap(errs.KindFolderNotFound, errs.SeverityCritical, "graphbuild: root_dir does not exist", err).WithFile(rootDir, 0)
	}

	var paths []string
	walkErr := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // permission errors etc: skip the entry, keep walking
		}
		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if matchesAny(rel, exclude) {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(rel, exclude) {
			return nil
		}
		if len(include) > 0 && !matchesAny(rel, include) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if walkErr != nil {
		return nil, errs.Wrap(errs.KindFolderNotFound, errs.SeverityCritical, "graphbuild: walking root_dir failed", walkErr).WithFile(rootDir, 0)
	}
	return paths, nil
}

// matchesAny reports whether rel (or its base name) matches any of
// patterns using filepath.Match-style globs. A pattern containing no "/"
// is also tried against the path's base name, so an exclude like
// "node_modules" prunes every directory named that regardless of depth.
func matchesAny(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
