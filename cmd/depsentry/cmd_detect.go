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
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aleutian-oss/depsentry/internal/bugs"
	"github.com/aleutian-oss/depsentry/pkg/validation"
)

func newDetector() (*bugs.Detector, error) {
	var opts []bugs.DetectorOption
	if threshold > 0 {
		opts = append(opts, bugs.WithThreshold(threshold))
	}
	if maxFileSize > 0 {
		opts = append(opts, bugs.WithMaxFileSize(maxFileSize))
	}
	if maxWorkers > 0 {
		opts = append(opts, bugs.WithMaxWorkers(maxWorkers))
	}
	if appLogger != nil {
		opts = append(opts, bugs.WithLogger(appLogger.Slog()))
	}

	detector, errs := bugs.NewDetector(opts...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("building detector: %v", errs[0])
	}
	return detector, nil
}

func printBugs(bs []bugs.DetectedBug) {
	sort.SliceStable(bs, func(i, j int) bool {
		return bs[i].Severity.Weight() > bs[j].Severity.Weight()
	})
	for _, b := range bs {
		fmt.Printf("[%s] %s:%d %s (confidence=%.2f, fp=%.2f) %s\n",
			b.Severity, b.FilePath, b.LineNumber, b.PatternID, b.Confidence, b.FalsePositiveProbability, b.Remediation)
	}
}

func runDetect(cmd *cobra.Command, args []string) error {
	path := args[0]
	detector, err := newDetector()
	if err != nil {
		return err
	}

	if folderMode {
		if err := validation.ValidateGlobPatterns(includeGlobs); err != nil {
			return err
		}
		if err := validation.ValidateGlobPatterns(excludeGlobs); err != nil {
			return err
		}
		result, err := detector.AnalyzeFolder(cmd.Context(), path, includeGlobs, excludeGlobs, nil)
		if err != nil {
			return fmt.Errorf("detect %s: %w", path, err)
		}
		for file, bs := range result.BugsByFile {
			fmt.Printf("--- %s ---\n", file)
			printBugs(bs)
		}
		fmt.Printf("\n%d files analyzed, %d bugs found, %d files with errors\n",
			result.FilesAnalyzed, result.TotalBugs, result.FilesWithErrors)
		recordCount(cmd.Context(), "depsentry.files_analyzed", "files analyzed by detect", int64(result.FilesAnalyzed))
		recordCount(cmd.Context(), "depsentry.bugs_found", "bug candidates surviving suppression", int64(result.TotalBugs))
		if result.PartialSuccess {
			exitCode = 1
		}
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	result := detector.AnalyzeFile(cmd.Context(), path, content)
	if !result.Success {
		exitCode = 1
		for _, e := range result.Errors {
			fmt.Printf("error: %s\n", e.Message)
		}
		return nil
	}
	printBugs(result.Bugs)
	if result.PartialSuccess {
		exitCode = 1
	}
	return nil
}
