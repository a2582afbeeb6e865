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
	"context"
	"fmt"
	"log/slog"

	"github.com/aleutian-oss/depsentry/internal/fsops"
)

// ValidationResult is the outcome of writing a candidate patch to disk,
// running its related tests, and restoring the original content.
type ValidationResult struct {
	FilePath      string
	TestResults   []Result
	Passed        bool
	FailureReason string
	Inconsistent  bool // true only if restoring the original content itself failed
	RollbackError string
}

// ValidatePatch writes patchContent to filePath, runs every path in
// testPaths against it, and always restores the file's original content
// before returning — whether the tests passed or not. This is the
// collaborator the Repair Coordinator's Verifier closure wraps: a patch
// is only ever left in place by the Coordinator's own Apply step, never
// by validation.
//
// If restoring the original content fails, that is escalated exactly the
// way the Coordinator escalates a rollback failure: logged at the
// highest available slog level and surfaced via Inconsistent, since the
// file may now hold neither its original content nor patchContent.
func ValidatePatch(ctx context.Context, runner *Runner, filePath string, testPaths []string, patchContent []byte, logger *slog.Logger) (*ValidationResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	result := &ValidationResult{FilePath: filePath}

	backupPath, err := fsops.Backup(filePath)
	if err != nil {
		return nil, fmt.Errorf("testrunner: backing up %s before validation: %w", filePath, err)
	}

	if err := fsops.AtomicWrite(filePath, patchContent, 0o644); err != nil {
		// The file is untouched (AtomicWrite is all-or-nothing), so there's
		// nothing to restore; just drop the now-unused backup.
		_ = fsops.AtomicDelete(backupPath)
		return nil, fmt.Errorf("testrunner: writing candidate patch to %s: %w", filePath, err)
	}

	results, runErr := runner.RunAll(ctx, testPaths)
	result.TestResults = results
	result.Passed = runErr == nil && allPassed(results)
	if !result.Passed && result.FailureReason == "" {
		if runErr != nil {
			result.FailureReason = runErr.Error()
		} else {
			result.FailureReason = firstFailure(results)
		}
	}

	if err := fsops.Restore(filePath, backupPath); err != nil {
		result.Inconsistent = true
		result.RollbackError = err.Error()
		logger.Error("testrunner: restoring original content failed, file state may be inconsistent",
			"file", filePath, "backup", backupPath, "error", err)
		return result, nil
	}

	return result, nil
}
