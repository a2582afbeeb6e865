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
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aleutian-oss/depsentry/internal/fscache"
	"github.com/aleutian-oss/depsentry/internal/lock"
	"github.com/aleutian-oss/depsentry/internal/repair"
	"github.com/aleutian-oss/depsentry/internal/testrunner"
)

func newLockManager() (*lock.FileLockManager, error) {
	return lock.NewFileLockManager(lock.DefaultManagerConfig())
}

// verifierFor builds a repair.Verifier that runs filePath's related
// tests (or the explicit set in testPaths, when non-empty) against
// whatever content Coordinator.Repair just applied.
func verifierFor(runner *testrunner.Runner, filePath string, testPaths []string) repair.Verifier {
	return func(ctx context.Context, patch repair.Patch) (bool, error) {
		paths := testPaths
		if len(paths) == 0 {
			var err error
			paths, err = testrunner.FindRelatedTests(filePath)
			if err != nil {
				return false, err
			}
		}
		if len(paths) == 0 {
			return true, nil
		}
		results, err := runner.RunAll(ctx, paths)
		if err != nil {
			return false, err
		}
		return allResultsPassed(results), nil
	}
}

func allResultsPassed(results []testrunner.Result) bool {
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

func runRepair(cmd *cobra.Command, args []string) error {
	filePath, patchFile := args[0], args[1]

	patchBytes, err := os.ReadFile(patchFile)
	if err != nil {
		return fmt.Errorf("reading patch %s: %w", patchFile, err)
	}

	locks, err := newLockManager()
	if err != nil {
		return fmt.Errorf("starting lock manager: %w", err)
	}
	defer locks.Close()

	var coordinatorLogger *slog.Logger
	if appLogger != nil {
		coordinatorLogger = appLogger.Slog()
	}
	coordinator := repair.New(locks, fscache.New(), repair.DefaultOptions(), coordinatorLogger)
	runner := testrunner.New(testrunner.DefaultOptions())

	patch := repair.Patch{BugID: "cli-repair-" + uuid.New().String(), FilePath: filePath, PatchDiff: string(patchBytes)}
	result := coordinator.Repair(cmd.Context(), patch, verifierFor(runner, filePath, includeGlobs))

	fmt.Printf("state:    %s\n", result.FinalState)
	fmt.Printf("applied:  %v\n", result.Applied)
	fmt.Printf("verified: %v\n", result.Verified)
	if result.FinalState == repair.StateDone {
		recordCount(cmd.Context(), "depsentry.repairs_succeeded", "repairs that reached DONE", 1)
	} else {
		recordCount(cmd.Context(), "depsentry.repairs_failed", "repairs that did not reach DONE", 1)
	}
	if result.Error != "" {
		fmt.Printf("error:    %s\n", result.Error)
	}
	if result.Inconsistent {
		fmt.Printf("CRITICAL: rollback failed, %s may not match either the old or new content (backup %s): %s\n",
			filePath, result.BackupPath, result.RollbackError)
		exitCode = 1
		return nil
	}
	if result.FinalState != repair.StateDone {
		exitCode = 1
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	patchBytes, err := os.ReadFile(patchPath)
	if err != nil {
		return fmt.Errorf("reading patch %s: %w", patchPath, err)
	}

	testPaths := includeGlobs
	if relatedOnly && len(testPaths) == 0 {
		testPaths, err = testrunner.FindRelatedTests(filePath)
		if err != nil {
			return fmt.Errorf("finding related tests for %s: %w", filePath, err)
		}
	}

	runner := testrunner.New(testrunner.DefaultOptions())
	result, err := testrunner.ValidatePatch(cmd.Context(), runner, filePath, testPaths, patchBytes, nil)
	if err != nil {
		return fmt.Errorf("validate %s: %w", filePath, err)
	}

	for _, tr := range result.TestResults {
		fmt.Printf("[%s] %s\n", tr.Kind, tr.TestPath)
	}
	if result.Inconsistent {
		fmt.Printf("CRITICAL: restoring original content failed for %s: %s\n", filePath, result.RollbackError)
		exitCode = 1
		return nil
	}
	if !result.Passed {
		fmt.Printf("validation failed: %s\n", result.FailureReason)
		exitCode = 1
	}
	return nil
}
