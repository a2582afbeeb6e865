// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repair

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aleutian-oss/depsentry/internal/fscache"
	"github.com/aleutian-oss/depsentry/internal/fsops"
	"github.com/aleutian-oss/depsentry/internal/lock"
)

var repairTracer = otel.Tracer("depsentry.repair")

// Verifier runs whatever check decides if an applied patch is good:
// typically the Test Runner's ValidatePatch for the bug's file and its
// related tests. A false result (with nil error) triggers rollback just
// as surely as a non-nil error.
type Verifier func(ctx context.Context, patch Patch) (ok bool, err error)

// Coordinator drives patches through ANALYZING -> GENERATING ->
// APPLYING -> VERIFYING -> DONE, rolling back to the pre-patch content
// on any apply or verification failure, per spec §4.10.
//
// # Thread Safety
//
// Safe for concurrent use: Repair acquires a per-path lock for the
// duration of one patch's apply/verify/rollback sequence, so at most one
// repair is ever in flight against a given file.
type Coordinator struct {
	locks   *lock.FileLockManager
	cache   *fscache.Cache
	options Options
	logger  *slog.Logger
}

// New builds a Coordinator. locks is a required collaborator;
// cache may be nil if the caller doesn't maintain an fscache.Cache, in
// which case invalidation is simply skipped.
func New(locks *lock.FileLockManager, cache *fscache.Cache, options Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = 1
	}
	return &Coordinator{locks: locks, cache: cache, options: options, logger: logger}
}

// Repair drives patch through the full state machine, calling verify
// after the patch is applied. On any failure the file is restored to
// its pre-patch content before Repair returns.
func (c *Coordinator) Repair(ctx context.Context, patch Patch, verify Verifier) *Result {
	ctx, span := repairTracer.Start(ctx, "Coordinator.Repair", trace.WithAttributes(
		attribute.String("bug_id", patch.BugID),
		attribute.String("file_path", patch.FilePath),
	))
	defer span.End()

	result := &Result{BugID: patch.BugID, FilePath: patch.FilePath, FinalState: StateAnalyzing}

	if err := c.locks.AcquireLock(patch.FilePath, "repair:"+patch.BugID); err != nil {
		result.FinalState = StateFailed
		result.Error = fmt.Sprintf("acquiring file lock: %v", err)
		return result
	}
	defer c.locks.ReleaseLock(patch.FilePath)

	result.FinalState = StateGenerating
	oldContent, err := fsops.ReadFile(patch.FilePath)
	if err != nil {
		result.FinalState = StateFailed
		result.Error = fmt.Sprintf("reading file before patch: %v", err)
		return result
	}

	newContent, err := applyPatch(string(oldContent), patch)
	if err != nil {
		result.FinalState = StateFailed
		result.Error = fmt.Sprintf("computing patched content: %v", err)
		return result
	}

	for attempt := 1; attempt <= c.options.MaxAttempts; attempt++ {
		result.Attempts = attempt
		ok := c.attempt(ctx, patch, oldContent, newContent, verify, result)
		if ok {
			result.FinalState = StateDone
			return result
		}
		if result.Inconsistent {
			// Rollback itself failed: retrying would compound the damage.
			return result
		}
	}

	result.FinalState = StateFailed
	return result
}

// attempt runs one backup -> apply -> verify -> (rollback on failure)
// cycle, returning true only if the patch is applied and verified.
func (c *Coordinator) attempt(ctx context.Context, patch Patch, oldContent []byte, newContent string, verify Verifier, result *Result) bool {
	backupPath, err := fsops.Backup(patch.FilePath)
	if err != nil {
		result.Error = fmt.Sprintf("creating backup: %v", err)
		return false
	}
	result.BackupPath = backupPath
	c.invalidate(backupPath)

	result.FinalState = StateApplying
	if err := fsops.AtomicWrite(patch.FilePath, []byte(newContent), 0o644); err != nil {
		result.Error = fmt.Sprintf("applying patch: %v", err)
		c.rollback(patch.FilePath, backupPath, result)
		return false
	}
	c.invalidate(patch.FilePath)
	result.Applied = true

	if verify == nil {
		result.Verified = true
		c.forgetBackup(backupPath, result)
		return true
	}

	result.FinalState = StateVerifying
	ok, err := verify(ctx, patch)
	if err != nil || !ok {
		if err != nil {
			result.Error = fmt.Sprintf("verification error: %v", err)
		} else {
			result.Error = "verification failed"
		}
		c.rollback(patch.FilePath, backupPath, result)
		return false
	}

	result.Verified = true
	c.forgetBackup(backupPath, result)
	return true
}

// rollback restores targetPath from backupPath. A rollback failure is
// the one unrecoverable outcome in this state machine: the file may now
// match neither the old nor the new content, so it's logged at
// CRITICAL and surfaced via result.Inconsistent rather than silently
// retried.
func (c *Coordinator) rollback(targetPath, backupPath string, result *Result) {
	result.FinalState = StateRollingBack
	if err := fsops.Restore(targetPath, backupPath); err != nil {
		result.Inconsistent = true
		result.RollbackError = err.Error()
		c.logger.Error("repair: rollback failed, file state may be inconsistent",
			"file", targetPath, "backup", backupPath, "error", err)
		return
	}
	c.invalidate(targetPath)
	c.invalidate(backupPath)
	result.Applied = false
}

// forgetBackup deletes a backup that is no longer needed because the
// patch it guards was verified successfully.
func (c *Coordinator) forgetBackup(backupPath string, result *Result) {
	if err := fsops.AtomicDelete(backupPath); err != nil {
		c.logger.Warn("repair: failed to remove backup after successful verification", "backup", backupPath, "error", err)
		return
	}
	c.invalidate(backupPath)
	result.BackupPath = ""
}

func (c *Coordinator) invalidate(path string) {
	if c.cache != nil {
		c.cache.Invalidate(path)
	}
}
