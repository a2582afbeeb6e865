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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aleutian-oss/depsentry/internal/fscache"
	"github.com/aleutian-oss/depsentry/internal/lock"
)

func newTestCoordinator(t *testing.T, dir string) *Coordinator {
	t.Helper()
	cfg := lock.DefaultManagerConfig()
	cfg.LockDir = filepath.Join(dir, ".locks")
	cfg.CleanupOnInit = false
	locks, err := lock.NewFileLockManager(cfg)
	if err != nil {
		t.Fatalf("NewFileLockManager: %v", err)
	}
	t.Cleanup(func() { locks.Close() })
	return New(locks, fscache.New(), DefaultOptions(), nil)
}

func TestRepairFullReplacementAppliesAndVerifies(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "buggy.py")
	if err := os.WriteFile(target, []byte("def f():\n    pass\n"), 0644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	c := newTestCoordinator(t, dir)
	patch := Patch{BugID: "bug-1", FilePath: target, PatchDiff: "def f():\n    return 1\n"}

	result := c.Repair(context.Background(), patch, func(ctx context.Context, p Patch) (bool, error) {
		return true, nil
	})

	if result.FinalState != StateDone {
		t.Fatalf("FinalState = %v, want DONE (err=%s)", result.FinalState, result.Error)
	}
	if !result.Applied || !result.Verified {
		t.Fatalf("Applied=%v Verified=%v, want both true", result.Applied, result.Verified)
	}
	if result.BackupPath != "" {
		t.Fatalf("BackupPath = %q, want empty after successful verification", result.BackupPath)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(got) != "def f():\n    return 1\n" {
		t.Fatalf("target content = %q, want the patched body", got)
	}
}

func TestRepairRollsBackOnVerificationFailure(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "buggy.py")
	original := "def f():\n    pass\n"
	if err := os.WriteFile(target, []byte(original), 0644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	c := newTestCoordinator(t, dir)
	patch := Patch{BugID: "bug-2", FilePath: target, PatchDiff: "def f():\n    raise RuntimeError\n"}

	result := c.Repair(context.Background(), patch, func(ctx context.Context, p Patch) (bool, error) {
		return false, nil
	})

	if result.FinalState != StateFailed {
		t.Fatalf("FinalState = %v, want FAILED", result.FinalState)
	}
	if result.Applied {
		t.Fatal("Applied = true after rollback, want false")
	}
	if result.Inconsistent {
		t.Fatal("Inconsistent = true, want false (rollback itself succeeded)")
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(got) != original {
		t.Fatalf("target content = %q, want original content restored", got)
	}
}

func TestRepairRollsBackOnVerificationError(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "buggy.py")
	original := "x = 1\n"
	if err := os.WriteFile(target, []byte(original), 0644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	c := newTestCoordinator(t, dir)
	patch := Patch{BugID: "bug-3", FilePath: target, PatchDiff: "x = 2\n"}

	result := c.Repair(context.Background(), patch, func(ctx context.Context, p Patch) (bool, error) {
		return false, errors.New("test runner crashed")
	})

	if result.FinalState != StateFailed {
		t.Fatalf("FinalState = %v, want FAILED", result.FinalState)
	}
	got, _ := os.ReadFile(target)
	if string(got) != original {
		t.Fatalf("target content = %q, want original restored", got)
	}
}

func TestIsUnifiedDiffDetectsDiffVsFullReplacement(t *testing.T) {
	unified := "--- a/f.py\n+++ b/f.py\n@@ -1,1 +1,1 @@\n-old\n+new\n"
	if !isUnifiedDiff(unified) {
		t.Fatal("expected unified diff to be detected")
	}
	full := "def f():\n    return 42\n"
	if isUnifiedDiff(full) {
		t.Fatal("expected full-file replacement to not be detected as a unified diff")
	}
}
