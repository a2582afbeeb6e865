// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func createTestManager(t *testing.T, tmpDir string) *FileLockManager {
	t.Helper()
	config := DefaultManagerConfig()
	config.LockDir = filepath.Join(tmpDir, "locks")
	config.SessionID = "test-session"
	config.CleanupOnInit = false

	manager, err := NewFileLockManager(config)
	if err != nil {
		t.Fatalf("NewFileLockManager failed: %v", err)
	}
	return manager
}

func TestNewFileLockManagerCreatesLockDir(t *testing.T) {
	tmpDir := t.TempDir()
	manager := createTestManager(t, filepath.Dir(filepath.Join(tmpDir, "locks")))
	defer manager.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, "locks")); err != nil {
		t.Fatalf("lock directory not created: %v", err)
	}
}

func TestAcquireReleaseLock(t *testing.T) {
	tmpDir := t.TempDir()
	manager := createTestManager(t, tmpDir)
	defer manager.Close()

	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("content"), 0644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	if err := manager.AcquireLock(testFile, "repairing bug-1"); err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}

	locked, info, err := manager.IsLocked(testFile)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !locked {
		t.Fatal("expected file to be locked")
	}
	if info.Reason != "repairing bug-1" {
		t.Fatalf("reason = %q, want %q", info.Reason, "repairing bug-1")
	}

	if err := manager.ReleaseLock(testFile); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}

	locked, _, err = manager.IsLocked(testFile)
	if err != nil {
		t.Fatalf("IsLocked after release: %v", err)
	}
	if locked {
		t.Fatal("expected file to be unlocked after release")
	}
}

func TestReleaseLockNotHeldReturnsErrLockNotHeld(t *testing.T) {
	tmpDir := t.TempDir()
	manager := createTestManager(t, tmpDir)
	defer manager.Close()

	testFile := filepath.Join(tmpDir, "untouched.txt")
	if err := manager.ReleaseLock(testFile); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("ReleaseLock = %v, want ErrLockNotHeld", err)
	}
}

func TestAcquireLockTwiceFromSameManagerSucceeds(t *testing.T) {
	tmpDir := t.TempDir()
	manager := createTestManager(t, tmpDir)
	defer manager.Close()

	testFile := filepath.Join(tmpDir, "reentrant.txt")
	if err := os.WriteFile(testFile, []byte("content"), 0644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	if err := manager.AcquireLock(testFile, "first"); err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}
	if err := manager.AcquireLock(testFile, "second"); err != nil {
		t.Fatalf("second AcquireLock: %v", err)
	}

	_, info, err := manager.IsLocked(testFile)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if info.Reason != "second" {
		t.Fatalf("reason = %q, want %q (reacquire updates reason)", info.Reason, "second")
	}
}

func TestReleaseAllReleasesEveryHeldLock(t *testing.T) {
	tmpDir := t.TempDir()
	manager := createTestManager(t, tmpDir)
	defer manager.Close()

	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := manager.AcquireLock(p, "batch"); err != nil {
			t.Fatalf("AcquireLock %s: %v", name, err)
		}
		paths = append(paths, p)
	}

	if err := manager.ReleaseAll(); err != nil {
		t.Fatalf("ReleaseAll: %v", err)
	}

	for _, p := range paths {
		locked, _, err := manager.IsLocked(p)
		if err != nil {
			t.Fatalf("IsLocked %s: %v", p, err)
		}
		if locked {
			t.Fatalf("%s still locked after ReleaseAll", p)
		}
	}
}
