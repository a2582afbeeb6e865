// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fsops provides the atomic file primitives the Repair
// Coordinator and Test Runner build their safety guarantees on: write,
// delete, and backup/restore of a single file, each all-or-nothing.
//
// None of these operations touch the fscache package directly — callers
// are responsible for invalidating any cache entry for a path they
// mutate, immediately after the call returns successfully, per spec §4.2.
package fsops

import (
	"fmt"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to a path to form its backup path, e.g.
// "service.go" -> "service.go.bak".
const BackupSuffix = ".bak"

// AtomicWrite writes data to path using the write-temp-then-rename
// pattern: either the new byte image is fully visible at path when this
// returns nil, or path is left byte-identical to its prior state (or
// absent, if it didn't exist before) and a non-nil error is returned.
//
// The temp file is created in the same directory as path so the final
// rename is guaranteed to be on the same filesystem (a cross-device
// rename is not atomic).
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fsops: creating parent directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".depsentry-*.tmp")
	if err != nil {
		return fmt.Errorf("fsops: creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("fsops: writing temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsops: syncing temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fsops: closing temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("fsops: chmod temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("fsops: renaming into place for %s: %w", path, err)
	}

	committed = true
	return nil
}

// AtomicDelete removes path. Deleting a path that does not exist is a
// no-op success, matching spec §4.2's "remove-or-noop" contract.
func AtomicDelete(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("fsops: deleting %s: %w", path, err)
	}
	return nil
}

// Backup reads path and atomically writes its bytes to path+".bak",
// returning the backup path. Used by the Repair Coordinator before any
// mutating patch apply, and by the Test Runner before a candidate-patch
// validation run.
func Backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("fsops: reading %s for backup: %w", path, err)
	}

	backupPath := path + BackupSuffix
	info, statErr := os.Stat(path)
	perm := os.FileMode(0o644)
	if statErr == nil {
		perm = info.Mode().Perm()
	}
	if err := AtomicWrite(backupPath, data, perm); err != nil {
		return "", fmt.Errorf("fsops: writing backup for %s: %w", path, err)
	}
	return backupPath, nil
}

// Restore reads backupPath and atomically writes its bytes back to
// targetPath, then deletes the backup. Used by rollback paths; the
// caller is responsible for invalidating the fscache entries for both
// paths once this returns.
func Restore(targetPath, backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("fsops: reading backup %s: %w", backupPath, err)
	}

	info, statErr := os.Stat(backupPath)
	perm := os.FileMode(0o644)
	if statErr == nil {
		perm = info.Mode().Perm()
	}
	if err := AtomicWrite(targetPath, data, perm); err != nil {
		return fmt.Errorf("fsops: restoring %s from backup: %w", targetPath, err)
	}
	if err := AtomicDelete(backupPath); err != nil {
		return fmt.Errorf("fsops: deleting backup %s after restore: %w", backupPath, err)
	}
	return nil
}

// ReadFile is a thin wrapper kept alongside the mutating primitives so
// callers in this package's domain read through one import rather than
// mixing os.ReadFile calls with fsops writes.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fsops: reading %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether path currently exists on disk. It does not
// consult the fscache — callers inside a mutation sequence that need
// cache-coherent existence checks should query fscache.Cache directly.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
