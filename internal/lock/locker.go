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
	"os"
)

// FileLocker abstracts platform-specific file locking operations.
//
// Implementations must be safe for concurrent use on different files.
// Locking the same file from multiple goroutines in the same process is
// undefined behavior — callers serialize same-path access themselves
// (FileLockManager does this via its in-process map before ever calling
// into a FileLocker).
type FileLocker interface {
	// Lock acquires a non-blocking exclusive lock on f, returning
	// ErrFileLocked immediately if it cannot.
	Lock(f *os.File) error

	// Unlock releases a previously acquired lock. Safe to call even if
	// not locked.
	Unlock(f *os.File) error
}

// IsProcessAlive reports whether a process with the given PID is still
// running, used for stale-lock detection.
func IsProcessAlive(pid int) bool {
	return isProcessAlive(pid)
}

// newFileLocker returns a platform-appropriate FileLocker.
func newFileLocker() FileLocker {
	return newPlatformLocker()
}
