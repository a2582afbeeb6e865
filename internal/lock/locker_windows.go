// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build windows

package lock

import (
	"os"
)

// WindowsFileLocker is a stub pending a LockFileEx implementation via
// golang.org/x/sys/windows; the repair pipeline's only hard requirement
// on Unix is flock-backed, cross-process exclusion, so this is not yet
// wired to a real syscall.
type WindowsFileLocker struct{}

// TODO: implement via golang.org/x/sys/windows.LockFileEx.
func (l *WindowsFileLocker) Lock(f *os.File) error {
	return nil
}

// TODO: implement via golang.org/x/sys/windows.UnlockFileEx.
func (l *WindowsFileLocker) Unlock(f *os.File) error {
	return nil
}

// TODO: implement via golang.org/x/sys/windows.OpenProcess.
func isProcessAlive(pid int) bool {
	return false
}

func newPlatformLocker() FileLocker {
	return &WindowsFileLocker{}
}
