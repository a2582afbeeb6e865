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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// FileLockManager manages per-path locks for the Repair Coordinator, so
// at most one repair is ever in flight against a given file.
//
// # Thread Safety
//
// All public methods are safe for concurrent use from multiple goroutines.
type FileLockManager struct {
	lockDir    string
	sessionID  string
	defaultTTL time.Duration
	locker     FileLocker
	locks      map[string]*lockEntry
	mu         sync.Mutex
	watcher    *fsnotify.Watcher
	watcherMu  sync.Mutex
	callbacks  map[string][]func(ExternalChangeEvent)
}

// NewFileLockManager creates a manager with the given configuration. If
// config.CleanupOnInit is true, stale locks from crashed repair runs are
// cleaned up on creation.
func NewFileLockManager(config ManagerConfig) (*FileLockManager, error) {
	if config.LockDir == "" {
		config.LockDir = ".depsentry/locks"
	}
	if config.DefaultTTL == 0 {
		config.DefaultTTL = time.Hour
	}
	if config.SessionID == "" {
		config.SessionID = uuid.New().String()
	}

	if err := os.MkdirAll(config.LockDir, 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory %s: %w", config.LockDir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	m := &FileLockManager{
		lockDir:    config.LockDir,
		sessionID:  config.SessionID,
		defaultTTL: config.DefaultTTL,
		locker:     newFileLocker(),
		locks:      make(map[string]*lockEntry),
		watcher:    watcher,
		callbacks:  make(map[string][]func(ExternalChangeEvent)),
	}

	go m.watchLoop()

	if config.CleanupOnInit {
		cleaned, err := m.CleanupStaleLocks()
		if err != nil {
			slog.Warn("lock: failed to cleanup stale locks on init", "error", err)
		} else if cleaned > 0 {
			slog.Info("lock: cleaned up stale locks on init", "count", cleaned)
		}
	}

	return m, nil
}

// AcquireLock attempts a non-blocking exclusive lock on filePath,
// returning a *FileLockError wrapping ErrFileLocked if another live
// process already holds it. reason is recorded for diagnostics (e.g.
// the bug ID the repair is fixing).
func (m *FileLockManager) AcquireLock(filePath, reason string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("resolving path %s: %w", filePath, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.locks[absPath]; ok {
		entry.info.Reason = reason
		return nil
	}

	if err := m.ensureLockDir(); err != nil {
		return err
	}

	lockPath := m.lockPath(absPath)
	existingLock, err := m.readLockInfo(lockPath)
	if err == nil && existingLock != nil {
		if !existingLock.IsExpired() && IsProcessAlive(existingLock.PID) {
			return &FileLockError{Path: absPath, Holder: existingLock, Err: ErrFileLocked}
		}
		slog.Info("lock: removing stale lock", "path", absPath, "old_pid", existingLock.PID)
		_ = os.Remove(lockPath)
	}

	f, err := os.OpenFile(absPath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("opening file for lock %s: %w", absPath, err)
	}

	if err := m.locker.Lock(f); err != nil {
		f.Close()
		if err == ErrFileLocked {
			return &FileLockError{Path: absPath, Err: ErrFileLocked}
		}
		return fmt.Errorf("acquiring lock on %s: %w", absPath, err)
	}

	now := time.Now()
	info := &LockInfo{
		FilePath:  absPath,
		PID:       os.Getpid(),
		SessionID: m.sessionID,
		LockedAt:  now,
		ExpiresAt: now.Add(m.defaultTTL),
		Reason:    reason,
	}

	if err := m.writeLockInfo(lockPath, info); err != nil {
		m.locker.Unlock(f)
		f.Close()
		return fmt.Errorf("writing lock info: %w", err)
	}

	m.addWatch(absPath)

	m.locks[absPath] = &lockEntry{file: f, path: absPath, lockPath: lockPath, info: info}

	slog.Debug("lock: acquired", "path", absPath, "reason", reason, "expires_at", info.ExpiresAt.Format(time.RFC3339))
	return nil
}

// ReleaseLock releases a lock held by this manager, or ErrLockNotHeld
// if it doesn't hold one on filePath.
func (m *FileLockManager) ReleaseLock(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("resolving path %s: %w", filePath, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[absPath]
	if !ok {
		return ErrLockNotHeld
	}
	return m.releaseLockEntry(absPath, entry)
}

// releaseLockEntry releases a lock entry; must be called with mu held.
func (m *FileLockManager) releaseLockEntry(absPath string, entry *lockEntry) error {
	m.removeWatch(absPath)

	if f, ok := entry.file.(*os.File); ok {
		if err := m.locker.Unlock(f); err != nil {
			slog.Warn("lock: failed to unlock file", "path", absPath, "error", err)
		}
		f.Close()
	}

	if err := os.Remove(entry.lockPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("lock: failed to remove lock file", "path", entry.lockPath, "error", err)
	}

	delete(m.locks, absPath)
	slog.Debug("lock: released", "path", absPath)
	return nil
}

// ReleaseAll releases every lock held by this manager. Call on repair
// run shutdown.
func (m *FileLockManager) ReleaseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for path, entry := range m.locks {
		if err := m.releaseLockEntry(path, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// IsLocked reports whether filePath is locked by any process, checking
// both this manager's in-process state and the on-disk lock file.
func (m *FileLockManager) IsLocked(filePath string) (bool, *LockInfo, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return false, nil, fmt.Errorf("resolving path %s: %w", filePath, err)
	}

	m.mu.Lock()
	if entry, ok := m.locks[absPath]; ok {
		m.mu.Unlock()
		return true, entry.info, nil
	}
	m.mu.Unlock()

	lockPath := m.lockPath(absPath)
	info, err := m.readLockInfo(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil
		}
		return false, nil, err
	}
	if info == nil {
		return false, nil, nil
	}
	if info.IsExpired() || !IsProcessAlive(info.PID) {
		return false, nil, nil
	}
	return true, info, nil
}

// CleanupStaleLocks removes lock files left by processes that exited or
// whose TTL has expired, returning the number removed.
func (m *FileLockManager) CleanupStaleLocks() (int, error) {
	entries, err := os.ReadDir(m.lockDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading lock directory: %w", err)
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lock" {
			continue
		}

		lockPath := filepath.Join(m.lockDir, entry.Name())
		info, err := m.readLockInfo(lockPath)
		if err != nil {
			slog.Warn("lock: failed to read lock info", "path", lockPath, "error", err)
			continue
		}
		if info == nil {
			continue
		}

		if info.IsExpired() || !IsProcessAlive(info.PID) {
			slog.Info("lock: cleaning up stale lock", "path", info.FilePath, "pid", info.PID, "expired", info.IsExpired())
			if err := os.Remove(lockPath); err != nil {
				slog.Warn("lock: failed to remove stale lock", "path", lockPath, "error", err)
			} else {
				cleaned++
			}
		}
	}
	return cleaned, nil
}

// RegisterCallback registers callback to be invoked when a locked file
// is modified externally while this manager holds the lock.
func (m *FileLockManager) RegisterCallback(filePath string, callback func(ExternalChangeEvent)) {
	absPath, _ := filepath.Abs(filePath)

	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()
	m.callbacks[absPath] = append(m.callbacks[absPath], callback)
}

// Close releases all locks and stops the file watcher.
func (m *FileLockManager) Close() error {
	if err := m.ReleaseAll(); err != nil {
		slog.Warn("lock: error releasing locks during close", "error", err)
	}
	return m.watcher.Close()
}

func (m *FileLockManager) lockPath(absPath string) string {
	hash := sha256.Sum256([]byte(absPath))
	hashStr := hex.EncodeToString(hash[:])[:16]
	return filepath.Join(m.lockDir, hashStr+".lock")
}

func (m *FileLockManager) ensureLockDir() error {
	if err := os.MkdirAll(m.lockDir, 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	return nil
}

func (m *FileLockManager) writeLockInfo(lockPath string, info *LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(lockPath, data, 0644)
}

func (m *FileLockManager) readLockInfo(lockPath string) (*LockInfo, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (m *FileLockManager) addWatch(path string) {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()
	if err := m.watcher.Add(path); err != nil {
		slog.Warn("lock: failed to watch file", "path", path, "error", err)
	}
}

func (m *FileLockManager) removeWatch(path string) {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()
	if err := m.watcher.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Debug("lock: file was not being watched", "path", path)
	}
	delete(m.callbacks, path)
}

func (m *FileLockManager) watchLoop() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleWatchEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("lock: file watcher error", "error", err)
		}
	}
}

func (m *FileLockManager) handleWatchEvent(event fsnotify.Event) {
	var changeType ChangeType
	switch {
	case event.Op&fsnotify.Write != 0:
		changeType = ChangeWrite
	case event.Op&fsnotify.Remove != 0:
		changeType = ChangeDelete
	case event.Op&fsnotify.Rename != 0:
		changeType = ChangeRename
	default:
		return
	}

	absPath, _ := filepath.Abs(event.Name)

	m.mu.Lock()
	_, weHoldLock := m.locks[absPath]
	m.mu.Unlock()
	if !weHoldLock {
		return
	}

	slog.Warn("lock: external modification detected on locked file", "path", absPath, "event", changeType.String())

	m.watcherMu.Lock()
	callbacks := m.callbacks[absPath]
	m.watcherMu.Unlock()

	changeEvent := ExternalChangeEvent{Path: absPath, EventType: changeType}
	for _, cb := range callbacks {
		cb(changeEvent)
	}
}

// WatchFile watches filePath for external changes until ctx is done,
// invoking callback on each change.
func (m *FileLockManager) WatchFile(ctx context.Context, filePath string, callback func(string)) {
	absPath, _ := filepath.Abs(filePath)

	m.addWatch(absPath)
	m.RegisterCallback(absPath, func(event ExternalChangeEvent) {
		callback(event.Path)
	})

	<-ctx.Done()
	m.removeWatch(absPath)
}
