// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package repair is the Repair Coordinator: it drives one patch through
// ANALYZING -> GENERATING -> APPLYING -> VERIFYING -> DONE, with a
// ROLLING_BACK -> FAILED branch on any apply or verification failure,
// per spec §4.10.
package repair

import "github.com/aleutian-oss/depsentry/internal/bugs"

// Patch is one proposed fix for a single DetectedBug.
type Patch struct {
	BugID        string
	FilePath     string
	PatchDiff    string // a unified diff, or a full-file replacement (see applier.go)
	ImpactLevel  string
	RelatedFiles []string
}

// NewPatchForBug builds a Patch skeleton from a detected bug, leaving
// PatchDiff for the caller (or a future patch-generation component) to
// fill in.
func NewPatchForBug(bug bugs.DetectedBug, relatedFiles []string) Patch {
	return Patch{
		BugID:        bug.BugID,
		FilePath:     bug.FilePath,
		RelatedFiles: relatedFiles,
	}
}

// State is the Repair Coordinator's state machine position for one patch.
type State string

const (
	StateAnalyzing   State = "ANALYZING"
	StateGenerating  State = "GENERATING"
	StateApplying    State = "APPLYING"
	StateVerifying   State = "VERIFYING"
	StateDone        State = "DONE"
	StateRollingBack State = "ROLLING_BACK"
	StateFailed      State = "FAILED"
)

// Result is the outcome of driving one Patch through the coordinator.
type Result struct {
	BugID         string
	FilePath      string
	FinalState    State
	BackupPath    string
	Applied       bool
	Verified      bool
	Attempts      int
	Error         string
	Inconsistent  bool // true only if rollback itself failed: the file may not match either old or new content
	RollbackError string
}

// Options configures a Coordinator run.
type Options struct {
	MaxAttempts int
}

// DefaultOptions returns the Coordinator's defaults: a single attempt,
// matching spec §4.10's base case (retry policy is the caller's choice,
// driven by Options.MaxAttempts).
func DefaultOptions() Options {
	return Options{MaxAttempts: 1}
}
