// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bugs is the Bug Detector: a three-pass pipeline (pattern,
// optional syntactic, verification) that turns source bytes into a
// ranked, false-positive-suppressed list of DetectedBug entries.
//
// Layering mirrors the teacher's agent/grounding package: a registry of
// independent checks, each producing a confidence/severity-tagged
// finding, combined by an orchestrator that applies a final
// acceptance threshold.
package bugs

import "github.com/aleutian-oss/depsentry/internal/langtag"

// BugType is the closed enumeration of defect categories this
// detector recognizes.
type BugType string

const (
	BugNullReference      BugType = "null_reference"
	BugResourceLeak       BugType = "resource_leak"
	BugSQLInjection       BugType = "sql_injection"
	BugCredentialsLeak    BugType = "credentials_leak"
	BugExceptionHandling  BugType = "exception_handling"
	BugRaceCondition      BugType = "race_condition"
	BugMemoryLeak         BugType = "memory_leak"
	BugBufferOverflow     BugType = "buffer_overflow"
	BugCodeInjection      BugType = "code_injection"
	BugPathTraversal      BugType = "path_traversal"
	BugWeakCrypto         BugType = "weak_crypto"
	BugIntegerOverflow    BugType = "integer_overflow"
	BugUnvalidatedInput   BugType = "unvalidated_input"
	BugCrossSiteScripting BugType = "cross_site_scripting"
	BugDangerousFunction  BugType = "dangerous_function"
	BugAuthenticationFlaw BugType = "authentication_flaw"
	BugAuthorizationFlaw  BugType = "authorization_flaw"
	BugInformationLeak    BugType = "information_leak"
)

// Severity ranks a DetectedBug for sorting; higher Weight sorts first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Weight returns the numeric rank used by ranking/sorting: higher is
// more severe.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// DetectedBug is one candidate defect surfaced by the detector,
// annotated with enough context for both a human reviewer and the
// Repair Coordinator to act on it.
type DetectedBug struct {
	BugID                    string
	FilePath                 string
	LineNumber               int
	PatternID                string
	BugType                  BugType
	Severity                 Severity
	Confidence               float64
	FalsePositiveProbability float64
	Remediation              string
	CodeSnippet              string
	MatchedText              string
	Context                  map[string]string
	RelatedFiles             []string
	VerificationResults      map[string]VerificationResult
}

// VerificationResult is what one named verification strategy returns
// about a single candidate bug.
type VerificationResult struct {
	IsValid                  bool
	ConfidenceFactor         float64
	FalsePositiveProbability float64
	Notes                    string
}

// FileError is one structured failure recorded against a single file,
// matching spec §3's FileAnalysisResult.errors entry shape.
type FileError struct {
	Message     string
	Severity    Severity
	Kind        string
	File        string
	Line        int
	Recoverable bool
	Suggestion  string
	Details     map[string]any
}

// FileAnalysisResult aggregates one file's detected bugs and any
// structured errors encountered while analyzing it.
type FileAnalysisResult struct {
	FilePath       string
	Bugs           []DetectedBug
	Errors         []FileError
	Success        bool
	PartialSuccess bool
}

// FolderResult aggregates AnalyzeFolder's per-file results.
type FolderResult struct {
	BugsByFile      map[string][]DetectedBug
	TotalBugs       int
	FilesAnalyzed   int
	FilesWithBugs   int
	FilesWithErrors int
	SkippedFiles    []string
	ErrorsByFile    map[string][]FileError
	PartialSuccess  bool
}

// languageApplies reports whether pattern/check tagged for langs
// applies to file language lang. An empty langs list, or
// allLanguages set, matches every language.
func languageApplies(langs []langtag.Tag, allLanguages bool, lang langtag.Tag) bool {
	if allLanguages || len(langs) == 0 {
		return true
	}
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}
