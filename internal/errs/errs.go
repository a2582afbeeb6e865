// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package errs provides the shared error taxonomy used across the
// dependency-graph, bug-detection, and repair packages.
//
// Every component that can fail on a per-file or per-operation basis wraps
// its failures in a Record so callers get a structured {message, severity,
// kind, file, line, recoverable, suggestion} tuple instead of an opaque
// error string. Sentinel Kind values let callers branch with errors.Is
// without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Severity is the tier assigned to a Record.
type Severity string

// Severity tiers, ordered from least to most severe.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Kind names a category of failure from the taxonomy in spec §7.
type Kind string

// Closed set of error kinds the core raises.
const (
	KindFileNotFound    Kind = "FileNotFound"
	KindFolderNotFound  Kind = "FolderNotFound"
	KindFileTooLarge    Kind = "FileTooLarge"
	KindBinaryFile      Kind = "BinaryFile"
	KindEncodingError   Kind = "EncodingError"
	KindRegexError      Kind = "RegexError"
	KindParseError      Kind = "ParseError"
	KindPermissionError Kind = "PermissionError"
	KindNoAnalysis      Kind = "NoAnalysis"
	KindTimeout         Kind = "Timeout"
	KindPatchApplyError Kind = "PatchApplyError"
	KindRollbackError   Kind = "RollbackError"
	KindGraphInvariant  Kind = "GraphInvariantViolation"
	KindUnknown         Kind = "Unknown"
)

// Sentinel errors for errors.Is comparisons that don't need a Record's
// extra fields (e.g. programmatic control-flow checks).
var (
	ErrNoAnalysis   = errors.New("query made before analysis")
	ErrGraphInvalid = errors.New("graph invariant violated")
)

// Record is a structured, user-visible failure record. It is returned
// alongside (not instead of) collected results wherever spec §7 calls for
// a "structured record" rather than an aborted operation.
type Record struct {
	Message     string
	Severity    Severity
	Kind        Kind
	File        string
	Line        int
	Recoverable bool
	Suggestion  string
	Details     map[string]any
	cause       error
}

// Error implements the error interface.
func (r *Record) Error() string {
	if r.File != "" {
		if r.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", r.File, r.Line, r.Message)
		}
		return fmt.Sprintf("%s: %s", r.File, r.Message)
	}
	return r.Message
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (r *Record) Unwrap() error {
	return r.cause
}

// New builds a Record with the given kind and severity. Recoverable
// defaults to true for anything other than critical-tier kinds, matching
// the propagation policy in spec §7 (only hard infrastructure errors abort
// the containing operation).
func New(kind Kind, severity Severity, message string) *Record {
	return &Record{
		Kind:        kind,
		Severity:    severity,
		Message:     message,
		Recoverable: severity != SeverityCritical,
	}
}

// Wrap builds a Record around an existing error, preserving it for
// errors.Unwrap/errors.Is.
func Wrap(kind Kind, severity Severity, message string, cause error) *Record {
	r := New(kind, severity, message)
	r.cause = cause
	return r
}

// WithFile sets the File/Line fields and returns the Record for chaining.
func (r *Record) WithFile(path string, line int) *Record {
	r.File = path
	r.Line = line
	return r
}

// WithSuggestion sets a remediation suggestion and returns the Record.
func (r *Record) WithSuggestion(s string) *Record {
	r.Suggestion = s
	return r
}

// WithDetails attaches a free-form detail map and returns the Record.
func (r *Record) WithDetails(d map[string]any) *Record {
	r.Details = d
	return r
}

// AsRecoverable forces the Recoverable flag, for callers that know better
// than the severity-derived default (e.g. a RollbackError is always
// critical-and-unrecoverable regardless of caller override attempts, so
// this is a one-way ratchet down to false only).
func (r *Record) AsRecoverable(v bool) *Record {
	if !v {
		r.Recoverable = false
	}
	return r
}

// IsCritical reports whether a Record (or any Record in the error chain)
// carries critical severity — used by callers deciding whether to abort a
// containing operation per spec §7's propagation policy.
func IsCritical(err error) bool {
	var rec *Record
	if errors.As(err, &rec) {
		return rec.Severity == SeverityCritical
	}
	return false
}

// KindOf extracts the Kind of a wrapped Record, or KindUnknown if err does
// not wrap a Record.
func KindOf(err error) Kind {
	var rec *Record
	if errors.As(err, &rec) {
		return rec.Kind
	}
	return KindUnknown
}
