// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bugs

import (
	"regexp"

	"github.com/aleutian-oss/depsentry/internal/langtag"
)

// Pattern is one registered bug signature: a compiled regex plus the
// metadata the pattern pass needs to turn a match into a DetectedBug.
type Pattern struct {
	ID             string
	Languages      []langtag.Tag
	AllLanguages   bool
	Regex          *regexp.Regexp
	Description    string
	Severity       Severity
	Remediation    string
	BugType        BugType
	Enabled        bool
	BaseConfidence float64
}

// PatternRegistry holds every registered Pattern, in registration
// order (the order patterns run in, and the order ties are broken in
// diagnostics).
type PatternRegistry struct {
	patterns []*Pattern
	byID     map[string]*Pattern
}

// NewPatternRegistry returns an empty registry.
func NewPatternRegistry() *PatternRegistry {
	return &PatternRegistry{byID: make(map[string]*Pattern)}
}

// Register adds p, or replaces the existing entry with the same ID.
func (r *PatternRegistry) Register(p *Pattern) {
	if _, exists := r.byID[p.ID]; !exists {
		r.patterns = append(r.patterns, p)
	} else {
		for i, existing := range r.patterns {
			if existing.ID == p.ID {
				r.patterns[i] = p
				break
			}
		}
	}
	r.byID[p.ID] = p
}

// For returns every enabled pattern applicable to lang, in
// registration order.
func (r *PatternRegistry) For(lang langtag.Tag) []*Pattern {
	out := make([]*Pattern, 0, len(r.patterns))
	for _, p := range r.patterns {
		if !p.Enabled {
			continue
		}
		if languageApplies(p.Languages, p.AllLanguages, lang) {
			out = append(out, p)
		}
	}
	return out
}

// All returns every registered pattern regardless of enabled state, for
// reporting/config-dump purposes.
func (r *PatternRegistry) All() []*Pattern {
	out := make([]*Pattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// mustCompile returns the compiled regex for expr and a non-nil error
// if compilation fails, letting DefaultPatternRegistry record a
// RegexError for a single bad pattern without refusing to register any
// of the others.
func mustCompile(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(expr)
}

// DefaultPatternRegistry returns the built-in pattern set. A pattern
// whose regex fails to compile is skipped (this only happens if this
// function's own literals are wrong, since they are not
// user-supplied); the second return value collects any such failure for callers that
// want to surface it as spec §4.9's RegexError instead of panicking.
func DefaultPatternRegistry() (*PatternRegistry, []error) {
	r := NewPatternRegistry()
	var errs []error

	register := func(p Pattern, expr string) {
		re, err := mustCompile(expr)
		if err != nil {
			errs = append(errs, err)
			return
		}
		p.Regex = re
		pp := p
		r.Register(&pp)
	}

	pyLang := []langtag.Tag{langtag.Python}
	jsLang := []langtag.Tag{langtag.JavaScript, langtag.TypeScript}

	register(Pattern{
		ID:             "null_reference",
		Languages:      pyLang,
		Description:    "attribute access shortly after a name is assigned None",
		Severity:       SeverityMedium,
		Remediation:    "add a None check before accessing this attribute",
		BugType:        BugNullReference,
		Enabled:        true,
		BaseConfidence: 0.55,
	}, `\b\w+\s*=\s*None\b[\s\S]{0,120}?\b\w+\.\w+`)

	register(Pattern{
		ID:             "hardcoded_credentials",
		AllLanguages:   true,
		Description:    "a credential-looking literal assigned directly in source",
		Severity:       SeverityCritical,
		Remediation:    "load credentials from environment or a secret manager",
		BugType:        BugCredentialsLeak,
		Enabled:        true,
		BaseConfidence: 0.7,
	}, `(?i)\b(password|passwd|secret|api_key|apikey|access_key|token)\s*[:=]\s*["'][^"']{4,}["']`)

	register(Pattern{
		ID:             "sql_string_concat",
		AllLanguages:   true,
		Description:    "SQL statement built by string concatenation or formatting",
		Severity:       SeverityCritical,
		Remediation:    "use parameterized queries instead of string interpolation",
		BugType:        BugSQLInjection,
		Enabled:        true,
		BaseConfidence: 0.65,
	}, `(?i)(select|insert|update|delete)\s+[\s\S]{0,80}?["']\s*\+|f["'](select|insert|update|delete)\b|%\s*\([\s\S]{0,40}\)\s*(select|insert|update|delete)`)

	register(Pattern{
		ID:             "bare_except",
		Languages:      pyLang,
		Description:    "bare except clause swallows every exception, including KeyboardInterrupt",
		Severity:       SeverityMedium,
		Remediation:    "catch a specific exception type",
		BugType:        BugExceptionHandling,
		Enabled:        true,
		BaseConfidence: 0.6,
	}, `(?m)^\s*except\s*:`)

	register(Pattern{
		ID:             "eval_exec_usage",
		Languages:      pyLang,
		Description:    "eval/exec on data that may not be fully trusted",
		Severity:       SeverityCritical,
		Remediation:    "avoid eval/exec on external input; use ast.literal_eval or a safe parser",
		BugType:        BugCodeInjection,
		Enabled:        true,
		BaseConfidence: 0.6,
	}, `\b(eval|exec)\s*\(`)

	register(Pattern{
		ID:             "js_eval_usage",
		Languages:      jsLang,
		Description:    "eval() or new Function() on dynamic input",
		Severity:       SeverityCritical,
		Remediation:    "avoid eval/new Function; parse data structurally instead",
		BugType:        BugCodeInjection,
		Enabled:        true,
		BaseConfidence: 0.6,
	}, `\beval\s*\(|new\s+Function\s*\(`)

	register(Pattern{
		ID:             "path_join_unsanitized",
		AllLanguages:   true,
		Description:    "path built from unsanitized user input joined into a filesystem path",
		Severity:       SeverityHigh,
		Remediation:    "validate/normalize the path and confirm it stays within the intended root",
		BugType:        BugPathTraversal,
		Enabled:        true,
		BaseConfidence: 0.45,
	}, `(?i)(os\.path\.join|path\.join|filepath\.Join)\([^)]*\b(req|request|params|args|user_input|input)\b`)

	register(Pattern{
		ID:             "weak_hash",
		AllLanguages:   true,
		Description:    "use of a cryptographically broken hash for security-sensitive purposes",
		Severity:       SeverityHigh,
		Remediation:    "use SHA-256 or stronger; for passwords use bcrypt/argon2/scrypt",
		BugType:        BugWeakCrypto,
		Enabled:        true,
		BaseConfidence: 0.5,
	}, `(?i)\b(md5|sha1)\s*\(`)

	register(Pattern{
		ID:             "innerhtml_assignment",
		Languages:      jsLang,
		Description:    "assignment to innerHTML with non-literal content",
		Severity:       SeverityHigh,
		Remediation:    "use textContent, or sanitize the HTML before assignment",
		BugType:        BugCrossSiteScripting,
		Enabled:        true,
		BaseConfidence: 0.5,
	}, `\.innerHTML\s*=\s*[^"'\s]`)

	register(Pattern{
		ID:             "unclosed_file_open",
		Languages:      pyLang,
		Description:    "open() call not wrapped in a with-statement or explicitly closed",
		Severity:       SeverityMedium,
		Remediation:    "use a with-statement so the file handle is always closed",
		BugType:        BugResourceLeak,
		Enabled:        true,
		BaseConfidence: 0.4,
	}, `(?m)^.*=\s*open\(`)

	return r, errs
}
