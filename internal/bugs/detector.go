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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aleutian-oss/depsentry/internal/errs"
	"github.com/aleutian-oss/depsentry/internal/graphbuild"
	"github.com/aleutian-oss/depsentry/internal/langtag"
	"github.com/aleutian-oss/depsentry/internal/workerpool"
)

var detectorTracer = otel.Tracer("depsentry.bugs")

// contextRadiusBytes is the amount of surrounding source recorded as a
// match's context, per spec §4.9's "±200-byte surrounding context".
const contextRadiusBytes = 200

// RelationshipContext is the subset of the Relationship Service the
// detector's cross-file verification strategy needs. Declared as a
// narrow interface (rather than importing internal/relationship
// directly) so the detector has no hard dependency on the façade's
// full surface or its AnalyzeCodebase lifecycle.
type RelationshipContext interface {
	GetFileDependents(path string, transitive bool) ([]string, error)
}

// DetectorOptions configures a Detector.
type DetectorOptions struct {
	MaxFileSize  int
	Threshold    float64
	MaxWorkers   int
	Logger       *slog.Logger
	Relationship RelationshipContext
}

// DefaultDetectorOptions returns the Detector's defaults.
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		MaxFileSize: DefaultMaxFileSize,
		Threshold:   DefaultFalsePositiveThreshold,
		MaxWorkers:  8,
	}
}

// DetectorOption is a functional option for NewDetector.
type DetectorOption func(*DetectorOptions)

func WithMaxFileSize(n int) DetectorOption   { return func(o *DetectorOptions) { o.MaxFileSize = n } }
func WithThreshold(t float64) DetectorOption { return func(o *DetectorOptions) { o.Threshold = t } }
func WithMaxWorkers(n int) DetectorOption    { return func(o *DetectorOptions) { o.MaxWorkers = n } }
func WithLogger(l *slog.Logger) DetectorOption {
	return func(o *DetectorOptions) { o.Logger = l }
}
func WithRelationship(r RelationshipContext) DetectorOption {
	return func(o *DetectorOptions) { o.Relationship = r }
}

// Detector is the Bug Detector: pattern registry + syntactic pass +
// verification strategies, combined behind AnalyzeFile/AnalyzeFolder.
type Detector struct {
	options    DetectorOptions
	patterns   *PatternRegistry
	strategies map[string]VerificationStrategy
	logger     *slog.Logger
}

// NewDetector builds a Detector using the default pattern set and
// verification strategies. Any pattern that failed to compile is
// returned alongside the Detector as a RegexError-kind record, per
// spec §4.9 — callers that care can surface it; analysis proceeds with
// every pattern that did compile.
func NewDetector(opts ...DetectorOption) (*Detector, []error) {
	options := DefaultDetectorOptions()
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	patterns, regexErrs := DefaultPatternRegistry()
	badPatterns := make([]error, 0, len(regexErrs))
	for _, e := range regexErrs {
		badPatterns = append(badPatterns, errs.Wrap(errs.KindRegexError, errs.SeverityLow, "bug pattern failed to compile", e))
	}

	return &Detector{
		options:    options,
		patterns:   patterns,
		strategies: DefaultVerificationStrategies(),
		logger:     logger,
	}, badPatterns
}

// AnalyzeFile runs the three-pass pipeline against content, the bytes
// of path supplied by the caller. It has no error return: every
// per-file failure is reported inside the returned
// FileAnalysisResult, per spec §4.9/§7's "absence of applicable
// patterns is explicit" propagation policy.
func (d *Detector) AnalyzeFile(ctx context.Context, path string, content []byte) *FileAnalysisResult {
	ctx, span := detectorTracer.Start(ctx, "Detector.AnalyzeFile", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	result := &FileAnalysisResult{FilePath: path}

	if len(content) > d.options.MaxFileSize {
		result.Errors = append(result.Errors, FileError{
			Message:     fmt.Sprintf("file exceeds max size %d bytes", d.options.MaxFileSize),
			Severity:    SeverityMedium,
			Kind:        string(errs.KindFileTooLarge),
			File:        path,
			Recoverable: true,
			Suggestion:  "raise max_file_size or exclude this file",
		})
		return result
	}

	if looksBinary(content) {
		result.Errors = append(result.Errors, FileError{
			Message:     "file appears to be binary",
			Severity:    SeverityLow,
			Kind:        string(errs.KindBinaryFile),
			File:        path,
			Recoverable: true,
		})
		return result
	}

	text, ok := decodeText(content)
	if !ok {
		result.Errors = append(result.Errors, FileError{
			Message:     "could not decode file under utf-8, latin-1, utf-16, or ascii",
			Severity:    SeverityMedium,
			Kind:        string(errs.KindEncodingError),
			File:        path,
			Recoverable: true,
		})
		return result
	}

	lang := langtag.FromPath(path)
	lines := strings.Split(text, "\n")

	candidates := d.runPatternPass(path, lang, text, lines)

	findings, synErr := runSyntacticPass(ctx, lang, content)
	if synErr != nil {
		result.Errors = append(result.Errors, FileError{
			Message:     "syntactic pass failed: " + synErr.Error(),
			Severity:    SeverityLow,
			Kind:        string(errs.KindParseError),
			File:        path,
			Recoverable: true,
		})
	}
	for _, f := range findings {
		candidates = append(candidates, d.fromSyntacticFinding(path, f))
	}

	dependents := -1
	if d.options.Relationship != nil {
		if deps, err := d.options.Relationship.GetFileDependents(path, true); err == nil {
			dependents = len(deps)
		}
	}
	hasParamQueries := parameterizedQueryHint.MatchString(text)

	survivors := make([]DetectedBug, 0, len(candidates))
	for _, bug := range candidates {
		bug := bug
		verified := d.verify(&bug, lines, dependents, hasParamQueries)
		if verified.FalsePositiveProbability < d.options.Threshold {
			survivors = append(survivors, verified)
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.Severity.Weight() != b.Severity.Weight() {
			return a.Severity.Weight() > b.Severity.Weight()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.LineNumber < b.LineNumber
	})

	result.Bugs = survivors
	result.Success = true
	return result
}

func (d *Detector) runPatternPass(path string, lang langtag.Tag, text string, lines []string) []DetectedBug {
	var out []DetectedBug
	for _, p := range d.patterns.For(lang) {
		locs := p.Regex.FindAllStringIndex(text, -1)
		for _, loc := range locs {
			start, end := loc[0], loc[1]
			line := 1 + strings.Count(text[:start], "\n")
			matched := text[start:end]
			ctxStart := start - contextRadiusBytes
			if ctxStart < 0 {
				ctxStart = 0
			}
			ctxEnd := end + contextRadiusBytes
			if ctxEnd > len(text) {
				ctxEnd = len(text)
			}
			snippet := ""
			if line-1 >= 0 && line-1 < len(lines) {
				snippet = lines[line-1]
			}
			out = append(out, DetectedBug{
				BugID:               bugID(path, p.ID, line, len(out)),
				FilePath:            path,
				LineNumber:          line,
				PatternID:           p.ID,
				BugType:             p.BugType,
				Severity:            p.Severity,
				Confidence:          p.BaseConfidence,
				Remediation:         p.Remediation,
				CodeSnippet:         snippet,
				MatchedText:         matched,
				Context:             map[string]string{"surrounding": text[ctxStart:ctxEnd]},
				VerificationResults: map[string]VerificationResult{},
			})
		}
	}
	return out
}

func (d *Detector) fromSyntacticFinding(path string, f syntacticFinding) DetectedBug {
	return DetectedBug{
		BugID:               bugID(path, "ast_"+f.kind, f.line, 0),
		FilePath:            path,
		LineNumber:          f.line,
		PatternID:           "ast_" + f.kind,
		BugType:             f.bugType,
		Severity:            f.severity,
		Confidence:          SyntacticDefaultConfidence,
		CodeSnippet:         f.snippet,
		MatchedText:         f.matched,
		Context:             map[string]string{},
		VerificationResults: map[string]VerificationResult{},
	}
}

// verify runs every registered strategy against bug, multiplying
// confidence by each confidence_factor and keeping the maximum
// false_positive_probability, per spec §4.9.
func (d *Detector) verify(bug *DetectedBug, lines []string, dependents int, hasParamQueries bool) DetectedBug {
	vc := &VerifyContext{Bug: bug, Lines: lines, DependentsCount: dependents, HasParamQueries: hasParamQueries}

	confidence := bug.Confidence
	var maxFP float64
	results := make(map[string]VerificationResult, len(d.strategies))

	names := make([]string, 0, len(d.strategies))
	for name := range d.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := d.strategies[name](vc)
		results[name] = r
		if r.ConfidenceFactor > 0 {
			confidence *= r.ConfidenceFactor
		}
		if r.FalsePositiveProbability > maxFP {
			maxFP = r.FalsePositiveProbability
		}
	}

	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	out := *bug
	out.Confidence = confidence
	out.FalsePositiveProbability = maxFP
	out.VerificationResults = results
	return out
}

func bugID(path, patternID string, line, seq int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d:%d", path, patternID, line, seq)))
	return hex.EncodeToString(sum[:])[:16]
}

// AnalyzeFolder walks root per include/exclude globs, dispatches
// per-file analysis across a bounded worker pool, and aggregates the
// results. progress, if non-nil, is called after each file completes
// with the number of files processed so far.
func (d *Detector) AnalyzeFolder(ctx context.Context, root string, include, exclude []string, progress func(done, total int)) (*FolderResult, error) {
	ctx, span := detectorTracer.Start(ctx, "Detector.AnalyzeFolder", trace.WithAttributes(attribute.String("root", root)))
	defer span.End()

	if _, err := os.Stat(root); err != nil {
		return nil, errs.Wrap(errs.KindFolderNotFound, errs.SeverityCritical, "bugs: root directory does not exist", err).WithFile(root, 0)
	}

	paths, err := graphbuild.Walk(root, include, exclude)
	if err != nil {
		return nil, err
	}

	fileResults := make([]*FileAnalysisResult, len(paths))
	var done atomic.Int64
	workerpool.Run(ctx, len(paths), d.options.MaxWorkers, func(ctx context.Context, i int) error {
		rel := paths[i]
		content, readErr := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if readErr != nil {
			fileResults[i] = &FileAnalysisResult{
				FilePath: rel,
				Errors: []FileError{{
					Message:  readErr.Error(),
					Severity: SeverityMedium,
					Kind:     string(errs.KindPermissionError),
					File:     rel,
				}},
			}
		} else {
			fileResults[i] = d.AnalyzeFile(ctx, rel, content)
		}
		if progress != nil {
			progress(int(done.Add(1)), len(paths))
		}
		return nil
	})

	agg := &FolderResult{
		BugsByFile:   make(map[string][]DetectedBug),
		ErrorsByFile: make(map[string][]FileError),
	}
	anyFailure := false
	for _, r := range fileResults {
		if r == nil {
			continue
		}
		agg.FilesAnalyzed++
		if len(r.Bugs) > 0 {
			agg.BugsByFile[r.FilePath] = r.Bugs
			agg.TotalBugs += len(r.Bugs)
			agg.FilesWithBugs++
		}
		if len(r.Errors) > 0 {
			agg.ErrorsByFile[r.FilePath] = r.Errors
			agg.FilesWithErrors++
			anyFailure = true
			if !r.Success {
				agg.SkippedFiles = append(agg.SkippedFiles, r.FilePath)
			}
		}
	}
	agg.PartialSuccess = anyFailure && agg.FilesWithErrors < agg.FilesAnalyzed
	sort.Strings(agg.SkippedFiles)

	span.SetAttributes(attribute.Int("files_analyzed", agg.FilesAnalyzed), attribute.Int("total_bugs", agg.TotalBugs))
	return agg, nil
}
