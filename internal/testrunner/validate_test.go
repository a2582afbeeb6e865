// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package testrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePatch_RestoresOriginalContentRegardlessOfOutcome(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "widget.go")
	original := "package widget\n\nfunc Widget() int { return 1 }\n"
	writeFile(t, target, original)

	r := New(DefaultOptions())
	result, err := ValidatePatch(context.Background(), r, target, nil, []byte("package widget\n\nfunc Widget() int { return 2 }\n"), nil)
	if err != nil {
		t.Fatalf("ValidatePatch: %v", err)
	}
	if result.Inconsistent {
		t.Fatal("Inconsistent = true, want false")
	}

	got, readErr := os.ReadFile(target)
	if readErr != nil {
		t.Fatalf("ReadFile: %v", readErr)
	}
	if string(got) != original {
		t.Fatalf("target content = %q, want original content restored", got)
	}
}

func TestValidatePatch_NoTestPathsCountsAsPassed(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "widget.go")
	writeFile(t, target, "package widget\n")

	r := New(DefaultOptions())
	result, err := ValidatePatch(context.Background(), r, target, nil, []byte("package widget\n// patched\n"), nil)
	if err != nil {
		t.Fatalf("ValidatePatch: %v", err)
	}
	if !result.Passed {
		t.Fatalf("Passed = false, want true when there are no tests to fail")
	}
}
