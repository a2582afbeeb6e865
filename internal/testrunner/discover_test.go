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
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll(%s): %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestIsTestFile_PythonConventions(t *testing.T) {
	cases := map[string]bool{
		"test_widget.py": true,
		"widget_test.py": true,
		"widget.py":      false,
	}
	for name, want := range cases {
		if got := isTestFile(name); got != want {
			t.Errorf("isTestFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestIsTestFile_GoAndJSConventions(t *testing.T) {
	cases := map[string]bool{
		"widget_test.go": true,
		"widget.go":      false,
		"widget.test.js": true,
		"widget.spec.ts": true,
		"widget.js":      false,
	}
	for name, want := range cases {
		if got := isTestFile(name); got != want {
			t.Errorf("isTestFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDiscoverTests_SkipsVendorAndDotDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pkg", "widget_test.go"), "package pkg\n")
	writeFile(t, filepath.Join(root, "vendor", "thirdparty", "thirdparty_test.go"), "package thirdparty\n")
	writeFile(t, filepath.Join(root, ".git", "hooks", "pre_commit_test.py"), "# not a real test\n")

	found, err := DiscoverTests(root)
	if err != nil {
		t.Fatalf("DiscoverTests: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found = %v, want exactly the pkg test", found)
	}
	want := filepath.Join(root, "pkg", "widget_test.go")
	if found[0] != want {
		t.Errorf("found[0] = %q, want %q", found[0], want)
	}
}

func TestFindRelatedTests_SameDirectoryAndTestsSubdir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "widget.py"), "def widget(): pass\n")
	writeFile(t, filepath.Join(root, "test_widget.py"), "def test_widget(): pass\n")
	writeFile(t, filepath.Join(root, "tests", "widget_test.py"), "def test_widget_extra(): pass\n")
	writeFile(t, filepath.Join(root, "other.py"), "x = 1\n")

	related, err := FindRelatedTests(filepath.Join(root, "widget.py"))
	if err != nil {
		t.Fatalf("FindRelatedTests: %v", err)
	}
	if len(related) != 2 {
		t.Fatalf("related = %v, want 2 matches", related)
	}
}
