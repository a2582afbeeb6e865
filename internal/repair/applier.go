// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repair

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// isUnifiedDiff reports whether patchDiff looks like a unified diff
// (carries "---"/"+++" file headers and at least one "@@" hunk header)
// rather than a full-file replacement body.
func isUnifiedDiff(patchDiff string) bool {
	hasFileHeader := strings.Contains(patchDiff, "--- ") && strings.Contains(patchDiff, "+++ ")
	hasHunkHeader := strings.Contains(patchDiff, "\n@@ ") || strings.HasPrefix(patchDiff, "@@ ")
	return hasFileHeader && hasHunkHeader
}

// applyPatch computes the new file content for patch against oldContent.
// A unified-diff PatchDiff is parsed and applied hunk by hunk; anything
// else is treated as a full-file replacement, matching the prefix
// heuristic spec §4.10 calls for.
func applyPatch(oldContent string, patch Patch) (string, error) {
	if !isUnifiedDiff(patch.PatchDiff) {
		return patch.PatchDiff, nil
	}
	return applyUnifiedDiff(oldContent, patch.PatchDiff)
}

// applyUnifiedDiff applies a single-file unified diff to oldContent
// using go-diff's hunk parser, rather than shelling out to `patch`.
func applyUnifiedDiff(oldContent, patchDiff string) (string, error) {
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(patchDiff))
	if err != nil {
		return "", fmt.Errorf("repair: parsing patch diff: %w", err)
	}
	if len(fileDiffs) == 0 {
		return oldContent, nil
	}

	oldLines := splitKeepEmpty(oldContent)
	var out []string
	cursor := 0 // 0-based index into oldLines already copied through

	for _, fd := range fileDiffs {
		for _, h := range fd.Hunks {
			start := int(h.OrigStartLine) - 1
			if start < cursor {
				return "", fmt.Errorf("repair: overlapping or out-of-order hunks in patch")
			}
			// copy untouched lines up to the hunk
			out = append(out, oldLines[cursor:start]...)
			cursor = start

			bodyLines := strings.Split(strings.TrimSuffix(string(h.Body), "\n"), "\n")
			for _, line := range bodyLines {
				if line == "" {
					continue
				}
				switch line[0] {
				case ' ':
					out = append(out, line[1:])
					cursor++
				case '-':
					cursor++
				case '+':
					out = append(out, line[1:])
				case '\\':
					// "\ No newline at end of file"
				default:
					out = append(out, line)
					cursor++
				}
			}
		}
	}
	out = append(out, oldLines[cursor:]...)

	return strings.Join(out, "\n"), nil
}

// splitKeepEmpty splits content into lines without discarding a
// trailing empty element, so line-count bookkeeping against 1-based
// diff line numbers stays exact.
func splitKeepEmpty(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
