// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPythonParserResolvesDottedImport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/util.py", "")

	p := NewPythonParser()
	deps, err := p.Parse(context.Background(), root, "main.py", []byte("import pkg.util\n"))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "pkg/util.py", deps[0].TargetPath)
	assert.True(t, deps[0].Metadata.Verified)
}

func TestPythonParserResolvesFromImport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/util.py", "")

	p := NewPythonParser()
	deps, err := p.Parse(context.Background(), root, "main.py", []byte("from pkg import util\n"))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "pkg/util.py", deps[0].TargetPath)
}

func TestPythonParserResolvesLeveledRelativeImport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/sub/sibling.py", "")
	writeFile(t, root, "pkg/sub/mod.py", "")

	p := NewPythonParser()
	deps, err := p.Parse(context.Background(), root, "pkg/sub/mod.py", []byte("from . import sibling\n"))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "pkg/sub/sibling.py", deps[0].TargetPath)
}

func TestPythonParserResolvesParentLevelRelativeImport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/cousin.py", "")
	writeFile(t, root, "pkg/sub/mod.py", "")

	p := NewPythonParser()
	deps, err := p.Parse(context.Background(), root, "pkg/sub/mod.py", []byte("from .. import cousin\n"))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "pkg/cousin.py", deps[0].TargetPath)
}

func TestPythonParserDropsStdlibImportsSilently(t *testing.T) {
	root := t.TempDir()
	p := NewPythonParser()

	deps, err := p.Parse(context.Background(), root, "main.py", []byte("import os\nimport sys\n"))
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestPythonParserDropsUnresolvedImportWithoutError(t *testing.T) {
	root := t.TempDir()
	p := NewPythonParser()

	deps, err := p.Parse(context.Background(), root, "main.py", []byte("import totally_missing_pkg\n"))
	require.NoError(t, err)
	assert.Empty(t, deps)
}
