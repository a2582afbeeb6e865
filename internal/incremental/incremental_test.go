// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package incremental

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/depsentry/internal/ast"
	"github.com/aleutian-oss/depsentry/internal/depgraph"
)

type notifierSpy struct{ called int }

func (n *notifierSpy) MarkModified() { n.called++ }

// writeRepo writes files under a fresh temp directory and returns it, so
// the parser can resolve imports between them on disk.
func writeRepo(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), content, 0o644))
	}
	return root
}

func TestApplyUpdatesAddedFileGetsEdges(t *testing.T) {
	g := depgraph.New(1)
	reg := ast.NewDefaultRegistry()
	spy := &notifierSpy{}
	updates := map[string][]byte{
		"b.py": []byte(""),
		"a.py": []byte("import b\n"),
	}
	a := New(g, reg, writeRepo(t, updates), WithNotifier(spy))

	result, err := a.ApplyUpdates(context.Background(), updates)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.py", "b.py"}, result.Affected)
	assert.True(t, g.HasNode("a.py"))
	edges := g.OutgoingEdges("a.py")
	require.Len(t, edges, 1)
	assert.Equal(t, "b.py", edges[0].Target)
	assert.Equal(t, 1, spy.called)
}

func TestApplyUpdatesModifiedFileReparsesEdges(t *testing.T) {
	g := depgraph.New(1)
	reg := ast.NewDefaultRegistry()
	initial := map[string][]byte{
		"a.py": []byte(""),
		"b.py": []byte(""),
		"c.py": []byte(""),
	}
	a := New(g, reg, writeRepo(t, initial))

	_, err := a.ApplyUpdates(context.Background(), initial)
	require.NoError(t, err)
	assert.Empty(t, g.OutgoingEdges("a.py"))

	result, err := a.ApplyUpdates(context.Background(), map[string][]byte{
		"a.py": []byte("import c\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, result.Affected)
	edges := g.OutgoingEdges("a.py")
	require.Len(t, edges, 1)
	assert.Equal(t, "c.py", edges[0].Target)
}

func TestApplyUpdatesUnchangedContentIsNoop(t *testing.T) {
	g := depgraph.New(1)
	reg := ast.NewDefaultRegistry()
	a := New(g, reg, "")

	content := []byte("import b\n")
	_, err := a.ApplyUpdates(context.Background(), map[string][]byte{"a.py": content, "b.py": []byte("")})
	require.NoError(t, err)

	result, err := a.ApplyUpdates(context.Background(), map[string][]byte{"a.py": content})
	require.NoError(t, err)
	assert.Empty(t, result.Affected)
}

func TestApplyUpdatesNilContentRemovesNode(t *testing.T) {
	g := depgraph.New(1)
	reg := ast.NewDefaultRegistry()
	a := New(g, reg, "")

	_, err := a.ApplyUpdates(context.Background(), map[string][]byte{"a.py": []byte("")})
	require.NoError(t, err)
	require.True(t, g.HasNode("a.py"))

	result, err := a.ApplyUpdates(context.Background(), map[string][]byte{"a.py": nil})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, result.Affected)
	assert.False(t, g.HasNode("a.py"))

	hash, ok := a.LastKnownHash("a.py")
	assert.Empty(t, hash)
	assert.False(t, ok)
}

func TestApplyUpdatesRemovingUnknownPathIsNoop(t *testing.T) {
	g := depgraph.New(1)
	a := New(g, ast.NewDefaultRegistry(), "")

	result, err := a.ApplyUpdates(context.Background(), map[string][]byte{"never-seen.py": nil})
	require.NoError(t, err)
	assert.Empty(t, result.Affected)
}

func TestApplyUpdatesImpactBoundaryIncludesDependentsAndDependencies(t *testing.T) {
	g := depgraph.New(1)
	initial := map[string][]byte{
		"a.py": []byte("import b\n"),
		"b.py": []byte("import c\n"),
		"c.py": []byte(""),
	}
	a := New(g, ast.NewDefaultRegistry(), writeRepo(t, initial))

	// a -> b -> c; modifying b should widen the boundary to a (dependent)
	// and c (dependency) even though only b itself is "affected".
	_, err := a.ApplyUpdates(context.Background(), initial)
	require.NoError(t, err)

	result, err := a.ApplyUpdates(context.Background(), map[string][]byte{"b.py": []byte("import c\nimport os\n")})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.py"}, result.Affected)
	assert.Subset(t, result.ImpactBoundary, []string{"a.py", "b.py", "c.py"})
}

func TestHistoryAccumulatesAcrossCalls(t *testing.T) {
	g := depgraph.New(1)
	a := New(g, ast.NewDefaultRegistry(), "")

	_, err := a.ApplyUpdates(context.Background(), map[string][]byte{"a.py": []byte("")})
	require.NoError(t, err)
	_, err = a.ApplyUpdates(context.Background(), map[string][]byte{"a.py": nil})
	require.NoError(t, err)

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, Added, history[0].Kind)
	assert.Equal(t, Removed, history[1].Kind)
}

func TestNewSeedsLastHashFromExistingGraph(t *testing.T) {
	g := depgraph.New(1)
	g.AddNode(depgraph.FileNode{Path: "seed.py", Hash: "abc123"}, 1)

	a := New(g, ast.NewDefaultRegistry(), "")
	hash, ok := a.LastKnownHash("seed.py")
	require.True(t, ok)
	assert.Equal(t, "abc123", hash)
}
