// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aleutian-oss/depsentry/internal/langtag"
)

func TestDefaultRegistryHasNoEntryForUnsupportedLanguages(t *testing.T) {
	r := NewDefaultRegistry()

	for _, tag := range []langtag.Tag{langtag.Python, langtag.JavaScript, langtag.TypeScript, langtag.Go} {
		_, ok := r.For(tag)
		assert.True(t, ok, tag.String())
	}
	for _, tag := range []langtag.Tag{langtag.Java, langtag.Cpp, langtag.Rust, langtag.Unknown} {
		_, ok := r.For(tag)
		assert.False(t, ok, tag.String())
	}
}
