// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package langtag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPath(t *testing.T) {
	cases := []struct {
		path string
		want Tag
	}{
		{"main.go", Go},
		{"services/trace/parser.py", Python},
		{"src/app.tsx", TypeScript},
		{"src/app.jsx", JavaScript},
		{"Main.java", Java},
		{"lib.rs", Rust},
		{"vector.hpp", Cpp},
		{"README.md", Unknown},
		{"noext", Unknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FromPath(c.path), c.path)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, tag := range All() {
		assert.NotEqual(t, "unknown", tag.String())
	}
	assert.Equal(t, "unknown", Unknown.String())
}

func TestFromExtensionAcceptsBareAndDotted(t *testing.T) {
	assert.Equal(t, Go, FromExtension("go"))
	assert.Equal(t, Go, FromExtension(".go"))
	assert.Equal(t, Unknown, FromExtension(".zzz"))
}
