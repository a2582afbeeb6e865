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
	"bytes"
	"net/http"
	"unicode/utf16"
	"unicode/utf8"
)

// DefaultMaxFileSize is the per-file size cap, above which a file is
// skipped with a FileTooLarge error rather than analyzed.
const DefaultMaxFileSize = 5 * 1024 * 1024

// looksBinary sniffs content for binary data: a NUL byte anywhere in
// the first 8KiB, or a detected MIME type that isn't one of the
// text-ish prefixes this detector understands, marks content as
// binary. This mirrors the two-signal approach (null-byte + MIME
// sniff) spec §4.9 calls for.
func looksBinary(content []byte) bool {
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	if bytes.IndexByte(sample, 0) != -1 {
		return true
	}

	mime := http.DetectContentType(sample)
	switch {
	case hasPrefixAny(mime, "text/", "application/json", "application/xml", "application/javascript"):
		return false
	default:
		return true
	}
}

func hasPrefixAny(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

// decodeText tries utf-8 (which also covers pure ascii), then utf-16
// when content starts with a byte-order mark, then latin-1. Because
// latin-1 maps every byte to a code point, that last step accepts any
// input: decodeText always returns ok = true and never applies a lossy
// fallback.
func decodeText(content []byte) (text string, ok bool) {
	if utf8.Valid(content) {
		return string(content), true
	}
	if isASCII(content) {
		return string(content), true
	}
	if s, valid := decodeUTF16(content); valid {
		return s, true
	}
	// latin-1 (ISO-8859-1): every byte maps directly to the same-valued
	// code point, so this "decoding" always succeeds syntactically; it's
	// tried last among the strict options because it never rejects
	// anything, which would otherwise mask a genuine UTF-8 file with a
	// stray invalid byte.
	return decodeLatin1(content), true
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c > 0x7F {
			return false
		}
	}
	return true
}

func decodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func decodeUTF16(b []byte) (string, bool) {
	if len(b) < 2 || len(b)%2 != 0 {
		return "", false
	}
	var bigEndian bool
	switch {
	case b[0] == 0xFF && b[1] == 0xFE:
		bigEndian = false
		b = b[2:]
	case b[0] == 0xFE && b[1] == 0xFF:
		bigEndian = true
		b = b[2:]
	default:
		return "", false
	}
	units := make([]uint16, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		if bigEndian {
			units[i/2] = uint16(b[i])<<8 | uint16(b[i+1])
		} else {
			units[i/2] = uint16(b[i+1])<<8 | uint16(b[i])
		}
	}
	decoded := utf16.Decode(units)
	return string(decoded), true
}
