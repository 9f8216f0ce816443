// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns chapter numbers and names into path elements for the
// static export.
package slug

import (
	"strings"
	"unicode"
)

// Generate lowercases s and keeps ASCII letters and digits. Every other run
// of characters becomes a single hyphen, and leading or trailing hyphens are
// dropped. The result never contains a path separator or a dot.
// Example: "Chapter 84: Machinery" → "chapter-84-machinery"
func Generate(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// ChapterPage returns the export path of a chapter page relative to the
// export root, or false when the chapter number has no usable slug.
func ChapterPage(chapter string) (string, bool) {
	s := Generate(chapter)
	if s == "" {
		return "", false
	}
	return "chapters/" + s + ".html", true
}
