// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lookup

import (
	"unicode"
	"unicode/utf8"
)

// Segment is a run of text that either matched the highlight query or not.
// Concatenating the Text of all segments yields the original string.
type Segment struct {
	Text  string
	Match bool
}

// Highlight splits text into segments, marking every case-insensitive,
// non-overlapping occurrence of query from left to right. The query is
// compared literally; no character in it has special meaning.
func Highlight(text, query string) []Segment {
	if text == "" {
		return nil
	}
	if query == "" {
		return []Segment{{Text: text}}
	}

	var segs []Segment
	pos := 0
	for pos < len(text) {
		start, end := indexFold(text[pos:], query)
		if start < 0 {
			break
		}
		start += pos
		end += pos
		if start > pos {
			segs = append(segs, Segment{Text: text[pos:start]})
		}
		segs = append(segs, Segment{Text: text[start:end], Match: true})
		pos = end
	}
	if pos < len(text) {
		segs = append(segs, Segment{Text: text[pos:]})
	}
	return segs
}

// ContainsFold reports whether sub occurs in s under simple Unicode case
// folding. It agrees with Highlight on what counts as an occurrence.
func ContainsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	start, _ := indexFold(s, sub)
	return start >= 0
}

// indexFold returns the byte range of the first case-insensitive occurrence
// of a non-empty sub in s, or (-1, -1). The range is measured in s, whose
// folded runes may differ in width from those of sub.
func indexFold(s, sub string) (int, int) {
	for i := 0; i < len(s); {
		if n, ok := prefixFold(s[i:], sub); ok {
			return i, i + n
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

// prefixFold reports whether s starts with sub under case folding and
// returns the number of bytes of s that the match covers.
func prefixFold(s, sub string) (int, bool) {
	n := 0
	for sub != "" {
		if s == "" {
			return 0, false
		}
		sr, ssize := utf8.DecodeRuneInString(s)
		qr, qsize := utf8.DecodeRuneInString(sub)
		if !equalFoldRune(sr, qr) {
			return 0, false
		}
		s = s[ssize:]
		sub = sub[qsize:]
		n += ssize
	}
	return n, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
