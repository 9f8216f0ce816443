// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lookup

import (
	"slices"
	"strconv"
	"strings"
	"unicode"

	"hslookup/internal/models"
)

// Section groups the chapters of one classification section.
type Section struct {
	Number   string    `json:"number"`
	Name     string    `json:"name"`
	Count    int       `json:"count"`
	Chapters []Chapter `json:"chapters"`
}

// Chapter is one chapter of a section with its record count.
type Chapter struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// Label is the compact navigation label, e.g. "SI: LIVE ANIMALS".
func (s Section) Label() string {
	name, _, _ := strings.Cut(s.Name, ";")
	return strings.Replace(s.Number, "SECTION ", "S", 1) + ": " + name
}

// ShortName returns the chapter name cut to 30 characters.
func (c Chapter) ShortName() string {
	const max = 30
	runes := []rune(c.Name)
	if len(runes) <= max {
		return c.Name
	}
	return string(runes[:max]) + "..."
}

// groupSections builds the navigation tree. Sections are ordered by the
// number in their identifier, chapters numerically; ties keep the order in
// which they first appear in the collection.
func groupSections(records []*models.Record) []Section {
	var sections []Section
	sectionIdx := make(map[string]int)
	chapterIdx := make(map[string]int)

	for _, r := range records {
		si, ok := sectionIdx[r.SectionNumber]
		if !ok {
			si = len(sections)
			sectionIdx[r.SectionNumber] = si
			sections = append(sections, Section{Number: r.SectionNumber, Name: r.SectionName})
		}
		sec := &sections[si]
		sec.Count++

		ci, ok := chapterIdx[r.ChapterNumber]
		if !ok {
			ci = len(sec.Chapters)
			chapterIdx[r.ChapterNumber] = ci
			sec.Chapters = append(sec.Chapters, Chapter{Number: r.ChapterNumber, Name: r.ChapterName})
		}
		sec.Chapters[ci].Count++
	}

	slices.SortStableFunc(sections, func(a, b Section) int {
		return sectionOrdinal(a.Number) - sectionOrdinal(b.Number)
	})
	for i := range sections {
		slices.SortStableFunc(sections[i].Chapters, func(a, b Chapter) int {
			return leadingInt(a.Number) - leadingInt(b.Number)
		})
	}
	return sections
}

// sectionOrdinal extracts the number in a section identifier: the first run
// of decimal digits, else a trailing Roman numeral ("SECTION XVI" → 16),
// else 0.
func sectionOrdinal(id string) int {
	if n, ok := firstDigits(id); ok {
		return n
	}
	fields := strings.Fields(id)
	if len(fields) == 0 {
		return 0
	}
	return romanValue(fields[len(fields)-1])
}

func firstDigits(s string) (int, bool) {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// leadingInt parses the leading integer of s the way a lenient parseInt
// would; non-numeric input sorts as 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

var romanDigits = map[byte]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}

// romanValue converts a Roman numeral; anything else is 0.
func romanValue(s string) int {
	s = strings.ToUpper(s)
	total := 0
	for i := 0; i < len(s); i++ {
		v, ok := romanDigits[s[i]]
		if !ok {
			return 0
		}
		if i+1 < len(s) && romanDigits[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	return total
}
