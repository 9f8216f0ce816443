// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lookup

import (
	"strings"

	"hslookup/internal/models"
)

// Apply returns the working subset for a state, in collection order.
// With neither a query nor a chapter it returns the whole collection.
func Apply(c *Collection, s State) []*models.Record {
	switch {
	case strings.TrimSpace(s.Query) != "":
		return filter(c.records, func(r *models.Record) bool { return Matches(r, s.Query) })
	case s.Chapter != "":
		return ByChapter(c, s.Chapter)
	default:
		return c.records
	}
}

// ByChapter returns the records of one chapter. An unknown chapter yields
// an empty subset.
func ByChapter(c *Collection, chapter string) []*models.Record {
	return filter(c.records, func(r *models.Record) bool { return r.ChapterNumber == chapter })
}

// Matches reports whether a record matches a free-text query. Codes match
// as exact substrings; short description, raw description and chapter name
// match case-insensitively.
func Matches(r *models.Record, query string) bool {
	if strings.Contains(r.Code, query) || strings.Contains(r.FormattedCode, query) {
		return true
	}
	return ContainsFold(r.DescriptionShort, query) ||
		ContainsFold(r.DescriptionRaw, query) ||
		ContainsFold(r.ChapterName, query)
}

func filter(records []*models.Record, keep func(*models.Record) bool) []*models.Record {
	out := make([]*models.Record, 0)
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
