// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package lookup holds the HS code lookup table: an immutable, ordered
// collection of records and the pure filter, search, paging, highlight and
// grouping rules applied to it. Nothing in this package performs I/O; the
// HTTP layer owns the mutable per-visitor State and passes it in.
package lookup

import (
	"errors"
	"fmt"

	"hslookup/internal/models"
)

// ErrNotFound is returned when a code is not present in the collection.
var ErrNotFound = errors.New("lookup: code not found")

// Collection is the read-only set of records in load order, indexed by code.
type Collection struct {
	records  []*models.Record
	byCode   map[string]*models.Record
	sections []Section
	stats    Stats
}

// NewCollection validates records and builds a collection preserving their
// order. It rejects duplicate codes, broken prefix chains, and chapters that
// appear under more than one section.
func NewCollection(records []models.Record) (*Collection, error) {
	c := &Collection{
		records: make([]*models.Record, 0, len(records)),
		byCode:  make(map[string]*models.Record, len(records)),
	}

	chapterSection := make(map[string]string)
	for i := range records {
		r := records[i]
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byCode[r.Code]; dup {
			return nil, fmt.Errorf("duplicate code %s", r.Code)
		}
		if sec, ok := chapterSection[r.ChapterNumber]; ok && sec != r.SectionNumber {
			return nil, fmt.Errorf("chapter %s belongs to both %q and %q (code %s)",
				r.ChapterNumber, sec, r.SectionNumber, r.Code)
		}
		chapterSection[r.ChapterNumber] = r.SectionNumber

		c.records = append(c.records, &r)
		c.byCode[r.Code] = &r
	}

	c.sections = groupSections(c.records)
	c.stats = Stats{
		Codes:    len(c.records),
		Chapters: len(chapterSection),
		Sections: len(c.sections),
	}
	return c, nil
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.records)
}

// All returns every record in collection order. The slice must not be modified.
func (c *Collection) All() []*models.Record {
	return c.records
}

// Get returns the record with the given code.
func (c *Collection) Get(code string) (*models.Record, bool) {
	r, ok := c.byCode[code]
	return r, ok
}

// Find is Get with an error for callers that propagate failures.
func (c *Collection) Find(code string) (*models.Record, error) {
	r, ok := c.byCode[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return r, nil
}

// Sections returns the navigation grouping computed at load time.
func (c *Collection) Sections() []Section {
	return c.sections
}

// Stats returns the headline counts of the collection.
func (c *Collection) Stats() Stats {
	return c.stats
}

// Stats holds the counts shown in the page header.
type Stats struct {
	Codes    int `json:"codes"`
	Chapters int `json:"chapters"`
	Sections int `json:"sections"`
}
