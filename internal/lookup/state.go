// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lookup

import "strings"

const (
	// DefaultPageSize is the display limit after any filter change.
	DefaultPageSize = 100

	// DefaultIncrement is how much LoadMore grows the display limit.
	DefaultIncrement = 100
)

// Paging configures the display limit rules.
type Paging struct {
	PageSize  int
	Increment int
}

// DefaultPaging returns the reference page size and increment.
func DefaultPaging() Paging {
	return Paging{PageSize: DefaultPageSize, Increment: DefaultIncrement}
}

// normalize fills unset or invalid values with the defaults.
func (p Paging) normalize() Paging {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.Increment <= 0 {
		p.Increment = DefaultIncrement
	}
	return p
}

// State is one visitor's filter state. It is a value: every operation
// returns a new State and leaves the receiver untouched.
//
// Query and Chapter are mutually exclusive: a non-empty query clears the
// chapter and choosing a chapter clears the query.
type State struct {
	Query    string `json:"q,omitempty"`
	Chapter  string `json:"chapter,omitempty"`
	Limit    int    `json:"limit"`
	Selected string `json:"selected,omitempty"`
}

// Initial returns the state of a fresh session: everything, first page.
func Initial(p Paging) State {
	return State{Limit: p.normalize().PageSize}
}

// FilterByChapter narrows to one chapter and drops any query.
func (s State) FilterByChapter(chapter string, p Paging) State {
	s.Query = ""
	s.Chapter = chapter
	s.Limit = p.normalize().PageSize
	return s
}

// Search applies a free-text query. A blank query keeps the active chapter
// (if any); a non-blank one replaces it.
func (s State) Search(query string, p Paging) State {
	if strings.TrimSpace(query) == "" {
		s.Query = ""
	} else {
		s.Query = query
		s.Chapter = ""
	}
	s.Limit = p.normalize().PageSize
	return s
}

// Clear drops the query and chapter. The selected record stays selected.
func (s State) Clear(p Paging) State {
	s.Query = ""
	s.Chapter = ""
	s.Limit = p.normalize().PageSize
	return s
}

// LoadMore raises the display limit by one increment.
func (s State) LoadMore(p Paging) State {
	p = p.normalize()
	if s.Limit <= 0 {
		s.Limit = p.PageSize
	}
	s.Limit += p.Increment
	return s
}

// Select marks a record as selected. Unknown codes leave the state as is.
func (s State) Select(c *Collection, code string) State {
	if _, ok := c.Get(code); !ok {
		return s
	}
	s.Selected = code
	return s
}

// Deselect closes the detail panel.
func (s State) Deselect() State {
	s.Selected = ""
	return s
}

// Sanitize repairs a state read from an untrusted store: a non-positive
// limit becomes the page size, and a query wins over a chapter.
func (s State) Sanitize(p Paging) State {
	p = p.normalize()
	if s.Limit <= 0 {
		s.Limit = p.PageSize
	}
	if strings.TrimSpace(s.Query) == "" {
		s.Query = ""
	} else {
		s.Chapter = ""
	}
	return s
}
