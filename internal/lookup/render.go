// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lookup

import "hslookup/internal/models"

// Row is one visible table row with its highlighted descriptions.
type Row struct {
	Record   *models.Record
	Short    []Segment
	Raw      []Segment
	Selected bool
}

// Page is the visible part of a working subset.
type Page struct {
	Rows      []Row
	Visible   int // min(limit, Total)
	Total     int // size of the working subset
	Remaining int // Total - Visible
	Query     string
}

// Empty reports whether the working subset had no records, in which case
// the empty-result indicator is shown instead of rows.
func (p Page) Empty() bool {
	return p.Total == 0
}

// HasMore reports whether a load-more control should be offered.
func (p Page) HasMore() bool {
	return p.Remaining > 0
}

// Render cuts the first limit records of subset into rows, highlighting
// occurrences of highlight in the short and raw descriptions.
func Render(subset []*models.Record, limit int, highlight string, selected string) Page {
	visible := min(max(limit, 0), len(subset))
	p := Page{
		Rows:      make([]Row, 0, visible),
		Visible:   visible,
		Total:     len(subset),
		Remaining: len(subset) - visible,
		Query:     highlight,
	}
	for _, r := range subset[:visible] {
		p.Rows = append(p.Rows, Row{
			Record:   r,
			Short:    Highlight(r.DescriptionShort, highlight),
			Raw:      Highlight(r.DescriptionRaw, highlight),
			Selected: selected != "" && r.Code == selected,
		})
	}
	return p
}

// View is everything the UI shows for one state: the visible page, the
// selected record (if any), and the active filters.
type View struct {
	State    State
	Page     Page
	Selected *models.Record
}

// Evaluate applies a state to a collection and renders the result.
func Evaluate(c *Collection, s State) View {
	subset := Apply(c, s)
	v := View{
		State: s,
		Page:  Render(subset, s.Limit, s.Query, s.Selected),
	}
	if s.Selected != "" {
		if r, ok := c.Get(s.Selected); ok {
			v.Selected = r
		}
	}
	return v
}
