// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// BreadcrumbSeparator splits DescriptionLong into its hierarchy path.
const BreadcrumbSeparator = " > "

// Record is one HS10 classification entry. Records are immutable once a
// collection has been loaded.
type Record struct {
	Code             string `json:"hts10"`
	FormattedCode    string `json:"hts10_formatted"`
	DescriptionShort string `json:"description_short"`
	DescriptionRaw   string `json:"description_raw"`
	DescriptionLong  string `json:"description_long"`
	SectionNumber    string `json:"section_number"`
	SectionName      string `json:"section_name"`
	ChapterNumber    string `json:"chapter_number"`
	ChapterName      string `json:"chapter_name"`
	GeneralRate      string `json:"general_rate,omitempty"`
	SpecialRate      string `json:"special_rate,omitempty"`
	OtherRate        string `json:"other_rate,omitempty"`
	Units            string `json:"units,omitempty"`
	HS2              string `json:"hs2"`
	HS4              string `json:"hs4"`
	HS6              string `json:"hs6"`
	HS8              string `json:"hs8"`
}

// requiredKeys must be present in every record object of the lookup file.
// hts10 is absent from the list because the object key supplies it.
var requiredKeys = []string{
	"hts10_formatted", "description_short", "description_raw", "description_long",
	"section_number", "section_name", "chapter_number", "chapter_name",
	"hs2", "hs4", "hs6", "hs8",
}

// UnmarshalJSON decodes the lookup-file form of a record. Chapter numbers
// arrive as JSON numbers in the published file, optional rates as null.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("missing key %q", key)
		}
	}

	fields := []struct {
		key string
		dst *string
	}{
		{"hts10", &r.Code},
		{"hts10_formatted", &r.FormattedCode},
		{"description_short", &r.DescriptionShort},
		{"description_raw", &r.DescriptionRaw},
		{"description_long", &r.DescriptionLong},
		{"section_number", &r.SectionNumber},
		{"section_name", &r.SectionName},
		{"chapter_number", &r.ChapterNumber},
		{"chapter_name", &r.ChapterName},
		{"general_rate", &r.GeneralRate},
		{"special_rate", &r.SpecialRate},
		{"other_rate", &r.OtherRate},
		{"units", &r.Units},
		{"hs2", &r.HS2},
		{"hs4", &r.HS4},
		{"hs6", &r.HS6},
		{"hs8", &r.HS8},
	}
	for _, f := range fields {
		v, err := scalarString(raw[f.key])
		if err != nil {
			return fmt.Errorf("key %q: %w", f.key, err)
		}
		*f.dst = v
	}
	return nil
}

// scalarString accepts a JSON string, number, or null and returns its text.
func scalarString(msg json.RawMessage) (string, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
		return "", nil
	}
	switch msg[0] {
	case '"':
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return "", err
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(msg, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("expected string or number, got %s", msg)
	}
}

// Validate checks the per-record invariants: a key is present and the
// hs2 → hs4 → hs6 → hs8 → code prefix chain holds.
func (r *Record) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("record has no code")
	}
	if r.ChapterNumber == "" {
		return fmt.Errorf("record %s: no chapter number", r.Code)
	}
	if r.SectionNumber == "" {
		return fmt.Errorf("record %s: no section number", r.Code)
	}
	chain := []struct{ name, value string }{
		{"hs2", r.HS2}, {"hs4", r.HS4}, {"hs6", r.HS6}, {"hs8", r.HS8}, {"code", r.Code},
	}
	for i := 1; i < len(chain); i++ {
		if !strings.HasPrefix(chain[i].value, chain[i-1].value) {
			return fmt.Errorf("record %s: %s %q is not a prefix of %s %q",
				r.Code, chain[i-1].name, chain[i-1].value, chain[i].name, chain[i].value)
		}
	}
	return nil
}

// Breadcrumb splits DescriptionLong into its path segments, in order.
func (r *Record) Breadcrumb() []string {
	if r.DescriptionLong == "" {
		return nil
	}
	return strings.Split(r.DescriptionLong, BreadcrumbSeparator)
}

// SpecialRateShort returns the special rate cut to 20 characters for the
// detail panel, where the full programme list would not fit.
func (r *Record) SpecialRateShort() string {
	const max = 20
	runes := []rune(r.SpecialRate)
	if len(runes) <= max {
		return r.SpecialRate
	}
	return string(runes[:max]) + "..."
}

// CopyText is the short clipboard payload: just the formatted code.
func (r *Record) CopyText() string {
	return r.FormattedCode
}

// CopyAllText is the multi-line clipboard payload with the headline fields.
func (r *Record) CopyAllText() string {
	tariff := r.GeneralRate
	if tariff == "" {
		tariff = "N/A"
	}
	return fmt.Sprintf("HS10: %s\nDescription: %s\nChapter: %s - %s\nTariff: %s",
		r.FormattedCode, r.DescriptionShort, r.ChapterNumber, r.ChapterName, tariff)
}
