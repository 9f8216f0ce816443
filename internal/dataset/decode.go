// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package dataset loads the HS10 lookup collection from its sources (a JSON
// file, an S3 object, or the SQL store), keeps the current collection behind
// an atomic holder, and optionally reloads it when the file changes.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"hslookup/internal/models"
)

// Decode reads a lookup document: a JSON object keyed by HS10 code whose
// values are record objects. Records are returned in document order. A
// record without its own code takes the object key.
func Decode(r io.Reader) ([]models.Record, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read lookup document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("lookup document must be a JSON object, got %v", tok)
	}

	var records []models.Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read record key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var rec models.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", key, err)
		}
		if rec.Code == "" {
			rec.Code = key
		}
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read end of lookup document: %w", err)
	}
	return records, nil
}

// documentRecord is the published form of one record: chapter numbers are
// JSON numbers when numeric and empty optional fields are null.
type documentRecord struct {
	Code             string          `json:"hts10"`
	FormattedCode    string          `json:"hts10_formatted"`
	DescriptionShort string          `json:"description_short"`
	DescriptionRaw   string          `json:"description_raw"`
	DescriptionLong  string          `json:"description_long"`
	SectionNumber    string          `json:"section_number"`
	SectionName      string          `json:"section_name"`
	ChapterNumber    json.RawMessage `json:"chapter_number"`
	ChapterName      string          `json:"chapter_name"`
	GeneralRate      *string         `json:"general_rate"`
	SpecialRate      *string         `json:"special_rate"`
	OtherRate        *string         `json:"other_rate"`
	Units            *string         `json:"units"`
	HS2              string          `json:"hs2"`
	HS4              string          `json:"hs4"`
	HS6              string          `json:"hs6"`
	HS8              string          `json:"hs8"`
}

func newDocumentRecord(r *models.Record) (documentRecord, error) {
	chapter, err := chapterValue(r.ChapterNumber)
	if err != nil {
		return documentRecord{}, err
	}
	return documentRecord{
		Code:             r.Code,
		FormattedCode:    r.FormattedCode,
		DescriptionShort: r.DescriptionShort,
		DescriptionRaw:   r.DescriptionRaw,
		DescriptionLong:  r.DescriptionLong,
		SectionNumber:    r.SectionNumber,
		SectionName:      r.SectionName,
		ChapterNumber:    chapter,
		ChapterName:      r.ChapterName,
		GeneralRate:      nullable(r.GeneralRate),
		SpecialRate:      nullable(r.SpecialRate),
		OtherRate:        nullable(r.OtherRate),
		Units:            nullable(r.Units),
		HS2:              r.HS2,
		HS4:              r.HS4,
		HS6:              r.HS6,
		HS8:              r.HS8,
	}, nil
}

// chapterValue writes a canonical decimal chapter number as a JSON number
// and anything else as a string.
func chapterValue(s string) (json.RawMessage, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil && strconv.FormatUint(n, 10) == s {
		return json.RawMessage(s), nil
	}
	return json.Marshal(s)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Encode writes records as a lookup document in the given order, in the
// published form. Sources that keep their document bytes should copy those
// instead; Encode is for records that only exist decoded.
func Encode(w io.Writer, records []*models.Record) error {
	if _, err := io.WriteString(w, "{"); err != nil {
		return err
	}
	for i, r := range records {
		key, err := json.Marshal(r.Code)
		if err != nil {
			return err
		}
		doc, err := newDocumentRecord(r)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.Code, err)
		}
		val, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.Code, err)
		}
		sep := ","
		if i == 0 {
			sep = ""
		}
		if _, err := fmt.Fprintf(w, "%s\n%s:%s", sep, key, val); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n}\n")
	return err
}
