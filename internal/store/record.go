// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hslookup/internal/models"
)

// RecordStore handles persistence of lookup records. Each import replaces
// the whole table; position keeps the collection order of the source file.
type RecordStore struct {
	db *sql.DB
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

const recordColumns = `code, formatted_code, description_short, description_raw,
	description_long, section_number, section_name, chapter_number, chapter_name,
	general_rate, special_rate, other_rate, units, hs2, hs4, hs6, hs8`

// ReplaceAll swaps the stored records for records in a single transaction
// and records the import. Readers never see a partial table.
func (s *RecordStore) ReplaceAll(ctx context.Context, records []*models.Record, version, source string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM hs_codes`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hs_codes (position, `+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		_, err := stmt.ExecContext(ctx, i,
			r.Code, r.FormattedCode, r.DescriptionShort, r.DescriptionRaw,
			r.DescriptionLong, r.SectionNumber, r.SectionName, r.ChapterNumber, r.ChapterName,
			r.GeneralRate, r.SpecialRate, r.OtherRate, r.Units, r.HS2, r.HS4, r.HS6, r.HS8,
		)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", r.Code, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dataset_imports (version, source, records, imported_at)
		VALUES ($1, $2, $3, $4)
	`, version, source, len(records), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// List returns every record in collection order.
func (s *RecordStore) List(ctx context.Context) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM hs_codes
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// FindByCode retrieves a record by its HS10 code. Returns nil, nil when
// the code is not stored.
func (s *RecordStore) FindByCode(ctx context.Context, code string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM hs_codes
		WHERE code = $1
	`, code)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record by code: %w", err)
	}
	return r, nil
}

// Count returns the number of stored records.
func (s *RecordStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hs_codes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.Record, error) {
	var r models.Record
	err := sc.Scan(
		&r.Code, &r.FormattedCode, &r.DescriptionShort, &r.DescriptionRaw,
		&r.DescriptionLong, &r.SectionNumber, &r.SectionName, &r.ChapterNumber, &r.ChapterName,
		&r.GeneralRate, &r.SpecialRate, &r.OtherRate, &r.Units, &r.HS2, &r.HS4, &r.HS6, &r.HS8,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
