// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// import_log.go reads back the dataset import history written by
// RecordStore.ReplaceAll, for the import command and debugging.
package store

import (
	"context"
	"fmt"
	"time"
)

// ImportEntry represents a single dataset import.
type ImportEntry struct {
	Version    string
	Source     string
	Records    int
	ImportedAt time.Time
}

// RecentImports returns the most recent imports, newest first.
func (s *RecordStore) RecentImports(ctx context.Context, limit int) ([]ImportEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, source, records, imported_at
		FROM dataset_imports
		ORDER BY imported_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query import log: %w", err)
	}
	defer rows.Close()

	var entries []ImportEntry
	for rows.Next() {
		var e ImportEntry
		if err := rows.Scan(&e.Version, &e.Source, &e.Records, &e.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan import log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestVersion returns the version of the newest import, or "" when the
// store has never been imported into.
func (s *RecordStore) LatestVersion(ctx context.Context) (string, error) {
	entries, err := s.RecentImports(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[0].Version, nil
}
