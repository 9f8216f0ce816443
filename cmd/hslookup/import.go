package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hslookup/internal/dataset"
	"hslookup/internal/lookup"
	"hslookup/internal/store"
)

var (
	importFile    string
	importHistory int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the lookup file into the SQL store",
	Long: `Migrates the database (PostgreSQL or SQLite, per DB_DRIVER) and replaces
every stored record with the records of the lookup file, in file order and
in one transaction. The file is fully validated first; an invalid file
leaves the store untouched.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "lookup file to import (default DATA_PATH)")
	importCmd.Flags().IntVar(&importHistory, "history", 5, "recent imports to list afterwards (0 to skip)")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := importFile
	if path == "" {
		path = cfg.DataPath
	}

	start := time.Now()
	loader := dataset.FileLoader{Path: path}
	records, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	c, err := lookup.NewCollection(records)
	if err != nil {
		return fmt.Errorf("invalid lookup data: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rs := store.NewRecordStore(db)
	version := dataset.Fingerprint(c.All())
	if err := rs.ReplaceAll(ctx, c.All(), version, loader.Name()); err != nil {
		return err
	}
	stored, err := rs.Count(ctx)
	if err != nil {
		return err
	}
	if stored != c.Len() {
		return fmt.Errorf("import stored %d records, want %d", stored, c.Len())
	}

	stats := c.Stats()
	slog.Info("lookup data imported",
		"file", path,
		"records", stats.Codes,
		"chapters", stats.Chapters,
		"version", version,
		"duration", time.Since(start).String(),
	)

	if importHistory <= 0 {
		return nil
	}
	entries, err := rs.RecentImports(ctx, importHistory)
	if err != nil {
		return err
	}
	tbl := newTable("IMPORTED", "VERSION", "RECORDS", "SOURCE")
	for _, e := range entries {
		tbl.addRow(humanize.Time(e.ImportedAt), e.Version, humanize.Comma(int64(e.Records)), e.Source)
	}
	return tbl.write(cmd.OutOrStdout())
}
