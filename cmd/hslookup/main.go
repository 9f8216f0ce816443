// Package main is the entry point for the HS code lookup. It serves the
// interactive lookup screen and JSON API, imports the lookup file into the
// SQL store, renders the static export and queries the table from the
// terminal.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"hslookup/internal/config"
	"hslookup/internal/database"
	"hslookup/internal/dataset"
	"hslookup/internal/storage"
	"hslookup/internal/store"
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hslookup",
	Short: "HS/HTS code lookup table",
	Long: `hslookup loads a harmonized tariff lookup file and lets you browse it
by section and chapter, search it, and inspect single codes.

Configuration comes from the environment (APP_ENV, DATA_SOURCE, DATA_PATH,
POSTGRES_*, VALKEY_*, S3_*). Run "hslookup serve" to start the web server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
		setupLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, importCmd, exportCmd, searchCmd, showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setupLogger installs the default structured logger: text at debug level
// in development, JSON at info level everywhere else.
func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

// newLoader builds the dataset loader selected by DATA_SOURCE. The
// returned cleanup releases whatever connection the loader holds.
func newLoader(cfg *config.Config) (dataset.Loader, func(), error) {
	noop := func() {}

	switch cfg.DataSource {
	case config.SourceS3:
		client, err := newStorage(cfg)
		if err != nil {
			return nil, noop, err
		}
		return dataset.S3Loader{Client: client, Bucket: cfg.S3Bucket, Key: cfg.S3DataKey}, noop, nil

	case config.SourceDB:
		db, err := openStore(cfg)
		if err != nil {
			return nil, noop, err
		}
		return dataset.StoreLoader{Store: store.NewRecordStore(db)}, func() { db.Close() }, nil

	default:
		return dataset.FileLoader{Path: cfg.DataPath}, noop, nil
	}
}

// newStorage connects to S3-compatible storage and fails when it is not
// configured.
func newStorage(cfg *config.Config) (*storage.Client, error) {
	client, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		return nil, fmt.Errorf("initialize s3 storage: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("s3 storage not configured: set S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY")
	}
	slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	return client, nil
}

// openStore connects to the SQL store and runs pending migrations.
func openStore(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Connect(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.Migrate(db, cfg.DBDriver); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}
