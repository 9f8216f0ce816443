package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hslookup/internal/dataset"
	"hslookup/internal/export"
	"hslookup/internal/render"
)

var (
	exportOut         string
	exportUpload      bool
	exportConcurrency int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the lookup table as a static site",
	Long: `Writes index.html, one page per chapter, the dataset JSON and the
stylesheet into --out. With --upload every written file is also put into
S3_BUCKET under EXPORT_PREFIX.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "site", "output directory")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "upload the export to S3")
	exportCmd.Flags().IntVar(&exportConcurrency, "concurrency", export.DefaultConcurrency, "parallel uploads")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}

	renderer, err := render.New(false)
	if err != nil {
		return err
	}
	res, err := export.Write(ctx, renderer, snap, exportOut, cfg.Paging())
	if err != nil {
		return err
	}

	if !exportUpload {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s\n", len(res.Files), exportOut)
		return nil
	}

	client, err := newStorage(cfg)
	if err != nil {
		return err
	}
	if err := export.Upload(ctx, client, exportOut, cfg.ExportPrefix, res.Files, exportConcurrency); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %d files to %s\n", len(res.Files), client.FileURL(cfg.ExportPrefix+"/index.html"))
	return nil
}

// loadSnapshot performs a single load from the configured source.
func loadSnapshot(ctx context.Context) (*dataset.Snapshot, error) {
	loader, closeLoader, err := newLoader(cfg)
	if err != nil {
		return nil, err
	}
	defer closeLoader()

	holder := dataset.NewHolder(loader)
	if err := holder.Load(ctx); err != nil {
		return nil, err
	}
	return holder.Current()
}
