// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package export renders the loaded collection as a static site: an index
// page with the section navigation, one page per chapter, the dataset as
// JSON and the stylesheet. The result can be uploaded to object storage
// and served without the application.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"hslookup/internal/dataset"
	"hslookup/internal/lookup"
	"hslookup/internal/render"
	"hslookup/internal/slug"
	"hslookup/web"
)

// DataFile is the dataset path inside an export.
const DataFile = "data/hs10_lookup.json"

// DefaultConcurrency bounds parallel uploads.
const DefaultConcurrency = 8

// staticAssets are copied from the embedded web/static tree.
var staticAssets = []string{"app.css"}

// Result lists the files of a finished export, relative to its root and
// with forward slashes.
type Result struct {
	Files []string
	Bytes int64
}

// Write renders snap into dir, creating it if needed. The index shows the
// first page of the whole collection; chapter pages show every record of
// their chapter. The dataset file is the source document unchanged when
// the snapshot has one.
func Write(ctx context.Context, renderer *render.Renderer, snap *dataset.Snapshot, dir string, paging lookup.Paging) (*Result, error) {
	c := snap.Collection
	res := &Result{}

	write := func(name string, fill func(io.Writer) error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := fill(&buf); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
			return err
		}
		res.Files = append(res.Files, name)
		res.Bytes += int64(buf.Len())
		return nil
	}

	base := render.PageData{
		Stats:    c.Stats(),
		Sections: c.Sections(),
		LoadedAt: snap.LoadedAt,
	}

	index := base
	index.View = lookup.Evaluate(c, lookup.Initial(paging))
	if err := write("index.html", func(w io.Writer) error {
		return renderer.Static(w, "export_index", &index)
	}); err != nil {
		return nil, err
	}

	for _, section := range c.Sections() {
		for _, ch := range section.Chapters {
			name, ok := slug.ChapterPage(ch.Number)
			if !ok {
				return nil, fmt.Errorf("chapter %q cannot be used as a file name", ch.Number)
			}
			page := base
			page.Title = "Chapter " + ch.Number + ": " + ch.Name
			state := lookup.Initial(paging).FilterByChapter(ch.Number, paging)
			state.Limit = math.MaxInt
			page.View = lookup.Evaluate(c, state)
			if err := write(name, func(w io.Writer) error {
				return renderer.Static(w, "export_chapter", &page)
			}); err != nil {
				return nil, err
			}
		}
	}

	if err := write(DataFile, func(w io.Writer) error {
		if snap.Document != nil {
			_, err := w.Write(snap.Document)
			return err
		}
		return dataset.Encode(w, c.All())
	}); err != nil {
		return nil, err
	}

	for _, name := range staticAssets {
		if err := write("static/"+name, func(w io.Writer) error {
			data, err := fs.ReadFile(web.StaticFS, "static/"+name)
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		}); err != nil {
			return nil, err
		}
	}

	slog.Info("static export written",
		"dir", dir,
		"files", len(res.Files),
		"size", humanize.Bytes(uint64(res.Bytes)),
		"version", snap.Version,
	)
	return res, nil
}

// Uploader stores one object; implemented by storage.Client.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) error
	Bucket() string
}

// Upload copies the listed files from dir to the uploader's bucket under
// prefix, at most concurrency at a time. The first failure cancels the
// remaining uploads.
func Upload(ctx context.Context, up Uploader, dir, prefix string, files []string, concurrency int) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	prefix = strings.Trim(prefix, "/")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, name := range files {
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
			if err != nil {
				return err
			}
			key := name
			if prefix != "" {
				key = path.Join(prefix, name)
			}
			return up.Upload(gctx, up.Bucket(), key, contentType(name), bytes.NewReader(data), int64(len(data)))
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("upload export: %w", err)
	}

	slog.Info("static export uploaded", "bucket", up.Bucket(), "prefix", prefix, "files", len(files))
	return nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

