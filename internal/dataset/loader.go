// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"hslookup/internal/models"
)

// Loader fetches the full record list from one source.
type Loader interface {
	Load(ctx context.Context) ([]models.Record, error)
	Name() string
}

// DocumentLoader is a Loader whose source is a lookup document.
// LoadDocument returns the document exactly as stored.
type DocumentLoader interface {
	Loader
	LoadDocument(ctx context.Context) ([]byte, error)
}

// decodeDocument decodes data, naming the source in errors.
func decodeDocument(name string, data []byte) ([]models.Record, error) {
	records, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return records, nil
}

// FileLoader reads a lookup document from the local filesystem.
type FileLoader struct {
	Path string
}

// LoadDocument reads the file.
func (l FileLoader) LoadDocument(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open lookup file: %w", err)
	}
	return data, nil
}

// Load reads and decodes the file.
func (l FileLoader) Load(ctx context.Context) ([]models.Record, error) {
	data, err := l.LoadDocument(ctx)
	if err != nil {
		return nil, err
	}
	return decodeDocument(l.Path, data)
}

// Name identifies the source in logs.
func (l FileLoader) Name() string {
	return "file:" + l.Path
}

// ObjectGetter downloads an object; implemented by storage.Client.
type ObjectGetter interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3Loader reads a lookup document from an object store.
type S3Loader struct {
	Client ObjectGetter
	Bucket string
	Key    string
}

// LoadDocument downloads the object.
func (l S3Loader) LoadDocument(ctx context.Context) ([]byte, error) {
	return l.Client.Download(ctx, l.Bucket, l.Key)
}

// Load downloads and decodes the object.
func (l S3Loader) Load(ctx context.Context) ([]models.Record, error) {
	data, err := l.LoadDocument(ctx)
	if err != nil {
		return nil, err
	}
	return decodeDocument(l.Name(), data)
}

// Name identifies the source in logs.
func (l S3Loader) Name() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// RecordLister lists stored records in collection order; implemented by
// store.RecordStore.
type RecordLister interface {
	List(ctx context.Context) ([]models.Record, error)
}

// StoreLoader reads records from the SQL store.
type StoreLoader struct {
	Store RecordLister
}

// Load lists every stored record.
func (l StoreLoader) Load(ctx context.Context) ([]models.Record, error) {
	records, err := l.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records from store: %w", err)
	}
	return records, nil
}

// Name identifies the source in logs.
func (l StoreLoader) Name() string {
	return "db"
}
