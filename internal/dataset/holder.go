// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package dataset

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"

	"hslookup/internal/lookup"
	"hslookup/internal/models"
)

// ErrNotLoaded is returned while no collection is available, either
// because loading has not happened or because it failed.
var ErrNotLoaded = errors.New("dataset: lookup data not loaded")

// Snapshot is one loaded, immutable collection.
type Snapshot struct {
	Collection *lookup.Collection
	Version    string // content fingerprint, changes whenever any record does
	Source     string
	LoadedAt   time.Time

	// Document is the source document as read. It is nil for sources that
	// are not documents, such as the SQL store.
	Document []byte
}

type holderState struct {
	snap *Snapshot
	err  error
}

// Holder serves the current snapshot to concurrent readers. Loads are
// serialised; readers never block on them.
type Holder struct {
	loader Loader
	mu     sync.Mutex
	state  atomic.Pointer[holderState]
	hooks  []func(*Snapshot)
	failed bool // the first load failed; guarded by mu
}

// NewHolder creates an empty holder for the given source.
func NewHolder(loader Loader) *Holder {
	h := &Holder{loader: loader}
	h.state.Store(&holderState{err: ErrNotLoaded})
	return h
}

// NewStaticHolder wraps an already built collection; it has no loader and
// cannot be reloaded.
func NewStaticHolder(c *lookup.Collection, source string) *Holder {
	h := &Holder{}
	h.state.Store(&holderState{snap: newSnapshot(c, source)})
	return h
}

// OnReload registers fn to run after every successful load. Hooks run on
// the loading goroutine.
func (h *Holder) OnReload(fn func(*Snapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}

// Load performs a load from the source. When it fails and a previous
// snapshot exists, the previous snapshot stays current; otherwise the
// failure is remembered and reported by Current. A failed first load is
// final: later calls return the remembered error without loading.
func (h *Holder) Load(ctx context.Context) error {
	if h.loader == nil {
		return fmt.Errorf("dataset: holder has no loader")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failed {
		return h.state.Load().err
	}

	start := time.Now()
	snap, err := h.build(ctx)
	if err != nil {
		prev := h.state.Load()
		if prev.snap == nil {
			h.failed = true
			h.state.Store(&holderState{err: fmt.Errorf("%w: %w", ErrNotLoaded, err)})
		}
		slog.Error("lookup data load failed", "source", h.loader.Name(), "error", err)
		return err
	}

	h.state.Store(&holderState{snap: snap})
	slog.Info("lookup data loaded",
		"source", snap.Source,
		"records", snap.Collection.Len(),
		"version", snap.Version,
		"duration", time.Since(start).String(),
	)
	for _, fn := range h.hooks {
		fn(snap)
	}
	return nil
}

func (h *Holder) build(ctx context.Context) (*Snapshot, error) {
	var (
		records []models.Record
		doc     []byte
		err     error
	)
	if dl, ok := h.loader.(DocumentLoader); ok {
		doc, err = dl.LoadDocument(ctx)
		if err == nil {
			records, err = decodeDocument(dl.Name(), doc)
		}
	} else {
		records, err = h.loader.Load(ctx)
	}
	if err != nil {
		return nil, err
	}

	c, err := lookup.NewCollection(records)
	if err != nil {
		return nil, fmt.Errorf("invalid lookup data: %w", err)
	}
	snap := newSnapshot(c, h.loader.Name())
	snap.Document = doc
	return snap, nil
}

// Current returns the current snapshot, or an error wrapping ErrNotLoaded.
func (h *Holder) Current() (*Snapshot, error) {
	st := h.state.Load()
	if st.snap == nil {
		return nil, st.err
	}
	return st.snap, nil
}

func newSnapshot(c *lookup.Collection, source string) *Snapshot {
	return &Snapshot{
		Collection: c,
		Version:    Fingerprint(c.All()),
		Source:     source,
		LoadedAt:   time.Now(),
	}
}

// Fingerprint hashes records in order into a short hex version string.
func Fingerprint(records []*models.Record) string {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	enc := json.NewEncoder(h)
	for _, r := range records {
		_ = enc.Encode(r)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
