// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hslookup/internal/cache"
	"hslookup/internal/dataset"
	"hslookup/internal/lookup"
	"hslookup/internal/render"
)

// ThemeCookieName holds the visitor's colour theme.
const ThemeCookieName = "hs_theme"

// SnapshotSource serves the currently loaded collection.
type SnapshotSource interface {
	Current() (*dataset.Snapshot, error)
}

// StateStore persists one filter state per visitor.
type StateStore interface {
	Load(ctx context.Context, r *http.Request) (lookup.State, bool, error)
	Save(ctx context.Context, w http.ResponseWriter, r *http.Request, state lookup.State) error
}

// FragmentCache stores rendered workspace fragments.
type FragmentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
}

// Recorder counts filter operations and fragment cache outcomes.
type Recorder interface {
	Operation(op string)
	CacheLookup(hit bool)
}

// Lookup groups the handlers of the interactive lookup screen. Every
// filter operation reads the visitor's state, applies the operation,
// stores the result and answers with the re-rendered workspace: a
// fragment for HTMX requests, a redirect to the full page otherwise.
type Lookup struct {
	renderer  *render.Renderer
	data      SnapshotSource
	states    StateStore
	fragments FragmentCache // optional
	recorder  Recorder      // optional
	paging    lookup.Paging
	debounce  time.Duration
	secure    bool
}

// NewLookup creates the lookup handler group. fragments and recorder may
// be nil.
func NewLookup(renderer *render.Renderer, data SnapshotSource, states StateStore, fragments FragmentCache, recorder Recorder, paging lookup.Paging, debounce time.Duration, secure bool) *Lookup {
	return &Lookup{
		renderer:  renderer,
		data:      data,
		states:    states,
		fragments: fragments,
		recorder:  recorder,
		paging:    paging,
		debounce:  debounce,
		secure:    secure,
	}
}

// Home renders the full lookup page for the visitor's current state.
func (h *Lookup) Home(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	state := h.loadState(r)
	h.renderer.Page(w, r, "lookup", http.StatusOK, h.pageData(r, snap, state))
}

// Results renders only the workspace for the current state.
func (h *Lookup) Results(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.writeWorkspace(w, r, snap, h.loadState(r))
}

// Search applies the submitted query.
func (h *Lookup) Search(w http.ResponseWriter, r *http.Request) {
	query := r.FormValue("q")
	h.apply(w, r, "search", func(_ *lookup.Collection, s lookup.State) lookup.State {
		return s.Search(query, h.paging)
	})
}

// Chapter narrows the table to one chapter.
func (h *Lookup) Chapter(w http.ResponseWriter, r *http.Request) {
	chapter := chi.URLParam(r, "chapter")
	h.apply(w, r, "chapter", func(_ *lookup.Collection, s lookup.State) lookup.State {
		return s.FilterByChapter(chapter, h.paging)
	})
}

// Clear drops the query and chapter.
func (h *Lookup) Clear(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "clear", func(_ *lookup.Collection, s lookup.State) lookup.State {
		return s.Clear(h.paging)
	})
}

// More raises the display limit by one increment.
func (h *Lookup) More(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "more", func(_ *lookup.Collection, s lookup.State) lookup.State {
		return s.LoadMore(h.paging)
	})
}

// Select opens the detail panel for a code. Unknown codes change nothing.
func (h *Lookup) Select(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	h.apply(w, r, "select", func(c *lookup.Collection, s lookup.State) lookup.State {
		return s.Select(c, code)
	})
}

// CloseDetail closes the detail panel.
func (h *Lookup) CloseDetail(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "deselect", func(_ *lookup.Collection, s lookup.State) lookup.State {
		return s.Deselect()
	})
}

// Detail renders the standalone page of one code.
func (h *Lookup) Detail(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	rec, err := snap.Collection.Find(chi.URLParam(r, "code"))
	if err != nil {
		data := h.pageData(r, snap, lookup.Initial(h.paging))
		data.Title = "Not found"
		h.renderer.Page(w, r, "notfound", http.StatusNotFound, data)
		return
	}
	data := h.pageData(r, snap, lookup.Initial(h.paging))
	data.Title = rec.FormattedCode
	data.Record = rec
	h.renderer.Page(w, r, "code", http.StatusOK, data)
}

// Copy returns the clipboard text of a code: the bare code with
// format=code, or the full attribute block with format=all.
func (h *Lookup) Copy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.data.Current()
	if err != nil {
		http.Error(w, "lookup data not loaded", http.StatusServiceUnavailable)
		return
	}
	rec, err := snap.Collection.Find(chi.URLParam(r, "code"))
	if err != nil {
		http.Error(w, "code not found", http.StatusNotFound)
		return
	}

	var text string
	switch r.URL.Query().Get("format") {
	case "", "code":
		text = rec.CopyText()
	case "all":
		text = rec.CopyAllText()
	default:
		http.Error(w, "format must be code or all", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(text))
}

// Theme toggles between the light and dark theme.
func (h *Lookup) Theme(w http.ResponseWriter, r *http.Request) {
	next := "dark"
	if themeFromRequest(r) == "dark" {
		next = "light"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ThemeCookieName,
		Value:    next,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   365 * 24 * 60 * 60,
	})

	if render.IsHTMX(r) {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// apply runs one state operation and answers with the new workspace. A
// failed save is logged and the computed state is still rendered.
func (h *Lookup) apply(w http.ResponseWriter, r *http.Request, op string, fn func(*lookup.Collection, lookup.State) lookup.State) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	state := fn(snap.Collection, h.loadState(r))
	if err := h.states.Save(r.Context(), w, r, state); err != nil {
		slog.Warn("save filter state failed", "op", op, "error", err)
	}
	if h.recorder != nil {
		h.recorder.Operation(op)
	}

	if !render.IsHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.writeWorkspace(w, r, snap, state)
}

// writeWorkspace answers with the workspace fragment, served from the
// fragment cache when possible. Cached fragments carry no CSRF token;
// HTMX sends it from the hx-headers attribute of the page body.
func (h *Lookup) writeWorkspace(w http.ResponseWriter, r *http.Request, snap *dataset.Snapshot, state lookup.State) {
	key := cache.ResultsKey(snap.Version, state)
	if h.fragments != nil {
		cached, hit := h.fragments.Get(r.Context(), key)
		if h.recorder != nil {
			h.recorder.CacheLookup(hit)
		}
		if hit {
			writeHTML(w, cached)
			return
		}
	}

	data := h.pageData(r, snap, state)
	data.CSRFToken = ""

	var buf bytes.Buffer
	if err := h.renderer.Fragment(&buf, "lookup", "workspace", data); err != nil {
		slog.Error("render workspace failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if h.fragments != nil {
		h.fragments.Set(r.Context(), key, buf.Bytes())
	}
	writeHTML(w, buf.Bytes())
}

// snapshot returns the current collection, or renders the load failure
// with 503 and returns false.
func (h *Lookup) snapshot(w http.ResponseWriter, r *http.Request) (*dataset.Snapshot, bool) {
	snap, err := h.data.Current()
	if err == nil {
		return snap, true
	}
	slog.Warn("lookup data unavailable", "path", r.URL.Path, "error", err)
	msg := err.Error()
	if errors.Is(err, dataset.ErrNotLoaded) {
		msg = "The HS code table could not be loaded. " + msg
	}
	h.renderer.Page(w, r, "error", http.StatusServiceUnavailable, &render.PageData{
		Title:    "Unavailable",
		Theme:    themeFromRequest(r),
		Debounce: h.debounce.Milliseconds(),
		Error:    msg,
	})
	return nil, false
}

// loadState returns the visitor's stored state, or the initial state when
// there is none. A store failure degrades to the initial state.
func (h *Lookup) loadState(r *http.Request) lookup.State {
	state, ok, err := h.states.Load(r.Context(), r)
	if err != nil {
		slog.Warn("load filter state failed", "error", err)
	}
	if !ok {
		return lookup.Initial(h.paging)
	}
	return state.Sanitize(h.paging)
}

func (h *Lookup) pageData(r *http.Request, snap *dataset.Snapshot, state lookup.State) *render.PageData {
	c := snap.Collection
	return &render.PageData{
		Theme:    themeFromRequest(r),
		Debounce: h.debounce.Milliseconds(),
		Stats:    c.Stats(),
		Sections: c.Sections(),
		View:     lookup.Evaluate(c, state),
		LoadedAt: snap.LoadedAt,
	}
}

func themeFromRequest(r *http.Request) string {
	if c, err := r.Cookie(ThemeCookieName); err == nil && c.Value == "dark" {
		return "dark"
	}
	return "light"
}

func writeHTML(w http.ResponseWriter, html []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}
