// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hslookup/internal/lookup"
	"hslookup/internal/models"
)

// MaxAPILimit caps the number of records one API response carries.
const MaxAPILimit = 1000

// API serves the collection as JSON for scripts and other services.
type API struct {
	data   SnapshotSource
	paging lookup.Paging
}

// NewAPI creates the JSON API handler group.
func NewAPI(data SnapshotSource, paging lookup.Paging) *API {
	return &API{data: data, paging: paging}
}

// CodesResponse is the body of GET /api/codes.
type CodesResponse struct {
	Query   string           `json:"q,omitempty"`
	Chapter string           `json:"chapter,omitempty"`
	Total   int              `json:"total"`
	Count   int              `json:"count"`
	Version string           `json:"version"`
	Codes   []*models.Record `json:"codes"`
}

// Codes lists records filtered the same way the lookup screen filters
// them: q is a free-text query, chapter narrows to one chapter, and limit
// caps the result (default page size, at most MaxAPILimit).
func (a *API) Codes(w http.ResponseWriter, r *http.Request) {
	snap, err := a.data.Current()
	if err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	params := r.URL.Query()
	limit := a.paging.PageSize
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxAPILimit)
	}

	state := lookup.Initial(a.paging)
	if ch := params.Get("chapter"); ch != "" {
		state = state.FilterByChapter(ch, a.paging)
	}
	state = state.Search(params.Get("q"), a.paging)

	subset := lookup.Apply(snap.Collection, state)
	visible := subset[:min(limit, len(subset))]
	if visible == nil {
		visible = []*models.Record{}
	}

	writeJSON(w, http.StatusOK, CodesResponse{
		Query:   state.Query,
		Chapter: state.Chapter,
		Total:   len(subset),
		Count:   len(visible),
		Version: snap.Version,
		Codes:   visible,
	})
}

// Code returns one record by its HS10 code.
func (a *API) Code(w http.ResponseWriter, r *http.Request) {
	snap, err := a.data.Current()
	if err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	rec, err := snap.Collection.Find(chi.URLParam(r, "code"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Sections returns the section and chapter navigation tree.
func (a *API) Sections(w http.ResponseWriter, r *http.Request) {
	snap, err := a.data.Current()
	if err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":    snap.Collection.Stats(),
		"sections": snap.Collection.Sections(),
	})
}

// Health reports whether lookup data is loaded. It answers 503 while the
// collection is unavailable so load balancers stop routing traffic here.
func Health(data SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := data.Current()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"codes":     snap.Collection.Len(),
			"version":   snap.Version,
			"source":    snap.Source,
			"loaded_at": snap.LoadedAt.UTC().Format(time.RFC3339),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json response failed", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
