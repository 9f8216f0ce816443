// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the lookup screen.
// It supports full-page and HTMX partial rendering, automatically detecting
// the request type via the HX-Request header, and renders the standalone
// pages of the static export.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"hslookup/internal/lookup"
	"hslookup/internal/middleware"
	"hslookup/internal/models"
	"hslookup/internal/slug"
)

//go:embed templates/*.html
var templateFS embed.FS

// Names of the shared files every page is parsed with.
const (
	layoutFile   = "base.html"
	partialsFile = "partials.html"
)

// PageData holds all data passed to templates.
type PageData struct {
	Title     string
	CSRFToken string // CSRF token for forms and HTMX headers
	Theme     string // "light" or "dark"
	Debounce  int64  // search debounce in milliseconds
	Stats     lookup.Stats
	Sections  []lookup.Section
	View      lookup.View
	Record    *models.Record // standalone detail page
	Error     string         // terminal load failure message
	LoadedAt  time.Time
	Static    bool // static export: plain links instead of HTMX actions
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// standaloneTemplates render as full HTML documents without the base
// layout. They make up the static export.
var standaloneTemplates = map[string]bool{
	"export_index":   true,
	"export_chapter": true,
}

// New creates a Renderer by parsing all templates from the embedded
// filesystem. Each page template is paired with the base layout and the
// shared partials. When devMode is true, pages load htmx from a CDN; when
// false, they reference the vendored copy under /static.
func New(devMode bool) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"isDev": func() bool {
				return devMode
			},
			// comma formats counts with thousands separators.
			"comma": func(n int) string {
				return humanize.Comma(int64(n))
			},
			// ago formats a load time relative to now.
			"ago": func(t time.Time) string {
				if t.IsZero() {
					return ""
				}
				return humanize.Time(t)
			},
			"chapterActive": func(s lookup.State, chapter string) bool {
				return s.Query == "" && s.Chapter == chapter
			},
			// chapterHref links a chapter page of the static export.
			"chapterHref": func(chapter string) string {
				href, _ := slug.ChapterPage(chapter)
				return href
			},
		},
	}

	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == layoutFile || name == partialsFile {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		var parseErr error
		if standaloneTemplates[tmplName] {
			tmpl, parseErr = template.New(name).Funcs(r.funcMap).ParseFS(
				templateFS, "templates/"+partialsFile, "templates/"+name,
			)
		} else {
			tmpl, parseErr = template.New(layoutFile).Funcs(r.funcMap).ParseFS(
				templateFS, "templates/"+layoutFile, "templates/"+partialsFile, "templates/"+name,
			)
		}
		if parseErr != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, parseErr)
		}
		r.templates[tmplName] = tmpl
	}

	return r, nil
}

// Page renders a full page, or only its "content" block for HTMX
// requests, with the given status code.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, status int, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok || standaloneTemplates[name] {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	// Inject CSRF token from context (set by CSRF middleware).
	data.CSRFToken = middleware.CSRFToken(r)

	execName := layoutFile
	if IsHTMX(r) {
		execName = "content"
	}
	rn.write(w, status, tmpl, execName, data)
}

// Fragment executes one named block of a page's template set into w. The
// caller owns headers and caching.
func (rn *Renderer) Fragment(w io.Writer, page, block string, data *PageData) error {
	tmpl, ok := rn.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, block, data)
}

// Static renders a standalone export page.
func (rn *Renderer) Static(w io.Writer, name string, data *PageData) error {
	tmpl, ok := rn.templates[name]
	if !ok || !standaloneTemplates[name] {
		return fmt.Errorf("static template %q not found", name)
	}
	data.Static = true
	return tmpl.ExecuteTemplate(w, name+".html", data)
}

// write buffers the output so a template error never leaves a half
// written page behind a 200 status.
func (rn *Renderer) write(w http.ResponseWriter, status int, tmpl *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("template execution failed", "template", tmpl.Name(), "block", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// IsHTMX reports whether the request was made by HTMX (has the HX-Request
// header).
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
