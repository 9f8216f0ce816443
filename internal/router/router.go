// Package router sets up all HTTP routes and middleware chains for the HS
// code lookup. It organizes routes into the interactive screen, the JSON
// API and the operational endpoints, each with its own middleware stack.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hslookup/internal/handlers"
	"hslookup/internal/metrics"
	"hslookup/internal/middleware"
	"hslookup/web"
)

// Deps are the handler groups and shared middleware the router wires up.
// Metrics and RateLimiter may be nil. DevMode allows the htmx CDN that
// development pages load from.
type Deps struct {
	Lookup        *handlers.Lookup
	API           *handlers.API
	Data          handlers.SnapshotSource
	Metrics       *metrics.Metrics
	RateLimiter   *middleware.RateLimiter
	SecureCookies bool
	DevMode       bool
}

// htmxCDN is where development pages load htmx from.
const htmxCDN = "https://unpkg.com"

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	headers := middleware.HeaderOptions{HSTS: d.SecureCookies}
	if d.DevMode {
		headers.ScriptOrigins = []string{htmxCDN}
	}
	r.Use(middleware.SecureHeaders(headers))
	if d.Metrics != nil {
		r.Use(middleware.Instrument(d.Metrics))
	}

	// Operational endpoints: no CSRF, no rate limit.
	r.Get("/health", handlers.Health(d.Data))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("router: embedded static directory missing: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	// JSON API, rate limited per client IP.
	r.Route("/api", func(r chi.Router) {
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Middleware)
		}
		r.Get("/codes", d.API.Codes)
		r.Get("/codes/{code}", d.API.Code)
		r.Get("/sections", d.API.Sections)
	})

	// Lookup screen, CSRF protected.
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRF(d.SecureCookies))

		r.Get("/", d.Lookup.Home)
		r.Get("/results", d.Lookup.Results)
		r.Post("/search", d.Lookup.Search)
		r.Post("/chapters/{chapter}", d.Lookup.Chapter)
		r.Post("/clear", d.Lookup.Clear)
		r.Post("/more", d.Lookup.More)
		r.Post("/detail/close", d.Lookup.CloseDetail)
		r.Post("/theme", d.Lookup.Theme)

		r.Get("/codes/{code}", d.Lookup.Detail)
		r.Get("/codes/{code}/copy", d.Lookup.Copy)
		r.Post("/codes/{code}/select", d.Lookup.Select)
	})

	return r
}
