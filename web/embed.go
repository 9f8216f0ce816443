// Package web provides the embedded static assets (CSS, JS) of the lookup
// screen and the static export. In development, pages load htmx from a
// CDN; release builds vendor it into static/vendor/ before compiling.
package web

import "embed"

//go:generate curl -sSfL --create-dirs -o static/vendor/htmx.min.js https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js

// StaticFS embeds the web/static/ directory tree, including the vendored
// htmx copy when it has been generated.
//
//go:embed all:static
var StaticFS embed.FS
