// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"hslookup/internal/dataset"
	"hslookup/internal/handlers"
	"hslookup/internal/lookup"
	"hslookup/internal/metrics"
	"hslookup/internal/middleware"
	"hslookup/internal/models"
	"hslookup/internal/render"
)

type memStates struct {
	mu    sync.Mutex
	state lookup.State
	ok    bool
}

func (m *memStates) Load(context.Context, *http.Request) (lookup.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.ok, nil
}

func (m *memStates) Save(_ context.Context, _ http.ResponseWriter, _ *http.Request, s lookup.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state, m.ok = s, true
	return nil
}

func newTestServer(t *testing.T, apiLimit int) (*httptest.Server, *metrics.Metrics) {
	t.Helper()

	c, err := lookup.NewCollection([]models.Record{{
		Code:             "0101210010",
		FormattedCode:    "0101.21.00.10",
		DescriptionShort: "Horses: Purebred breeding animals",
		DescriptionRaw:   "Purebred breeding animals",
		DescriptionLong:  "Live horses > Purebred breeding animals",
		SectionNumber:    "SECTION I",
		SectionName:      "LIVE ANIMALS; ANIMAL PRODUCTS",
		ChapterNumber:    "1",
		ChapterName:      "Live animals",
		HS2:              "01",
		HS4:              "0101",
		HS6:              "010121",
		HS8:              "01012100",
	}})
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	holder := dataset.NewStaticHolder(c, "test")

	renderer, err := render.New(false)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	m := metrics.New()
	limiter := middleware.NewRateLimiter(apiLimit, time.Minute, nil)

	paging := lookup.DefaultPaging()
	r := New(Deps{
		Lookup:      handlers.NewLookup(renderer, holder, &memStates{}, nil, m, paging, lookup.DefaultDebounce, false),
		API:         handlers.NewAPI(holder, paging),
		Data:        holder,
		Metrics:     m,
		RateLimiter: limiter,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, m
}

// noRedirect keeps 303 responses visible to the test.
var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
}

func TestHealthRoute(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %v, want %q", body["status"], "ok")
	}
}

func TestHomeSetsHeadersAndCSRFCookie(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy header")
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request ID header")
	}
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == middleware.CSRFCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("first visit should set the CSRF cookie")
	}
}

func TestStateChangesRequireCSRF(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	form := url.Values{"q": {"horse"}}

	resp, err := noRedirect.PostForm(srv.URL+"/search", form)
	if err != nil {
		t.Fatalf("POST /search: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("without token: got %d, want 403", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/search", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set(middleware.CSRFHeaderName, "token-123")
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "token-123"})

	resp, err = noRedirect.Do(req)
	if err != nil {
		t.Fatalf("POST /search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("with token: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<mark>Horse</mark>s") {
		t.Error("search fragment should highlight the match")
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	for _, path := range []string{"/static/app.css", "/static/app.js"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: got %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAPIRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	var last int
	for range 3 {
		resp, err := http.Get(srv.URL + "/api/codes?q=horse")
		if err != nil {
			t.Fatalf("GET /api/codes: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request: got %d, want 429", last)
	}

	// The lookup screen is not rate limited.
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /: got %d, want 200", resp.StatusCode)
	}
}

func TestMetricsRoute(t *testing.T) {
	srv, _ := newTestServer(t, 10)

	resp, err := http.Get(srv.URL + "/codes/0101210010")
	if err != nil {
		t.Fatalf("GET detail: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `route="/codes/{code}"`) {
		t.Errorf("metrics should label requests by route pattern:\n%s", body)
	}
}
