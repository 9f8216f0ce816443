package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"hslookup/internal/dataset"
	"hslookup/internal/lookup"
	"hslookup/internal/render"
	"hslookup/internal/session"
)

func TestHomeRendersInitialState(t *testing.T) {
	env := newTestEnv(t, lookup.DefaultPaging())

	rec := httptest.NewRecorder()
	env.Lookup.Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "Showing 3 of 3", "3 codes · 2 chapters · 1 sections"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if env.States.saves != 0 {
		t.Errorf("viewing the page should not save state, got %d saves", env.States.saves)
	}
}

func TestSearch(t *testing.T) {
	t.Run("htmx gets the workspace fragment", func(t *testing.T) {
		env := newTestEnv(t, lookup.DefaultPaging())

		rec := httptest.NewRecorder()
		env.Lookup.Search(rec, htmxPost("/search", url.Values{"q": {"horse"}}))

		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200", rec.Code)
		}
		body := rec.Body.String()
		if strings.Contains(body, "<!DOCTYPE html>") {
			t.Error("fragment should not include the layout")
		}
		if !strings.Contains(body, `id="workspace"`) {
			t.Error("fragment should be the workspace")
		}
		if !strings.Contains(body, "<mark>Horse</mark>s: Purebred breeding animals") {
			t.Error("matches should be highlighted")
		}
		if strings.Contains(body, "Carcasses") {
			t.Error("non-matching rows should be filtered out")
		}
		if got := env.States.current().Query; got != "horse" {
			t.Errorf("stored query: got %q, want %q", got, "horse")
		}
		if env.Recorder.ops["search"] != 1 {
			t.Errorf("search ops: got %d, want 1", env.Recorder.ops["search"])
		}
	})

	t.Run("plain form post redirects", func(t *testing.T) {
		env := newTestEnv(t, lookup.DefaultPaging())

		req := htmxPost("/search", url.Values{"q": {"cattle"}})
		req.Header.Del("HX-Request")
		rec := httptest.NewRecorder()
		env.Lookup.Search(rec, req)

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("status: got %d, want 303", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/" {
			t.Errorf("Location: got %q, want /", loc)
		}
		if got := env.States.current().Query; got != "cattle" {
			t.Errorf("stored query: got %q", got)
		}
	})

	t.Run("no match shows the empty indicator", func(t *testing.T) {
		env := newTestEnv(t, lookup.DefaultPaging())

		rec := httptest.NewRecorder()
		env.Lookup.Search(rec, htmxPost("/search", url.Values{"q": {"zebra"}}))

		if !strings.Contains(rec.Body.String(), "No results found") {
			t.Error("expected the empty-result indicator")
		}
	})
}

func TestStateStoreOutage(t *testing.T) {
	renderer, err := render.New(false)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	holder := dataset.NewStaticHolder(testCollection(t), "test")
	h := NewLookup(renderer, holder, downStates{}, nil, nil, lookup.DefaultPaging(), 150*time.Millisecond, false)

	rec := httptest.NewRecorder()
	h.Search(rec, htmxPost("/search", url.Values{"q": {"horse"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<mark>Horse</mark>s: Purebred breeding animals") {
		t.Error("search results should render without the state store")
	}

	req := htmxPost("/chapters/2", nil)
	req = withChiURLParam(req, "chapter", "2")
	rec = httptest.NewRecorder()
	h.Chapter(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("chapter status: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Carcasses") {
		t.Error("chapter listing should render without the state store")
	}

	req = htmxPost("/clear", nil)
	req.Header.Del("HX-Request")
	rec = httptest.NewRecorder()
	h.Clear(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("plain clear: got %d, want 303", rec.Code)
	}
}

func TestChapterReplacesQuery(t *testing.T) {
	env := newTestEnv(t, lookup.DefaultPaging())
	env.Lookup.Search(httptest.NewRecorder(), htmxPost("/search", url.Values{"q": {"horse"}}))

	rec := httptest.NewRecorder()
	env.Lookup.Chapter(rec, withChiURLParam(htmxPost("/chapters/2", nil), "chapter", "2"))

	state := env.States.current()
	if state.Query != "" || state.Chapter != "2" {
		t.Errorf("state: got %+v, want chapter 2 without query", state)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Carcasses of bovine animals") || strings.Contains(body, "Horses") {
		t.Error("only chapter 2 rows should be visible")
	}

	rec = httptest.NewRecorder()
	env.Lookup.Clear(rec, htmxPost("/clear", nil))
	if got := env.States.current(); got.Chapter != "" || got.Query != "" {
		t.Errorf("after clear: got %+v", got)
	}
	if !strings.Contains(rec.Body.String(), "Showing 3 of 3") {
		t.Error("clear should show every record")
	}
}

func TestLoadMoreAndSelection(t *testing.T) {
	env := newTestEnv(t, lookup.Paging{PageSize: 1, Increment: 1})

	rec := httptest.NewRecorder()
	env.Lookup.Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "Showing 1 of 3") {
		t.Fatal("first page should show one row")
	}

	rec = httptest.NewRecorder()
	env.Lookup.More(rec, htmxPost("/more", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "Showing 2 of 3") || !strings.Contains(body, "Load more... (1 remaining)") {
		t.Errorf("load more should reveal one more row:\n%s", body)
	}

	rec = httptest.NewRecorder()
	env.Lookup.Select(rec, withChiURLParam(htmxPost("/codes/0101290010/select", nil), "code", "0101290010"))
	if got := env.States.current().Selected; got != "0101290010" {
		t.Errorf("selected: got %q", got)
	}
	if !strings.Contains(rec.Body.String(), `id="detail"`) {
		t.Error("selection should open the detail panel")
	}
	if got := env.States.current().Limit; got != 2 {
		t.Errorf("selection should keep the limit, got %d", got)
	}

	rec = httptest.NewRecorder()
	env.Lookup.Select(rec, withChiURLParam(htmxPost("/codes/9999999999/select", nil), "code", "9999999999"))
	if got := env.States.current().Selected; got != "0101290010" {
		t.Errorf("unknown code should not change the selection, got %q", got)
	}

	rec = httptest.NewRecorder()
	env.Lookup.CloseDetail(rec, htmxPost("/detail/close", nil))
	if got := env.States.current().Selected; got != "" {
		t.Errorf("close should deselect, got %q", got)
	}
	if strings.Contains(rec.Body.String(), `id="detail"`) {
		t.Error("detail panel should be gone")
	}
}

func TestWorkspaceFragmentCache(t *testing.T) {
	env := newTestEnv(t, lookup.DefaultPaging())

	first := httptest.NewRecorder()
	env.Lookup.Search(first, htmxPost("/search", url.Values{"q": {"horse"}}))

	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	req.Header.Set("HX-Request", "true")
	second := httptest.NewRecorder()
	env.Lookup.Results(second, req)

	if env.Recorder.misses != 1 || env.Recorder.hits != 1 {
		t.Errorf("cache lookups: got %d hits / %d misses, want 1/1", env.Recorder.hits, env.Recorder.misses)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("cached fragment should match the rendered one")
	}
	if len(env.Fragments.items) != 1 {
		t.Errorf("cached fragments: got %d, want 1", len(env.Fragments.items))
	}
}

func TestLoadFailure(t *testing.T) {
	renderer, err := render.New(false)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	states := &memStates{}
	h := NewLookup(renderer, failingSource{}, states, nil, nil, lookup.DefaultPaging(), lookup.DefaultDebounce, false)

	for name, fn := range map[string]http.HandlerFunc{
		"home":   h.Home,
		"search": h.Search,
		"clear":  h.Clear,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			fn(rec, htmxPost("/", url.Values{"q": {"horse"}}))

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("status: got %d, want 503", rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, "Failed to load lookup data") || !strings.Contains(body, "no such file") {
				t.Errorf("body should explain the failure:\n%s", body)
			}
		})
	}
	if states.saves != 0 {
		t.Errorf("no state should be saved without data, got %d saves", states.saves)
	}
}

func TestDetail(t *testing.T) {
	env := newTestEnv(t, lookup.DefaultPaging())

	rec := httptest.NewRecorder()
	env.Lookup.Detail(rec, withChiURLParam(httptest.NewRequest(http.MethodGet, "/codes/0201100000", nil), "code", "0201100000"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "0201.10.00.00") || !strings.Contains(body, "<strong>Meat and edible meat offal</strong>") {
		t.Error("detail page should show the record")
	}

	rec = httptest.NewRecorder()
	env.Lookup.Detail(rec, withChiURLParam(httptest.NewRequest(http.MethodGet, "/codes/0000000000", nil), "code", "0000000000"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Code not found") {
		t.Error("unknown code should render the not-found page")
	}
}

func TestCopy(t *testing.T) {
	env := newTestEnv(t, lookup.DefaultPaging())
	r, _ := env.Collection.Get("0101210010")

	tests := []struct {
		name   string
		code   string
		format string
		status int
		body   string
	}{
		{"default is code", "0101210010", "", http.StatusOK, "0101.21.00.10"},
		{"code", "0101210010", "code", http.StatusOK, "0101.21.00.10"},
		{"all", "0101210010", "all", http.StatusOK, r.CopyAllText()},
		{"bad format", "0101210010", "xml", http.StatusBadRequest, ""},
		{"unknown code", "0000000000", "code", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/codes/" + tt.code + "/copy?format=" + tt.format
			rec := httptest.NewRecorder()
			env.Lookup.Copy(rec, withChiURLParam(httptest.NewRequest(http.MethodGet, target, nil), "code", tt.code))

			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			if got := rec.Body.String(); got != tt.body {
				t.Errorf("body: got %q, want %q", got, tt.body)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
				t.Errorf("Content-Type: got %q", ct)
			}
		})
	}
}

func TestThemeToggle(t *testing.T) {
	env := newTestEnv(t, lookup.DefaultPaging())

	rec := httptest.NewRecorder()
	env.Lookup.Theme(rec, httptest.NewRequest(http.MethodPost, "/theme", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want 303", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != ThemeCookieName || cookies[0].Value != "dark" {
		t.Fatalf("cookies: got %+v, want %s=dark", cookies, ThemeCookieName)
	}

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.AddCookie(&http.Cookie{Name: ThemeCookieName, Value: "dark"})
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	env.Lookup.Theme(rec, req)
	if rec.Header().Get("HX-Refresh") != "true" {
		t.Error("HTMX toggle should ask for a refresh")
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].Value != "light" {
		t.Errorf("dark should toggle to light, got %+v", c)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ThemeCookieName, Value: "dark"})
	rec = httptest.NewRecorder()
	env.Lookup.Home(rec, req)
	if !strings.Contains(rec.Body.String(), `data-theme="dark"`) {
		t.Error("page should carry the dark theme")
	}
}

// TestSessionRoundTrip runs a search against the Valkey-backed session
// store and checks that the next page view restores it.
func TestSessionRoundTrip(t *testing.T) {
	client := testValkeyClient(t)

	renderer, err := render.New(false)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	c := testCollection(t)
	h := NewLookup(renderer, staticSource(c), session.NewStore(client, false), nil, nil,
		lookup.DefaultPaging(), 150*time.Millisecond, false)

	rec := httptest.NewRecorder()
	h.Search(rec, htmxPost("/search", url.Values{"q": {"carcasses"}}))
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("search should set the session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = httptest.NewRecorder()
	h.Home(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `value="carcasses"`) {
		t.Error("search box should keep the stored query")
	}
	if !strings.Contains(body, "Showing 1 of 1") {
		t.Error("stored query should still filter the table")
	}
}
