// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Most tests run against in-memory fakes; the session round trip is
// skipped when Valkey is unavailable.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"hslookup/internal/dataset"
	"hslookup/internal/lookup"
	"hslookup/internal/models"
	"hslookup/internal/render"
)

func testRecord(code, chapter, chapterName, short string) models.Record {
	return models.Record{
		Code:             code,
		FormattedCode:    code[:4] + "." + code[4:6] + "." + code[6:8] + "." + code[8:],
		DescriptionShort: short,
		DescriptionRaw:   strings.ToLower(short),
		DescriptionLong:  chapterName + " > " + short,
		SectionNumber:    "SECTION I",
		SectionName:      "LIVE ANIMALS; ANIMAL PRODUCTS",
		ChapterNumber:    chapter,
		ChapterName:      chapterName,
		GeneralRate:      "Free",
		Units:            "No.",
		HS2:              code[:2],
		HS4:              code[:4],
		HS6:              code[:6],
		HS8:              code[:8],
	}
}

func testCollection(t *testing.T) *lookup.Collection {
	t.Helper()
	c, err := lookup.NewCollection([]models.Record{
		testRecord("0101210010", "1", "Live animals", "Horses: Purebred breeding animals"),
		testRecord("0101290010", "1", "Live animals", "Horses: Other"),
		testRecord("0201100000", "2", "Meat and edible meat offal", "Carcasses of bovine animals"),
	})
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	return c
}

// failingSource reports a terminal load failure.
type failingSource struct{}

func (failingSource) Current() (*dataset.Snapshot, error) {
	return nil, errors.Join(dataset.ErrNotLoaded, errors.New("open data/hs10_lookup.json: no such file or directory"))
}

// memStates keeps the state of a single visitor.
type memStates struct {
	mu    sync.Mutex
	state lookup.State
	ok    bool
	saves int
}

func (m *memStates) Load(_ context.Context, _ *http.Request) (lookup.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.ok, nil
}

func (m *memStates) Save(_ context.Context, _ http.ResponseWriter, _ *http.Request, s lookup.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state, m.ok = s, true
	m.saves++
	return nil
}

func (m *memStates) current() lookup.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// downStates fails every call, like a Valkey outage.
type downStates struct{}

func (downStates) Load(context.Context, *http.Request) (lookup.State, bool, error) {
	return lookup.State{}, false, errors.New("valkey down")
}

func (downStates) Save(context.Context, http.ResponseWriter, *http.Request, lookup.State) error {
	return errors.New("valkey down")
}

type memFragments struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (m *memFragments) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *memFragments) Set(_ context.Context, key string, html []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string][]byte)
	}
	m.items[key] = append([]byte(nil), html...)
}

type countingRecorder struct {
	mu     sync.Mutex
	ops    map[string]int
	hits   int
	misses int
}

func (c *countingRecorder) Operation(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ops == nil {
		c.ops = make(map[string]int)
	}
	c.ops[op]++
}

func (c *countingRecorder) CacheLookup(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// testEnv holds a lookup handler group and its fakes.
type testEnv struct {
	Collection *lookup.Collection
	States     *memStates
	Fragments  *memFragments
	Recorder   *countingRecorder
	Lookup     *Lookup
	API        *API
}

func newTestEnv(t *testing.T, paging lookup.Paging) *testEnv {
	t.Helper()

	renderer, err := render.New(false)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	c := testCollection(t)
	holder := dataset.NewStaticHolder(c, "test")

	env := &testEnv{
		Collection: c,
		States:     &memStates{},
		Fragments:  &memFragments{},
		Recorder:   &countingRecorder{},
	}
	env.Lookup = NewLookup(renderer, holder, env.States, env.Fragments, env.Recorder, paging, 150*time.Millisecond, false)
	env.API = NewAPI(holder, paging)
	return env
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// htmxPost builds an HTMX form submission.
func htmxPost(target string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("HX-Request", "true")
	return r
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testValkeyClient returns a Redis client on DB 15, or skips the test.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "hs:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

func staticSource(c *lookup.Collection) SnapshotSource {
	return dataset.NewStaticHolder(c, "test")
}
