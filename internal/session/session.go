// Package session provides Valkey-backed per-visitor filter state.
// Visitors are identified by a cookie and their lookup.State is stored as
// JSON in Valkey with automatic TTL expiry.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hslookup/internal/lookup"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "hs_session"

	// DefaultTTL is how long an idle visitor's state lives in Valkey.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "hs:session:"
)

// Store manages visitor state in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store backed by the given Valkey client.
// secure marks the cookie Secure; set it when served over TLS.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
		secure: secure,
	}
}

// Load returns the visitor's stored state. ok is false when the visitor
// has no cookie or the state has expired.
func (s *Store) Load(ctx context.Context, r *http.Request) (state lookup.State, ok bool, err error) {
	id := sessionID(r)
	if id == "" {
		return lookup.State{}, false, nil
	}

	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return lookup.State{}, false, nil
	}
	if err != nil {
		return lookup.State{}, false, fmt.Errorf("session get: %w", err)
	}

	if err := json.Unmarshal(payload, &state); err != nil {
		return lookup.State{}, false, fmt.Errorf("session unmarshal: %w", err)
	}
	return state, true, nil
}

// Save stores the visitor's state and refreshes its TTL. A visitor without
// a valid cookie gets a new session ID.
func (s *Store) Save(ctx context.Context, w http.ResponseWriter, r *http.Request, state lookup.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	id := sessionID(r)
	if id == "" {
		id = uuid.NewString()
	}

	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return nil
}

// sessionID returns the cookie value when it is a well-formed UUID.
// Anything else is treated as no session.
func sessionID(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}
