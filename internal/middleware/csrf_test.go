// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(CSRFToken(r)))
	})
}

func TestCSRFIssuesToken(t *testing.T) {
	for _, secure := range []bool{true, false} {
		handler := NewCSRF(secure)(okHandler())

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		var cookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == CSRFCookieName {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatal("expected CSRF cookie")
		}
		if cookie.Secure != secure {
			t.Errorf("cookie Secure: got %v, want %v", cookie.Secure, secure)
		}
		if len(cookie.Value) != 2*csrfTokenLength {
			t.Errorf("token length: got %d", len(cookie.Value))
		}
		// The first render sees the token without a cookie round trip.
		if rr.Body.String() != cookie.Value {
			t.Errorf("CSRFToken on first request: got %q, want %q", rr.Body.String(), cookie.Value)
		}
	}
}

func TestCSRFValidation(t *testing.T) {
	handler := NewCSRF(false)(okHandler())
	const token = "abc123"

	tests := []struct {
		name   string
		header string
		form   string
		want   int
	}{
		{name: "header match", header: token, want: http.StatusOK},
		{name: "form match", form: token, want: http.StatusOK},
		{name: "missing", want: http.StatusForbidden},
		{name: "mismatch", header: "other", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := url.Values{}
			if tt.form != "" {
				body.Set(CSRFFormField, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCSRFPostWithoutCookie(t *testing.T) {
	handler := NewCSRF(false)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/clear", nil)
	req.Header.Set(CSRFHeaderName, "guessed")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rr.Code)
	}
}
