package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/token"
)

type fakeVerifier struct {
	calls int
	id    token.Identity
	err   error
}

func (f *fakeVerifier) Verify(raw string) (token.Identity, error) {
	f.calls++
	return f.id, f.err
}

func gated(v Verifier) http.Handler {
	return RequireAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, id)
	}))
}

func TestRequireAuth_ValidToken(t *testing.T) {
	v := &fakeVerifier{id: token.Identity{ID: 7, Username: "alice"}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	gated(v).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if v.calls != 1 {
		t.Errorf("verify calls = %d, want 1", v.calls)
	}
}

func TestRequireAuth_MalformedHeaderSkipsVerify(t *testing.T) {
	for _, header := range []string{"", "abc", "Basic abc", "bearer abc", "Bearer "} {
		v := &fakeVerifier{id: token.Identity{ID: 1}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		gated(v).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, w.Code)
		}
		if v.calls != 0 {
			t.Errorf("header %q: verify called %d times", header, v.calls)
		}
	}
}

func TestRequireAuth_VerifyFailure(t *testing.T) {
	v := &fakeVerifier{err: errors.Join(apperr.ErrInvalidToken, errors.New("bad signature"))}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer forged")
	w := httptest.NewRecorder()
	gated(v).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"203.0.113.9", "203.0.113.9"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	called := false
	h := RateLimit(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	if !called {
		t.Error("next handler not called")
	}
}
