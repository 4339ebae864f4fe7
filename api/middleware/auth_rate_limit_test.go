package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuthRateLimitBlocksAfterLimit(t *testing.T) {
	cases := []struct {
		name              string
		policy            AuthRateLimitPolicy
		remote            string
		body              func(i int) string
		allowedBeforeStop int
	}{
		{
			name:              "per email across addresses",
			policy:            NewAuthRateLimitPolicy("login", time.Minute, 0, 2),
			body:              func(int) string { return `{"email":"Blocked@Example.com ","password":"x"}` },
			allowedBeforeStop: 2,
		},
		{
			name:              "per ip across emails",
			policy:            NewAuthRateLimitPolicy("register", time.Minute, 1, 0),
			body:              func(i int) string { return `{"email":"user` + string(rune('a'+i)) + `@example.com"}` },
			allowedBeforeStop: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := AuthRateLimit(tc.policy, newFakeRateStore(), nil)(http.HandlerFunc(okHandler))
			for i := 0; i <= tc.allowedBeforeStop; i++ {
				req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tc.body(i)))
				req.RemoteAddr = "5.6.7.8:" + string(rune('1'+i)) + "000"
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)

				if i < tc.allowedBeforeStop {
					if rec.Code != http.StatusOK {
						t.Fatalf("attempt %d: expected 200, got %d", i+1, rec.Code)
					}
					continue
				}
				if rec.Code != http.StatusTooManyRequests {
					t.Fatalf("attempt %d: expected 429, got %d", i+1, rec.Code)
				}
				var payload struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
					t.Fatalf("decode error: %v", err)
				}
				if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
					t.Fatalf("unexpected code: %s", payload.Error.Code)
				}
				if got := rec.Header().Get("Retry-After"); got != "60" {
					t.Fatalf("expected Retry-After 60, got %q", got)
				}
			}
		})
	}
}

func TestAuthRateLimitRestoresBody(t *testing.T) {
	const body = `{"email":"tester@example.com","password":"secret"}`
	h := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 5, 5), newFakeRateStore(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := io.ReadAll(r.Body)
			if err != nil || string(got) != body {
				t.Fatalf("handler saw %q err=%v", got, err)
			}
			w.WriteHeader(http.StatusNoContent)
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestAuthRateLimitScopesPerPolicy(t *testing.T) {
	store := newFakeRateStore()
	login := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 0), store, nil)
	register := AuthRateLimit(NewAuthRateLimitPolicy("register", time.Minute, 1, 0), store, nil)

	for _, h := range []http.Handler{login(http.HandlerFunc(okHandler)), register(http.HandlerFunc(okHandler))} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected independent counters per policy, got %d", rec.Code)
		}
	}
	if _, seen := store.counts["ip:login:9.9.9.9"]; !seen {
		t.Fatalf("expected forwarded ip scope, got %v", store.counts)
	}
}

func TestAuthRateLimitFailsOpen(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	h := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 1), store, nil)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@example.com"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected request to pass when the counter store fails, got %d", rec.Code)
	}
}

func TestAuthRateLimitDisabledPolicyIsPassthrough(t *testing.T) {
	h := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 1, 1), newFakeRateStore(), nil)(http.HandlerFunc(okHandler))
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
		if rec.Code != http.StatusOK {
			t.Fatalf("zero window disables limiting, got %d", rec.Code)
		}
	}
}
