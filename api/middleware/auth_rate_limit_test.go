package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
)

func TestAuthRateLimit_AllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"tester@example.com"`) {
			t.Fatalf("unexpected body: %s", string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"tester@example.com","password":"secret"}`))
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimit_EmailLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"blocked@example.com","password":"secret"}`))
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		switch {
		case i < 2 && rec.Code != http.StatusOK:
			t.Fatalf("expected success before limit, got %d", rec.Code)
		case i >= 2:
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
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
		}
	}
}

func TestAuthRateLimit_IPLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("register", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"foo@example.com","password":"secret"}`))
		req.RemoteAddr = "5.6.7.8:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected success, got %d", rec.Code)
		}
		if i == 1 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
		}
	}
}

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRateStore) RateLimitKey(scope string) string {
	return "test:rate_limit:" + scope
}

func TestAuthRateLimitPoliciesFromConfig(t *testing.T) {
	login, register := AuthRateLimitPolicies(config.AuthRateLimitConfig{
		LoginWindow:        time.Minute,
		LoginIPLimit:       20,
		LoginEmailLimit:    5,
		RegisterWindow:     5 * time.Minute,
		RegisterIPLimit:    10,
		RegisterEmailLimit: 3,
		TrustedProxies:     []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
	})
	if login.name != "login" || login.emailLimit != 5 || login.ipLimit != 20 {
		t.Fatalf("unexpected login policy %+v", login)
	}
	if register.window != 5*time.Minute || register.emailLimit != 3 {
		t.Fatalf("unexpected register policy %+v", register)
	}
	if len(login.proxies) != 1 || len(register.proxies) != 1 {
		t.Fatalf("expected trusted proxies on both policies")
	}
	if !login.enabled() || !register.enabled() {
		t.Fatal("expected both policies enabled")
	}
	if (AuthRateLimitPolicy{}).enabled() {
		t.Fatal("expected zero policy disabled")
	}
}

func TestAuthRateLimit_EmailKeyIsNormalizedAndHashed(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("Login", time.Minute, 0, 1)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"Mixed@Example.com "}`))
	handler.ServeHTTP(httptest.NewRecorder(), first)
	second := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"mixed@example.com"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected case-insensitive email throttling, got %d", rec.Code)
	}
	for key := range store.counts {
		if strings.Contains(key, "example.com") {
			t.Fatalf("raw email leaked into key %s", key)
		}
	}
}

func TestAuthRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
		}
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Fatalf("rotating X-Forwarded-For must not reset the limit, got %v", codes)
	}
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	cases := []struct {
		name      string
		remote    string
		forwarded []string
		want      string
	}{
		{name: "direct client", remote: "198.51.100.7:4000", want: "198.51.100.7"},
		{name: "untrusted peer header ignored", remote: "198.51.100.7:4000", forwarded: []string{"1.1.1.1"}, want: "198.51.100.7"},
		{name: "one proxy", remote: "10.0.0.5:443", forwarded: []string{"198.51.100.7"}, want: "198.51.100.7"},
		{name: "client prepends a spoof", remote: "10.0.0.5:443", forwarded: []string{"1.1.1.1, 198.51.100.7"}, want: "198.51.100.7"},
		{name: "proxy chain", remote: "10.0.0.5:443", forwarded: []string{"198.51.100.7, 10.1.2.3"}, want: "198.51.100.7"},
		{name: "split headers", remote: "10.0.0.5:443", forwarded: []string{"198.51.100.7", "10.1.2.3"}, want: "198.51.100.7"},
		{name: "garbage hop stops the walk", remote: "10.0.0.5:443", forwarded: []string{"198.51.100.7, junk"}, want: "10.0.0.5"},
		{name: "ipv4 mapped peer", remote: "[::ffff:10.0.0.5]:443", forwarded: []string{"198.51.100.7"}, want: "198.51.100.7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
			req.RemoteAddr = tc.remote
			for _, v := range tc.forwarded {
				req.Header.Add("X-Forwarded-For", v)
			}
			if got := clientIP(req, trusted); got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}
