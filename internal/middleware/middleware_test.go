package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Varun5711/clubhouse/internal/auth"
	"github.com/Varun5711/clubhouse/internal/idgen"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

type stubVerifier struct {
	tokens map[string]*auth.Claims
	err    error
}

func (s *stubVerifier) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if claims, ok := s.tokens[token]; ok {
		return claims, nil
	}
	return nil, auth.ErrInvalidToken
}

func claimsFor(id string, admin bool) *auth.Claims {
	return &auth.Claims{IsAdmin: admin, RegisteredClaims: jwt.RegisteredClaims{Subject: id}}
}

func newAuth(err error) *AuthMiddleware {
	return NewAuthMiddleware(&stubVerifier{
		tokens: map[string]*auth.Claims{
			"member-token": claimsFor("A1B2C3", false),
			"admin-token":  claimsFor("ADM1N0", true),
		},
		err: err,
	}, "auth_token", logger.Discard())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestRequireAuth(t *testing.T) {
	m := newAuth(nil)
	var seen string
	h := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		seen = GetMemberID(r.Context())
	})

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		member string
	}{
		{"missing", func(r *http.Request) {}, http.StatusBadRequest, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer member-token") }, http.StatusOK, "A1B2C3"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth_token", Value: "admin-token"}) }, http.StatusOK, "ADM1N0"},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
		{"not bearer", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, http.StatusBadRequest, ""},
	}

	for _, tc := range cases {
		seen = ""
		req := httptest.NewRequest(http.MethodGet, "/member/A1B2C3", nil)
		tc.setup(req)
		rec := httptest.NewRecorder()

		h(rec, req)

		if rec.Code != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}
		if seen != tc.member {
			t.Errorf("%s: expected member %q, got %q", tc.name, tc.member, seen)
		}
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	m := newAuth(auth.ErrTokenExpired)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer member-token")

	m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {})(rec, req)

	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Token expired" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestRequireAuth_VerifierFailure(t *testing.T) {
	m := newAuth(errors.New("redis down"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer member-token")

	m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {})(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	m := newAuth(nil)
	h := m.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for token, want := range map[string]int{"member-token": http.StatusForbidden, "admin-token": http.StatusOK} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/members", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		h(rec, req)

		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d", token, want, rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name    string
		proxies *TrustedProxies
		headers map[string]string
		remote  string
		want    string
	}{
		{"untrusted peer ignores forwarded", proxies, map[string]string{"X-Forwarded-For": "203.0.113.195"}, "198.51.100.7:1234", "198.51.100.7"},
		{"untrusted peer ignores real ip", proxies, map[string]string{"X-Real-IP": "203.0.113.195"}, "198.51.100.7:1234", "198.51.100.7"},
		{"no proxies configured", nil, map[string]string{"X-Forwarded-For": "203.0.113.195"}, "10.0.0.5:1234", "10.0.0.5"},
		{"trusted peer", proxies, map[string]string{"X-Forwarded-For": "203.0.113.195"}, "10.0.0.5:1234", "203.0.113.195"},
		{"rightmost untrusted hop", proxies, map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.195, 10.0.0.9"}, "10.0.0.5:1234", "203.0.113.195"},
		{"bare address proxy", proxies, map[string]string{"X-Forwarded-For": " 203.0.113.195 "}, "192.168.1.1:80", "203.0.113.195"},
		{"garbage hop stops the walk", proxies, map[string]string{"X-Forwarded-For": "203.0.113.195, nonsense"}, "10.0.0.5:1234", "10.0.0.5"},
		{"trusted peer real ip", proxies, map[string]string{"X-Real-IP": "192.0.2.10"}, "10.0.0.5:1234", "192.0.2.10"},
		{"remote no port", nil, nil, "192.168.1.50", "192.168.1.50"},
		{"ipv6 localhost", nil, nil, "[::1]:12345", "127.0.0.1"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		for k, v := range tc.headers {
			req.Header.Set(k, v)
		}
		req.RemoteAddr = tc.remote

		if got := tc.proxies.ClientIP(req); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	for _, entry := range []string{"not-an-ip", "10.0.0.0/99"} {
		if _, err := ParseTrustedProxies([]string{entry}); err == nil {
			t.Errorf("%q: expected error", entry)
		}
	}
}

func TestRateLimiter_LocalWindow(t *testing.T) {
	rl := NewRateLimiter(nil, 2, time.Minute, nil, logger.Discard())
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	h := rl.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	do := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	if rec := do("/login", "10.0.0.1"); rec.Code != http.StatusOK || rec.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Fatalf("unexpected first response: %d remaining=%s", rec.Code, rec.Header().Get("X-RateLimit-Remaining"))
	}
	do("/login", "10.0.0.1")

	rec := do("/login", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	if rec := do("/login", "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("other client should not be limited, got %d", rec.Code)
	}
	if rec := do("/password-forgotten", "10.0.0.1"); rec.Code != http.StatusOK {
		t.Errorf("other route should not be limited, got %d", rec.Code)
	}

	now = now.Add(time.Minute + time.Second)
	if rec := do("/login", "10.0.0.1"); rec.Code != http.StatusOK {
		t.Errorf("expected window to slide, got %d", rec.Code)
	}
}

func TestRateLimiter_SpoofedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(nil, 3, time.Minute, nil, logger.Discard())
	h := rl.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	passed := 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code == http.StatusOK {
			passed++
		}
	}

	if passed != 3 {
		t.Errorf("expected 3 requests through, got %d", passed)
	}
	if len(rl.local) != 1 {
		t.Errorf("expected one window, got %d", len(rl.local))
	}
}

func TestRateLimiter_EvictsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(nil, 5, time.Minute, nil, logger.Discard())
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		rl.Allow(ctx, "login-phone", strconv.Itoa(i))
	}
	if len(rl.local) != 50 {
		t.Fatalf("expected 50 windows, got %d", len(rl.local))
	}

	now = now.Add(2 * time.Minute)
	rl.Allow(ctx, "login-phone", "fresh")
	if len(rl.local) != 1 {
		t.Errorf("expected idle windows to be evicted, got %d", len(rl.local))
	}
}

func TestRateLimiter_AllowBySubject(t *testing.T) {
	rl := NewRateLimiter(nil, 2, time.Minute, nil, logger.Discard())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow(ctx, "login-phone", "0612345678"); !ok {
			t.Fatalf("attempt %d should pass", i+1)
		}
	}
	ok, reset := rl.Allow(ctx, "login-phone", "0612345678")
	if ok || reset.IsZero() {
		t.Errorf("expected third attempt to be denied with a reset time, got ok=%v reset=%v", ok, reset)
	}
	if ok, _ := rl.Allow(ctx, "login-phone", "0699999999"); !ok {
		t.Error("other subject should not be limited")
	}
}

func TestRateLimiter_RedisUnavailableAllows(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	rl := NewRateLimiter(client, 1, time.Minute, nil, logger.Discard())
	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow(context.Background(), "login", "10.0.0.1"); !ok {
			t.Fatalf("attempt %d: expected fail-open when redis is down", i+1)
		}
	}
}

func TestCORS(t *testing.T) {
	h := CORS("http://localhost:8080")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:8080" {
		t.Errorf("unexpected allow origin %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected credentials to be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("foreign origin must not be allowed")
	}
}

func TestRequestIDLoggingRecovery(t *testing.T) {
	gen, err := idgen.NewRequestIDGenerator(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	log := logger.NewWithWriter("club-api", &buf, logger.DEBUG)

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestID(gen), Logging(log), Recovery(log))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	id := rec.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("expected request id header")
	}

	out := buf.String()
	if !strings.Contains(out, "panic serving GET /explode: boom") {
		t.Errorf("expected panic log, got %q", out)
	}
	if !strings.Contains(out, "GET /explode 500") || !strings.Contains(out, "id="+id) {
		t.Errorf("expected access log with request id, got %q", out)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rec = httptest.NewRecorder()
	RequestID(gen)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != "client-id" {
		t.Errorf("expected client id to be kept, got %q", rec.Header().Get(RequestIDHeader))
	}
}
