package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"), "clients are counted separately")

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"), "window reset")
}

func TestRateLimit_Responds429(t *testing.T) {
	proxies, err := ParseProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	h := RateLimit(1, time.Minute, proxies)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("198.51.100.7:4000", ""))
	assert.Equal(t, http.StatusTooManyRequests, do("198.51.100.7:4000", ""))
	assert.Equal(t, http.StatusTooManyRequests, do("198.51.100.7:4000", "203.0.113.50"),
		"forwarded header from an untrusted peer is ignored")

	assert.Equal(t, http.StatusOK, do("10.0.0.2:4000", "203.0.113.9"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.3:4000", "203.0.113.9, 10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:4000", "203.0.113.10"))
}

func TestProxies_ClientIP(t *testing.T) {
	proxies, err := ParseProxies([]string{"10.0.0.0/8", "192.0.2.1", "nonsense"})
	assert.Error(t, err)
	require.Len(t, proxies, 2)

	cases := []struct {
		name, remote, forwarded, want string
	}{
		{"direct", "198.51.100.7:4000", "", "198.51.100.7"},
		{"spoofed from untrusted peer", "198.51.100.7:4000", "1.1.1.1", "198.51.100.7"},
		{"through proxy", "10.1.2.3:4000", "203.0.113.9", "203.0.113.9"},
		{"client prepends a fake hop", "10.1.2.3:4000", "1.1.1.1, 203.0.113.9", "203.0.113.9"},
		{"proxy chain", "192.0.2.1:4000", "203.0.113.9, 10.0.0.1", "203.0.113.9"},
		{"garbage hop", "10.1.2.3:4000", "not-an-ip", "10.1.2.3"},
		{"only proxies", "10.1.2.3:4000", "10.9.9.9", "10.9.9.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			assert.Equal(t, tc.want, proxies.ClientIP(req))
		})
	}
}

func TestCORS(t *testing.T) {
	h := CORS(StorefrontCORS("https://rituelsdebene.fr"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	preflight := httptest.NewRequest(http.MethodOptions, "/cart", nil)
	preflight.Header.Set("Origin", "https://rituelsdebene.fr")
	preflight.Header.Set("Access-Control-Request-Method", "PUT")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://rituelsdebene.fr", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	other := httptest.NewRequest(http.MethodGet, "/cart", nil)
	other.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
