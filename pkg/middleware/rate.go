// Package middleware provides the storefront's HTTP middleware.
package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rituelsdebene/boutique/pkg/response"
)

// bucket is a fixed-window request count for one client.
type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter tracks request counts per client IP.
type Limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow counts one request for key and reports whether it is within limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}

	b.count++
	if len(l.buckets) > 10_000 {
		l.evict(now)
	}
	return b.count <= l.max
}

// evict drops expired windows. Caller holds mu.
func (l *Limiter) evict(now time.Time) {
	for k, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, k)
		}
	}
}

// Proxies are the networks whose X-Forwarded-For header is believed.
type Proxies []*net.IPNet

// ParseProxies reads CIDRs or bare IPs. Invalid entries are skipped and
// reported in the error; the valid ones are still returned.
func ParseProxies(specs []string) (Proxies, error) {
	var out Proxies
	var bad []string
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if !strings.Contains(spec, "/") {
			ip := net.ParseIP(spec)
			if ip == nil {
				bad = append(bad, spec)
				continue
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(spec)
		if err != nil {
			bad = append(bad, spec)
			continue
		}
		out = append(out, n)
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("middleware: invalid trusted proxies: %s", strings.Join(bad, ", "))
	}
	return out, nil
}

func (p Proxies) trusts(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range p {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP is the peer address, or, when the peer is a trusted proxy, the
// right-most X-Forwarded-For hop that is not itself a trusted proxy.
func (p Proxies) ClientIP(r *http.Request) string {
	host := remoteHost(r)
	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" || !p.trusts(host) {
		return host
	}

	hops := strings.Split(fwd, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if net.ParseIP(hop) == nil {
			return host
		}
		if !p.trusts(hop) {
			return hop
		}
	}
	return strings.TrimSpace(hops[0])
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit limits each client IP to max requests per window. Forwarded
// addresses count only when the request came through one of proxies.
func RateLimit(max int, window time.Duration, proxies Proxies) func(http.Handler) http.Handler {
	l := NewLimiter(max, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(proxies.ClientIP(r)) {
				response.Error(w, http.StatusTooManyRequests, "Trop de requêtes")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
