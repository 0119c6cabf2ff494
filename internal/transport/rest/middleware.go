package rest

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/baechuer/summons/internal/domain"
	"github.com/go-chi/httprate"
)

type RateLimitOptions struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// RateLimitMiddleware uses the shared Redis window when a cache is available
// and falls back to an in-process limiter otherwise.
func RateLimitMiddleware(cache domain.CacheRepository, opt RateLimitOptions) func(next http.Handler) http.Handler {
	if !opt.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	if opt.Limit <= 0 {
		opt.Limit = 100
	}
	if opt.Window <= 0 {
		opt.Window = time.Minute
	}
	if cache == nil {
		return httprate.LimitByIP(opt.Limit, opt.Window)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, _ := cache.AllowRequest(r.Context(), clientIP(r), opt.Limit, opt.Window)
			if !allowed {
				fail(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keeps it simple: RemoteAddr host part.
// Trusting X-Forwarded-For blindly is a spoofing risk.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// JSON API and crawler-only HTML: nothing needs to load
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=(), bluetooth=()")

		next.ServeHTTP(w, r)
	})
}
