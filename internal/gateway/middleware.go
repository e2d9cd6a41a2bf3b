package gateway

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/clinicops/clinic-core/internal/gate"
	"github.com/clinicops/clinic-core/pkg/types"
)

// corsMiddleware handles CORS headers
func (s *Service) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware adds security headers
func (s *Service) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// Protect runs the role gate in front of next. Only an admitted caller
// reaches the handler, with its identity stored in the request context.
// It satisfies scheduling.Guard.
func (s *Service) Protect(req gate.Requirement, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, session, decision, err := s.gate.AuthorizeSession(ctx, bearerToken(r), req)
		if err != nil {
			s.respond.Error(w, r, err)
			return
		}
		if !decision.Allowed() {
			s.respond.Error(w, r, decision.Err())
			return
		}

		if !s.admit(w, r, "user:"+caller.ID) {
			return
		}

		next(w, r.WithContext(gate.WithCaller(ctx, caller, session.ID)))
	})
}

// admit applies the rate limit for key and writes a 429 when it is spent
func (s *Service) admit(w http.ResponseWriter, r *http.Request, key string) bool {
	if s.limiter == nil {
		return true
	}
	ok, retryAfter := s.limiter.Allow(key)
	if ok {
		return true
	}

	s.logger.WithContext(r.Context()).WithField("key", key).Warn("Rate limit exceeded")
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	s.respond.Error(w, r, types.NewRateLimitError(retryAfter))
	return false
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// clientIP returns the address the request came from. X-Forwarded-For is
// only read when the direct peer is a trusted proxy; the rightmost hop that
// is not itself a trusted proxy is used.
func (s *Service) clientIP(r *http.Request) string {
	peer := remoteHost(r)
	if _, ok := s.trustedProxies[peer]; !ok {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if net.ParseIP(hop) == nil {
			break
		}
		if _, trusted := s.trustedProxies[hop]; !trusted {
			return hop
		}
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
