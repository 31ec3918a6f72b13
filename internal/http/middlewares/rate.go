package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/laneeditor/internal/http/errors"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"
	"github.com/dropDatabas3/laneeditor/internal/rate"
	"github.com/dropDatabas3/laneeditor/internal/session"
)

// clientIP extrae la IP del cliente, considerando proxies.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// UserRateKey usa el usuario OSM de la sesión, o la IP si no hay.
func UserRateKey(r *http.Request) string {
	if sess := session.FromContext(r.Context()); sess.Authenticated() {
		return "user:" + strconv.FormatInt(sess.UserOSMID, 10) + "|" + r.URL.Path
	}
	return "ip:" + clientIP(r) + "|" + r.URL.Path
}

// WithRateLimit aplica el limiter. Sin limiter no hace nada; si el limiter
// falla el request pasa.
func WithRateLimit(l rate.Limiter, key RateKeyFunc) Middleware {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if key == nil {
		key = UserRateKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), key(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limit error", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if res.WindowTTL > 0 {
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.WindowTTL).Unix(), 10))
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				errors.WriteError(w, errors.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
