package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movielens-api/internal/auth"
	"github.com/Clark-Hu/movielens-api/internal/logging"
	"github.com/Clark-Hu/movielens-api/internal/metrics"
)

func requestLogger(r *http.Request) *zerolog.Logger {
	l := logging.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
	return &l
}

// instrument logs every request and records it in the request metrics under
// its route pattern, so path parameters do not explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		elapsed := time.Since(start)
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), elapsed)

		requestLogger(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", elapsed).
			Msg("request")
	})
}

// requireIdentity rejects anonymous callers with 401.
func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.IdentityFrom(r.Context()).IsAnonymous() {
			respondError(w, http.StatusUnauthorized, codeUnauthorized, "Authentication credentials were not provided")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit throttles mutating routes per client IP. A non-positive request
// budget disables it.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.cfg.RateLimitRequests <= 0 || s.cfg.RateLimitWindowSecs <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(
		s.cfg.RateLimitRequests,
		time.Duration(s.cfg.RateLimitWindowSecs)*time.Second,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, codeRateLimited, "Too many requests")
		}),
	)
}
