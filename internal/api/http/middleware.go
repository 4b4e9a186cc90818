package apihttp

import (
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"torrentstream/queueservice/internal/metrics"
)

// statusRecorder remembers the first status written and the body size.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// queuePath splits /queues/{id}[/{action}]. Fixed routes under /queues/
// and deeper paths are not queue paths.
func queuePath(path string) (id, action string, ok bool) {
	if path == "/queues/settings" || path == "/queues/sources/health" {
		return "", "", false
	}
	rest, found := strings.CutPrefix(path, "/queues/")
	if !found {
		return "", "", false
	}
	id, action, _ = strings.Cut(strings.Trim(rest, "/"), "/")
	if id == "" || strings.Contains(action, "/") {
		return "", "", false
	}
	return id, action, true
}

// normalizeRoute maps a path onto a bounded set of metric labels.
func normalizeRoute(path string) string {
	switch path {
	case "/health", "/metrics", "/queues", "/queues/settings", "/queues/sources/health":
		return path
	}
	id, action, ok := queuePath(path)
	if !ok || id == "" {
		return "/other"
	}
	switch action {
	case "":
		return "/queues/{id}"
	case "refresh", "filters", "sort":
		return "/queues/{id}/" + action
	default:
		return "/other"
	}
}

// unmetered paths bypass request metrics and the rate limiter.
func unmetered(path string) bool {
	return path == "/health" || path == "/metrics"
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newStatusRecorder(w)
		next.ServeHTTP(rw, r)

		attrs := make([]slog.Attr, 0, 10)
		attrs = append(attrs,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Int("bytes", rw.size),
			slog.Int64("durationMs", time.Since(start).Milliseconds()),
			slog.String("clientIP", clientIP(r)),
		)
		if id, action, ok := queuePath(r.URL.Path); ok {
			attrs = append(attrs, slog.String("queue", strings.ToLower(id)))
			if action != "" {
				attrs = append(attrs, slog.String("action", action))
			}
		}
		if q := r.URL.RawQuery; q != "" {
			attrs = append(attrs, slog.String("query", truncate(q, 180)))
		}
		if ua := r.UserAgent(); ua != "" {
			attrs = append(attrs, slog.String("userAgent", truncate(ua, 120)))
		}
		logger.LogAttrs(r.Context(), requestLogLevel(r.URL.Path, rw.status), "http request", attrs...)
	})
}

func requestLogLevel(path string, status int) slog.Level {
	if status >= 500 {
		return slog.LevelError
	}
	if status >= 400 {
		return slog.LevelWarn
	}
	if unmetered(path) {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			logger.Error("panic recovered",
				slog.Any("error", recovered),
				slog.String("method", r.Method),
				slog.String("route", normalizeRoute(r.URL.Path)),
				slog.String("clientIP", clientIP(r)),
				slog.String("stack", string(debug.Stack())),
			)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unmetered(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rw := newStatusRecorder(w)
		next.ServeHTTP(rw, r)
		route := normalizeRoute(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	if ip := strings.TrimSpace(first); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	switch {
	case limit <= 0 || len(value) <= limit:
		return value
	case limit <= 3:
		return value[:limit]
	default:
		return value[:limit-3] + "..."
	}
}

// rateLimitMiddleware answers 429 once the global token bucket is empty.
// A non-positive rate disables it.
func rateLimitMiddleware(rps float64, burst int, next http.Handler) http.Handler {
	if rps <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !unmetered(r.URL.Path) && !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
