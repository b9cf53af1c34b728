package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes as recorded by ObserveLogin.
const (
	LoginSuccess     = "success"
	LoginFailed      = "failed"
	LoginRejected    = "rejected"
	LoginMFARequired = "mfa_required"
)

// Verification outcomes as recorded by ObserveVerify.
const (
	VerifyOK             = "ok"
	VerifyInvalidToken   = "invalid_token"
	VerifySessionRevoked = "session_revoked"
	VerifyUserInactive   = "user_inactive"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "voltex",
		Name:      "http_in_flight_requests",
		Help:      "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voltex",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voltex",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voltex",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	tokenVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voltex",
			Subsystem: "auth",
			Name:      "token_verifications_total",
			Help:      "Bearer token verifications by outcome.",
		},
		[]string{"outcome"},
	)

	sessionsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "voltex",
		Subsystem: "auth",
		Name:      "sessions_swept_total",
		Help:      "Expired or invalidated sessions removed by housekeeping.",
	})

	registerOnce sync.Once
)

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			loginAttempts, tokenVerifications, sessionsSwept,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveLogin(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

func ObserveVerify(outcome string) {
	tokenVerifications.WithLabelValues(outcome).Inc()
}

func AddSessionsSwept(n int64) {
	if n > 0 {
		sessionsSwept.Add(float64(n))
	}
}

// knownPaths are reported verbatim; everything else collapses so that
// scanners probing random URLs cannot blow up label cardinality.
var knownPaths = map[string]struct{}{
	"/":                      {},
	"/livez":                 {},
	"/readyz":                {},
	"/metrics":               {},
	"/api/auth/signup":       {},
	"/api/auth/login":        {},
	"/api/auth/refresh":      {},
	"/api/auth/logout":       {},
	"/api/auth/logout-all":   {},
	"/api/auth/me":           {},
	"/api/auth/password":     {},
	"/api/auth/sessions":     {},
	"/api/auth/mfa/enroll":   {},
	"/api/auth/mfa/verify":   {},
	"/api/auth/mfa/disable":  {},
	"/api/auth/mfa/recovery": {},
	"/api/audit":             {},
}

// CanonicalPath maps a request path onto a bounded label set.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	if strings.HasPrefix(path, "/swagger/") {
		return "/swagger/"
	}
	return "other"
}

// Instrument records in-flight, count and latency for every request.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
