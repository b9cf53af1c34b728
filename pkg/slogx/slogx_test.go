package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/voltex/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestHTTPMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slogx.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set(slogx.HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "req-123", rec.Header().Get(slogx.HeaderRequestID))
	require.Contains(t, buf.String(), `"msg":"inside","req_id":"req-123"`)

	entry := lastEntry(t, &buf)
	require.Equal(t, "http_request", entry["msg"])
	require.Equal(t, "req-123", entry["req_id"])
	require.Equal(t, "/api/auth/login", entry["path"])
	require.EqualValues(t, http.StatusTeapot, entry["status"])
	require.EqualValues(t, len("short and stout"), entry["bytes"])
}

func TestHTTPMiddlewareReplacesUnusableRequestID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for name, id := range map[string]string{
		"missing":   "",
		"too long":  strings.Repeat("a", 65),
		"newline":   "req\nforged=1",
		"non-ascii": "réq",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		if id != "" {
			req.Header.Set(slogx.HeaderRequestID, id)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		got := rec.Header().Get(slogx.HeaderRequestID)
		require.Len(t, got, 26, name)
		require.NotEqual(t, id, got, name)
	}
}

func TestHTTPMiddlewareQuietsHealthChecks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Zero(t, buf.Len())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.NotZero(t, buf.Len())
}

func TestWithNarrowsContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := slogx.WithContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	slogx.FromContext(slogx.With(ctx, "user_id", "user-1")).Info("authenticated")
	require.Equal(t, "user-1", lastEntry(t, &buf)["user_id"])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	require.Equal(t, slog.Default(), slogx.FromContext(context.Background()))
}

func TestNewAttachesServiceAttributes(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "voltex-auth",
		Version: "test",
		Env:     "test",
		Level:   "warn",
		Output:  &buf,
	})

	logger.Info("dropped")
	require.Zero(t, buf.Len())

	logger.Warn("kept")
	entry := lastEntry(t, &buf)
	require.Equal(t, "voltex-auth", entry["service"])
	require.Equal(t, "test", entry["version"])
	require.Equal(t, "kept", entry["msg"])
}

func TestNewRedactsCredentials(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "voltex-auth", Output: &buf})

	logger.Info("login attempt",
		"email", "trader@gridco.example",
		"password", "correct horse battery",
		"Refresh_Token", "opaque",
		"mfa_code", "123456",
	)

	entry := lastEntry(t, &buf)
	require.Equal(t, "trader@gridco.example", entry["email"])
	require.Equal(t, slogx.Redacted, entry["password"])
	require.Equal(t, slogx.Redacted, entry["Refresh_Token"])
	require.Equal(t, slogx.Redacted, entry["mfa_code"])
	require.NotContains(t, buf.String(), "correct horse battery")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	} {
		require.Equal(t, want, slogx.ParseLevel(in), in)
	}
}
