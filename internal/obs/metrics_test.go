package obs

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                            "/",
		"/metrics":                    "/metrics",
		"/api/auth/login":             "/api/auth/login",
		"/api/auth/login?next=/x":     "/api/auth/login",
		"/api/audit":                  "/api/audit",
		"/swagger/index.html":         "/swagger/",
		"/wp-admin/install.php":       "other",
		"/api/auth/users/01HZX/roles": "other",
	}
	for input, expected := range cases {
		require.Equal(t, expected, CanonicalPath(input), input)
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestInstrumentRecordsStatus(t *testing.T) {
	Init()
	Init()

	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	require.Contains(t, scrape(t),
		`voltex_http_requests_total{method="POST",path="/api/auth/login",status="418"}`)
}

func TestAuthCounters(t *testing.T) {
	Init()

	ObserveLogin(LoginRejected)
	ObserveVerify(VerifySessionRevoked)
	AddSessionsSwept(3)
	AddSessionsSwept(-1)

	body := scrape(t)
	require.Contains(t, body, `voltex_auth_login_attempts_total{outcome="rejected"}`)
	require.Contains(t, body, `voltex_auth_token_verifications_total{outcome="session_revoked"}`)
	require.Contains(t, body, "voltex_auth_sessions_swept_total 3")
}
