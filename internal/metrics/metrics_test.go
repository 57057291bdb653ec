package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/assistant/quick/{action}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/assistant/quick/{action}", "418"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/assistant/quick/track_order", nil))
	require.Equal(t, http.StatusTeapot, w.Code)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/assistant/quick/{action}", "418"))
	assert.Equal(t, before+1, after)
}

func TestSessionGauge(t *testing.T) {
	before := testutil.ToFloat64(activeSessions)
	SessionOpened()
	SessionOpened()
	SessionClosed()
	assert.Equal(t, before+1, testutil.ToFloat64(activeSessions))
	SessionClosed()
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordLogin(LoginSuccess)
	RecordAssistant("ok", 20*time.Millisecond)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "quickdeliver_session_logins_total"))
	assert.True(t, strings.Contains(body, "quickdeliver_assistant_requests_total"))
}
