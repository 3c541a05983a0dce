package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectMetric returns the metric of c whose labels include all of labels.
func collectMetric(t *testing.T, c prometheus.Collector, labels map[string]string) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		got := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return d
		}
	}
	return nil
}

func accountsRouter(service string, handler http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(service))
	r.Post("/api/accounts/google/callback", handler)
	r.Post("/api/accounts/google/callback/", handler)
	r.Get("/api/accounts/users/{id}", handler)
	return r
}

func TestPrometheusMetrics_LabelsByRoutePatternAndStatus(t *testing.T) {
	router := accountsRouter(t.Name(), func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})

	for _, path := range []string{"/api/accounts/users/1", "/api/accounts/users/2", "/api/accounts/users/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/accounts/google/callback", nil))

	count := func(method, path, status string) float64 {
		return testutil.ToFloat64(httpRequestsTotal.WithLabelValues(t.Name(), method, path, status))
	}
	assert.InDelta(t, 2, count(http.MethodGet, "/api/accounts/users/{id}", "400"), 0.001)
	assert.InDelta(t, 1, count(http.MethodGet, "/api/accounts/users/{id}", "404"), 0.001)
	assert.InDelta(t, 1, count(http.MethodPost, "/api/accounts/google/callback", "400"), 0.001)

	hist := collectMetric(t, httpRequestDuration, map[string]string{
		"service": t.Name(), "method": http.MethodGet, "path": "/api/accounts/users/{id}", "status": "400",
	})
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetHistogram().GetSampleCount())
}

func TestPrometheusMetrics_UnmatchedRoute(t *testing.T) {
	router := accountsRouter(t.Name(), func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.InDelta(t, 1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(t.Name(), http.MethodGet, "unmatched", "404")), 0.001)
}

func TestPrometheusMetrics_ImplicitOKAndInFlight(t *testing.T) {
	var during float64
	router := accountsRouter(t.Name(), func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(httpRequestsInFlight.WithLabelValues(t.Name()))
		_, _ = w.Write([]byte(`{}`))
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/accounts/google/callback/", nil))

	assert.InDelta(t, 1, during, 0.001)
	assert.InDelta(t, 0, testutil.ToFloat64(httpRequestsInFlight.WithLabelValues(t.Name())), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(t.Name(), http.MethodPost, "/api/accounts/google/callback/", "200")), 0.001)
}

// --- statusWriter ---

type flushHijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (f *flushHijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	f.hijacked = true
	return nil, nil, nil
}

type bareWriter struct{ header http.Header }

func (b *bareWriter) Header() http.Header         { return b.header }
func (b *bareWriter) Write(p []byte) (int, error) { return len(p), nil }
func (b *bareWriter) WriteHeader(int)             {}

func TestStatusWriter_Delegation(t *testing.T) {
	rec := &flushHijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	sw := newStatusWriter(rec)

	sw.Flush()
	assert.True(t, rec.Flushed)

	_, _, err := sw.Hijack()
	require.NoError(t, err)
	assert.True(t, rec.hijacked)

	bare := newStatusWriter(&bareWriter{header: http.Header{}})
	assert.NotPanics(t, bare.Flush)
	_, _, err = bare.Hijack()
	assert.Error(t, err)
}

func TestStatusWriter_FirstWriteHeaderWins(t *testing.T) {
	sw := newStatusWriter(httptest.NewRecorder())

	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusInternalServerError)
	n, err := sw.Write([]byte("hello"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, sw.statusCode)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, sw.bytes)
}

// Logging and metrics wrap the same writer once, so both see one status.
func TestStatusWriter_ReusesExistingWrapper(t *testing.T) {
	sw := newStatusWriter(httptest.NewRecorder())
	assert.Same(t, sw, newStatusWriter(sw))
}
