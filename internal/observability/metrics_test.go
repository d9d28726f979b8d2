package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")

	m.RecordFit("")
	m.RecordFit("BIEXP")
	m.RecordFit("BIEXP")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KineticsFits.WithLabelValues("none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.KineticsFits.WithLabelValues("BIEXP")))

	m.RecordRun("analysis", "failed", 100)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastSuccessfulRun))
	m.RecordRun("analysis", "ok", 1700000000)
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastSuccessfulRun))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("analysis", "ok")))
}

func TestMux_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
