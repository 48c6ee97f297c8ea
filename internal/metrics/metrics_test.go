package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recorder(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.Transition("LetterOfCredit", "approve", "success")
	m.Transition("LetterOfCredit", "approve", "success")
	m.Transition("LetterOfCredit", "approve", "invalid_state")
	m.RiskAssessed("HIGH")
	m.ComplianceEvaluated("NON_COMPLIANT")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("LetterOfCredit", "approve", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("LetterOfCredit", "approve", "invalid_state")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RiskAssessments.WithLabelValues("HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComplianceRunsTotal.WithLabelValues("NON_COMPLIANT")))
}

func TestMetrics_Handler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordHTTPRequest(http.MethodGet, "/api/v1/lc/:id", 200, 0.01)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `tfms_http_requests_total{method="GET",route="/api/v1/lc/:id",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_Independent(t *testing.T) {
	_, err := New()
	require.NoError(t, err)
	_, err = New()
	assert.NoError(t, err, "每个实例使用独立的 Registry")
}
