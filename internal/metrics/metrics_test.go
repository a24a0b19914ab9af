package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordRecommendation(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordRecommendation("catalog", []string{"preferred_genre", "preferred_genre", "top_rated"})
	c.RecordRecommendation("library", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.recommendations.WithLabelValues("catalog")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.recommendations.WithLabelValues("library")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.picks.WithLabelValues("preferred_genre")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.picks.WithLabelValues("top_rated")))
}

func TestCollector_RecordCatalogRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCatalogRequest(CatalogOK, 120*time.Millisecond)
	c.RecordCatalogRequest(CatalogCacheHit, 0)
	c.RecordCatalogRequest(CatalogBreakerOpen, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.catalogRequests.WithLabelValues(CatalogOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.catalogRequests.WithLabelValues(CatalogCacheHit)))

	n, err := testutil.GatherAndCount(reg, "readtrac_catalog_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPRequest(http.MethodGet, "/books", http.StatusOK, 5*time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, _ := io.ReadAll(w.Result().Body)
	assert.True(t, strings.Contains(string(body), `readtrac_http_requests_total{method="GET",route="/books",status="200"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
