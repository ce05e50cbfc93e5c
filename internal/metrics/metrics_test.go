package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/skinscreen/internal/confidence"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := New()
	require.NoError(t, err)

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", m.Handler())

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/users/"+id, nil)
		router.ServeHTTP(w, req)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/users/:id", "204")))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `http_requests_total{method="GET",path="/users/:id",status_code="204"} 3`))
}

func TestDomainCounters(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.PredictionStored("distribution")
	m.Resolved(confidence.Benign)
	m.Resolved(confidence.Benign)
	m.Resolved(confidence.Unknown)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictionsStored.WithLabelValues("distribution")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recordsResolved.WithLabelValues("Benign")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsResolved.WithLabelValues("Unknown")))
}
