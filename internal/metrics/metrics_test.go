package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	assert.Equal(t, "/", canonicalPath("/"))
	assert.Equal(t, "/api/v1/cart", canonicalPath("/api/v1/cart/items/3"))
	assert.Equal(t, "/api/v1/health", canonicalPath("/api/v1/health"))
	assert.Equal(t, "/api", canonicalPath("/api/products"))
	assert.Equal(t, "/proxy", canonicalPath("/products/12"))
}

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `fakestore_offline_http_requests_total{method="GET",path="/api/v1/cart",status="418"} 1`)
}

func TestHandlerExposesRouterMetrics(t *testing.T) {
	RecordRouted("network_first", "cache")
	SetOnline(false)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `fakestore_offline_router_responses_total{policy="network_first",source="cache"}`))
	assert.Contains(t, body, "fakestore_offline_connectivity_online 0")
}
