package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"fakestore-offline/internal/handler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	proxied := 0
	r := New(Config{
		Handler: handler.New("fake-store-v1", nil),
		Proxy: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proxied++
			_, _ = io.WriteString(w, "proxied "+r.URL.Path)
		}),
	})

	tests := []struct {
		name    string
		method  string
		path    string
		status  int
		proxied bool
	}{
		{"health", http.MethodGet, "/api/v1/health", http.StatusOK, false},
		{"ready", http.MethodGet, "/api/v1/ready", http.StatusOK, false},
		{"status", http.MethodGet, "/api/status", http.StatusOK, false},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, false},
		{"storefront page", http.MethodGet, "/products/1", http.StatusOK, true},
		{"api passthrough", http.MethodGet, "/api/products", http.StatusOK, true},
		{"checkout post", http.MethodPost, "/carts", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := proxied
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.proxied, proxied > before)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_CORSExposesOfflineSource(t *testing.T) {
	r := New(Config{Handler: handler.New("v", nil)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Offline-Source")
}
