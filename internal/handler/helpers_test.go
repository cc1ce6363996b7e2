package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fakestore-offline/internal/cache"
	"fakestore-offline/internal/policy"
	"fakestore-offline/internal/repository"
	"fakestore-offline/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// gateway wires the services the way cmd/api does, against test upstreams.
type gateway struct {
	store    *cache.MemoryStore
	records  *brokenRecords
	hub      *service.EventHub
	monitor  *service.ConnectivityMonitor
	updates  *service.UpdateCoordinator
	cart     *service.CartStore
	prompter *service.InstallPrompter
	worker   *service.Worker
	proxy    *ProxyHandler

	appCalls atomic.Int32
	apiCalls atomic.Int32
	app      *httptest.Server
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	g := &gateway{
		store:   cache.NewMemoryStore(),
		records: &brokenRecords{RecordStore: repository.NewMemoryRecordStore()},
		hub:     service.NewEventHub(16),
	}

	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.appCalls.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "app "+r.URL.Path)
	}))
	t.Cleanup(app.Close)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.apiCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"path":"`+r.URL.Path+`","query":"`+r.URL.RawQuery+`"}`)
	}))
	t.Cleanup(api.Close)

	appOrigin, err := url.Parse(app.URL)
	require.NoError(t, err)
	// The API is reached as localhost so the classifier can tell it from the app.
	apiOrigin, err := url.Parse(strings.Replace(api.URL, "127.0.0.1", "localhost", 1))
	require.NoError(t, err)
	g.app = app

	g.monitor = service.NewConnectivityMonitor(true, g.hub)
	g.updates = service.NewUpdateCoordinator(context.Background(), g.store, g.records, g.hub)
	g.cart = service.NewCartStore(g.records)
	g.prompter = service.NewInstallPrompter(g.hub)

	table := policy.DefaultTable()
	table.APIHosts = []string{"localhost"}
	cfg := service.DefaultRouterConfig()
	cfg.AppOrigin = appOrigin
	cfg.NetworkTimeout = 2 * time.Second
	router := service.NewCacheRouter(policy.NewClassifier(table), g.store, http.DefaultClient, g.updates, g.monitor, cfg)

	g.worker = service.NewWorker(router, g.updates, g.cart, g.hub, time.Second)
	t.Cleanup(g.worker.Wait)
	g.proxy = NewProxyHandler(g.worker, apiOrigin, "/api")
	return g
}

// mux mounts the handlers under the same paths as internal/router.
func (g *gateway) mux() http.Handler {
	r := chi.NewRouter()
	cart := NewCartHandler(g.cart)
	update := NewUpdateHandler(g.worker, g.updates, []string{"/", "/index.html"})
	conn := NewConnectivityHandler(g.monitor, nil)
	install := NewInstallHandler(g.prompter)
	worker := NewWorkerHandler(g.worker)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/cart", cart.Get)
		r.Delete("/cart", cart.Clear)
		r.Post("/cart/refresh", cart.Refresh)
		r.Post("/cart/items", cart.AddItem)
		r.Put("/cart/items/{id}", cart.UpdateQuantity)
		r.Delete("/cart/items/{id}", cart.RemoveItem)
		r.Get("/update", update.Get)
		r.Post("/update/install", update.Install)
		r.Post("/update/confirm", update.Confirm)
		r.Post("/update/dismiss", update.Dismiss)
		r.Get("/connectivity", conn.Get)
		r.Post("/connectivity", conn.Set)
		r.Post("/connectivity/probe", conn.Probe)
		r.Get("/install", install.Get)
		r.Post("/install", install.Install)
		r.Post("/install/capture", install.Capture)
		r.Post("/install/installed", install.Installed)
		r.Post("/worker/sync", worker.Sync)
		r.Post("/worker/push", worker.Push)
		r.Post("/worker/notificationclick", worker.NotificationClick)
	})
	r.NotFound(g.proxy.ServeHTTP)
	return r
}

// brokenRecords fails every write while broken is set.
type brokenRecords struct {
	repository.RecordStore
	broken atomic.Bool
}

func (b *brokenRecords) PutRecord(ctx context.Context, name string, data []byte) error {
	if b.broken.Load() {
		return errors.New("disk full")
	}
	return b.RecordStore.PutRecord(ctx, name, data)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}
