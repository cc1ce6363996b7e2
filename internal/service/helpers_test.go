package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fakestore-offline/internal/cache"
	"fakestore-offline/internal/model"
	"fakestore-offline/internal/repository"

	"github.com/stretchr/testify/require"
)

var errNetworkDown = errors.New("network down")

// fakeTransport records calls and answers through handler.
type fakeTransport struct {
	calls   atomic.Int32
	mu      sync.Mutex
	urls    []string
	handler func(req *http.Request) (*http.Response, error)
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.urls = append(f.urls, req.URL.String())
	f.mu.Unlock()
	return f.handler(req)
}

func (f *fakeTransport) Calls() int { return int(f.calls.Load()) }

func failingTransport() *fakeTransport {
	return &fakeTransport{handler: func(*http.Request) (*http.Response, error) {
		return nil, errNetworkDown
	}}
}

func okTransport(body string) *fakeTransport {
	return &fakeTransport{handler: func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, body), nil
	}}
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// generation is a settable GenerationSource.
type generation struct {
	mu    sync.Mutex
	value string
}

func (g *generation) CurrentGeneration() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func fixedGeneration(v string) *generation { return &generation{value: v} }

// recordingPublisher keeps every published message.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []model.HubMessage
}

func (p *recordingPublisher) Publish(msg model.HubMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

func (p *recordingPublisher) ofType(typ string) []model.HubMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.HubMessage
	for _, m := range p.messages {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

// flakyStore is a cache.Store whose eviction can be made to fail.
type flakyStore struct {
	cache.Store
	evictErr atomic.Pointer[error]
}

func (s *flakyStore) failEvictions(err error) { s.evictErr.Store(&err) }
func (s *flakyStore) healEvictions()          { s.evictErr.Store(nil) }

func (s *flakyStore) EvictGeneration(ctx context.Context, generation string) error {
	if p := s.evictErr.Load(); p != nil {
		return *p
	}
	return s.Store.EvictGeneration(ctx, generation)
}

// flakyRecords is a RecordStore whose writes can be made to fail.
type flakyRecords struct {
	repository.RecordStore
	failing atomic.Bool
	puts    atomic.Int32
}

func (r *flakyRecords) PutRecord(ctx context.Context, name string, data []byte) error {
	r.puts.Add(1)
	if r.failing.Load() {
		return errors.New("disk full")
	}
	return r.RecordStore.PutRecord(ctx, name, data)
}

func mustKey(t *testing.T, method, rawURL string) model.RequestKey {
	t.Helper()
	k, err := model.ParseRequestKey(method, rawURL)
	require.NoError(t, err)
	return k
}

func seed(t *testing.T, store cache.Store, gen, rawURL, payload string) {
	t.Helper()
	entry := &model.CachedEntry{
		Payload:     []byte(payload),
		ContentType: "application/json",
		StatusCode:  http.StatusOK,
		StoredAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.Put(context.Background(), gen, mustKey(t, http.MethodGet, rawURL), entry))
}
