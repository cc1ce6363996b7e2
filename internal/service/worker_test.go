package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"fakestore-offline/internal/cache"
	"fakestore-offline/internal/model"
	"fakestore-offline/internal/policy"
	"fakestore-offline/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workerFixture struct {
	worker  *Worker
	store   *cache.MemoryStore
	records *repository.MemoryRecordStore
	updates *UpdateCoordinator
	cart    *CartStore
	pub     *recordingPublisher
	origin  string
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("asset " + r.URL.Path))
	}))
	t.Cleanup(upstream.Close)

	origin, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	f := &workerFixture{
		store:   cache.NewMemoryStore(),
		records: repository.NewMemoryRecordStore(),
		pub:     &recordingPublisher{},
		origin:  upstream.URL,
	}
	f.updates = NewUpdateCoordinator(context.Background(), f.store, f.records, f.pub)
	f.cart = NewCartStore(f.records)

	cfg := DefaultRouterConfig()
	cfg.AppOrigin = origin
	router := NewCacheRouter(policy.NewClassifier(policy.DefaultTable()), f.store, upstream.Client(), f.updates, nil, cfg)
	f.worker = NewWorker(router, f.updates, f.cart, f.pub, time.Second)
	return f
}

func TestWorker_InstallActivateFetch(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	manifest := []string{"/", "/index.html", "/manifest.json"}

	_, err := f.worker.Handle(ctx, model.InstallEvent{Generation: "fake-store-v1", Manifest: manifest})
	require.NoError(t, err)
	assert.Equal(t, "fake-store-v1", f.updates.CurrentGeneration())
	assert.Equal(t, len(manifest), f.store.Len("fake-store-v1"))

	_, err = f.worker.Handle(ctx, model.ActivateEvent{Generation: "fake-store-v1"})
	require.NoError(t, err)

	resp, err := f.worker.Handle(ctx, model.FetchEvent{Request: httptest.NewRequest(http.MethodGet, f.origin+"/index.html", nil)})
	require.NoError(t, err)
	assert.Equal(t, "asset /index.html", string(resp.Body))
}

func TestWorker_UpdateNeedsConfirmation(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	_, err := f.worker.Handle(ctx, model.InstallEvent{Generation: "v1", Manifest: []string{"/"}})
	require.NoError(t, err)
	_, err = f.worker.Handle(ctx, model.InstallEvent{Generation: "v2", Manifest: []string{"/"}})
	require.NoError(t, err)
	assert.True(t, f.updates.HasPendingUpdate())

	_, err = f.worker.Handle(ctx, model.ActivateEvent{Generation: "v2"})
	assert.ErrorIs(t, err, ErrActivationNotConfirmed)

	_, err = f.worker.Handle(ctx, model.ActivationConfirmed{})
	require.NoError(t, err)
	assert.Equal(t, "v2", f.updates.CurrentGeneration())
	assert.Zero(t, f.store.Len("v1"))
}

func TestWorker_FailedPrecacheDoesNotInstall(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker.router.transport = failingTransport()

	_, err := f.worker.Handle(context.Background(), model.InstallEvent{Generation: "v1", Manifest: []string{"/"}})
	assert.Error(t, err)
	assert.Empty(t, f.updates.CurrentGeneration())
}

func TestWorker_PushPublishesNotification(t *testing.T) {
	f := newWorkerFixture(t)

	_, err := f.worker.Handle(context.Background(), model.PushReceived{Payload: []byte("Promoção!")})
	require.NoError(t, err)
	_, err = f.worker.Handle(context.Background(), model.PushReceived{})
	require.NoError(t, err)
	f.worker.Wait()

	msgs := f.pub.ofType(model.MessageNotification)
	require.Len(t, msgs, 2)
	bodies := []string{msgs[0].Data.(model.Notification).Body, msgs[1].Data.(model.Notification).Body}
	assert.ElementsMatch(t, []string{"Promoção!", NotificationDefaultBody}, bodies)
}

func TestWorker_NotificationClick(t *testing.T) {
	f := newWorkerFixture(t)

	_, err := f.worker.Handle(context.Background(), model.NotificationClicked{Action: ActionClose})
	require.NoError(t, err)
	_, err = f.worker.Handle(context.Background(), model.NotificationClicked{Action: ActionExplore})
	require.NoError(t, err)
	f.worker.Wait()

	msgs := f.pub.ofType(model.MessageOpenWindow)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]string{"url": "/products"}, msgs[0].Data)
}

func TestWorker_BackgroundSyncRehydratesCart(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	other := NewCartStore(f.records)
	_, err := other.AddItem(ctx, product(4, "15.00"))
	require.NoError(t, err)

	_, err = f.worker.Handle(ctx, model.BackgroundSyncRequested{Tag: "other-tag"})
	require.NoError(t, err)
	f.worker.Wait()
	assert.Empty(t, f.cart.State().Items)

	_, err = f.worker.Handle(ctx, model.BackgroundSyncRequested{Tag: model.BackgroundSyncTag})
	require.NoError(t, err)
	f.worker.Wait()
	assert.Len(t, f.cart.State().Items, 1)
}

// blockingPublisher holds every Publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
}

func (p *blockingPublisher) Publish(model.HubMessage) { <-p.release }

func TestWorker_BestEffortEventsNeverBlock(t *testing.T) {
	f := newWorkerFixture(t)
	pub := &blockingPublisher{release: make(chan struct{})}
	f.worker.publisher = pub

	done := make(chan struct{})
	go func() {
		_, _ = f.worker.Handle(context.Background(), model.PushReceived{Payload: []byte("x")})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push handling blocked the caller")
	}
	close(pub.release)
	f.worker.Wait()
}

func TestWorker_UnsupportedEvent(t *testing.T) {
	f := newWorkerFixture(t)
	_, err := f.worker.Handle(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedEvent)

	_, err = f.worker.Handle(context.Background(), model.FetchEvent{})
	assert.Error(t, err)
}

func TestBuildNotification(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := BuildNotification(nil, at)

	assert.Equal(t, "Fake Store", n.Title)
	assert.Equal(t, "Nova notificação da Fake Store", n.Body)
	assert.Equal(t, "/icons/icon-192x192.png", n.Icon)
	assert.Equal(t, "/icons/icon-72x72.png", n.Badge)
	assert.Equal(t, []int{100, 50, 100}, n.Vibrate)
	assert.Equal(t, at, n.DateOfArrival)
	require.Len(t, n.Actions, 2)
	assert.Equal(t, "explore", n.Actions[0].Action)
	assert.Equal(t, "Ver produtos", n.Actions[0].Title)
	assert.Equal(t, "close", n.Actions[1].Action)
	assert.Equal(t, "Fechar", n.Actions[1].Title)
}
