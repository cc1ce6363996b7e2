package service

import (
	"context"
	"sync"
	"testing"

	"fakestore-offline/internal/model"
	"fakestore-offline/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id int64, price string) model.ProductSnapshot {
	return model.ProductSnapshot{
		ID:    model.ProductID(id),
		Title: "Product",
		Price: decimal.RequireFromString(price),
		Image: "https://fakestoreapi.com/img/p.jpg",
	}
}

func TestCartStore_MutationsArePersisted(t *testing.T) {
	ctx := context.Background()
	records := repository.NewMemoryRecordStore()
	cart := NewCartStore(records)

	_, err := cart.AddItem(ctx, product(1, "10.00"))
	require.NoError(t, err)
	state, err := cart.AddItem(ctx, product(1, "10.00"))
	require.NoError(t, err)
	assert.Equal(t, 2, state.Items[0].Quantity)
	assert.Equal(t, int64(2), state.Version)

	data, err := records.GetRecord(ctx, repository.RecordCart)
	require.NoError(t, err)
	stored, err := DecodeCartSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, 2, stored.Items[0].Quantity)

	restarted := NewCartStore(records)
	require.NoError(t, restarted.Hydrate(ctx))
	assert.Equal(t, int64(2), restarted.State().Version)
	assert.True(t, decimal.RequireFromString("20").Equal(restarted.Totals().Total))
}

func TestCartStore_ScenarioB(t *testing.T) {
	ctx := context.Background()
	cart := NewCartStore(repository.NewMemoryRecordStore())

	_, err := cart.AddItem(ctx, product(1, "10.00"))
	require.NoError(t, err)
	_, err = cart.AddItem(ctx, product(2, "5.00"))
	require.NoError(t, err)
	_, err = cart.UpdateQuantity(ctx, 1, 2)
	require.NoError(t, err)

	totals := cart.Totals()
	assert.Equal(t, 3, totals.ItemCount)
	assert.True(t, decimal.RequireFromString("25").Equal(totals.Total))
}

func TestCartStore_PersistenceFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	records := &flakyRecords{RecordStore: repository.NewMemoryRecordStore()}
	cart := NewCartStore(records)

	records.failing.Store(true)
	state, err := cart.AddItem(ctx, product(7, "3.50"))
	require.ErrorIs(t, err, model.ErrPersistence)
	require.Len(t, state.Items, 1)
	assert.Equal(t, int64(1), cart.State().Version)

	_, getErr := records.RecordStore.GetRecord(ctx, repository.RecordCart)
	assert.ErrorIs(t, getErr, repository.ErrRecordNotFound)

	// The next successful write carries the whole snapshot.
	records.failing.Store(false)
	_, err = cart.AddItem(ctx, product(8, "1.00"))
	require.NoError(t, err)

	data, err := records.GetRecord(ctx, repository.RecordCart)
	require.NoError(t, err)
	stored, err := DecodeCartSnapshot(data)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, int64(2), stored.Version)
}

func TestCartStore_NoopMutationDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	records := &flakyRecords{RecordStore: repository.NewMemoryRecordStore()}
	cart := NewCartStore(records)

	_, err := cart.AddItem(ctx, product(1, "1.00"))
	require.NoError(t, err)
	_, err = cart.RemoveItem(ctx, 1)
	require.NoError(t, err)
	state, err := cart.RemoveItem(ctx, 1)
	require.NoError(t, err)

	assert.Empty(t, state.Items)
	assert.Equal(t, int64(2), state.Version)
	assert.Equal(t, int32(2), records.puts.Load())
}

func TestCartStore_ClearCart(t *testing.T) {
	ctx := context.Background()
	records := repository.NewMemoryRecordStore()
	cart := NewCartStore(records)

	_, err := cart.AddItem(ctx, product(1, "1.00"))
	require.NoError(t, err)
	state, err := cart.ClearCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Items)
	assert.NotNil(t, state.Items)
	assert.Equal(t, int64(2), state.Version)

	data, err := records.GetRecord(ctx, repository.RecordCart)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"version":2}`, string(data))
}

func TestCartStore_RehydrateAcrossInstances(t *testing.T) {
	ctx := context.Background()
	records := repository.NewMemoryRecordStore()
	tabA := NewCartStore(records)
	tabB := NewCartStore(records)
	require.NoError(t, tabA.Hydrate(ctx))
	require.NoError(t, tabB.Hydrate(ctx))

	_, err := tabA.AddItem(ctx, product(1, "9.99"))
	require.NoError(t, err)
	_, err = tabA.AddItem(ctx, product(2, "1.01"))
	require.NoError(t, err)

	state, err := tabB.Rehydrate(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Items, 2)
	assert.Equal(t, int64(2), state.Version)

	// An older snapshot never replaces a newer in-memory cart.
	_, err = tabB.AddItem(ctx, product(3, "2.00"))
	require.NoError(t, err)
	require.NoError(t, records.PutRecord(ctx, repository.RecordCart, []byte(`{"items":[],"version":1}`)))
	state, err = tabB.Rehydrate(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Items, 3)
}

func TestCartStore_MalformedRecordHydratesEmpty(t *testing.T) {
	ctx := context.Background()
	records := repository.NewMemoryRecordStore()
	require.NoError(t, records.PutRecord(ctx, repository.RecordCart, []byte(`{"items": [garbage`)))

	cart := NewCartStore(records)
	require.NoError(t, cart.Hydrate(ctx))
	state := cart.State()
	assert.Empty(t, state.Items)
	assert.Zero(t, state.Version)
}

func TestCartStore_ConcurrentMutationsAreSerialised(t *testing.T) {
	ctx := context.Background()
	cart := NewCartStore(repository.NewMemoryRecordStore())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cart.AddItem(ctx, product(1, "1.00"))
		}()
	}
	wg.Wait()

	state := cart.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, 50, state.Items[0].Quantity)
	assert.Equal(t, int64(50), state.Version)
	assert.True(t, state.Valid())
}

func TestCartStore_StateIsACopy(t *testing.T) {
	ctx := context.Background()
	cart := NewCartStore(repository.NewMemoryRecordStore())
	_, err := cart.AddItem(ctx, product(1, "1.00"))
	require.NoError(t, err)

	state := cart.State()
	state.Items[0].Quantity = 99
	assert.Equal(t, 1, cart.State().Items[0].Quantity)
}
