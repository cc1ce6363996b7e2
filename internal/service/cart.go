package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"fakestore-offline/internal/metrics"
	"fakestore-offline/internal/model"
	"fakestore-offline/internal/repository"

	log "github.com/sirupsen/logrus"
)

// CartStore owns the in-memory cart and mirrors every change to the durable
// record named "cart". Mutations apply in call order.
type CartStore struct {
	mu      sync.Mutex
	state   model.CartState
	records repository.RecordStore
}

// NewCartStore creates an empty cart store. Call Hydrate to load the stored cart.
func NewCartStore(records repository.RecordStore) *CartStore {
	return &CartStore{
		state:   model.CartState{Items: []model.CartItem{}},
		records: records,
	}
}

// DecodeCartSnapshot parses a stored cart record. Malformed records yield an
// error; callers treat them as no cart.
func DecodeCartSnapshot(data []byte) (model.CartState, error) {
	var state model.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.CartState{Items: []model.CartItem{}}, err
	}
	state = state.Normalize()
	if state.Items == nil {
		state.Items = []model.CartItem{}
	}
	return state, nil
}

// EncodeCartSnapshot is the inverse of DecodeCartSnapshot.
func EncodeCartSnapshot(state model.CartState) ([]byte, error) {
	if state.Items == nil {
		state.Items = []model.CartItem{}
	}
	return json.Marshal(state)
}

// load reads the stored snapshot. A missing or malformed record is an empty
// cart at version 0.
func (s *CartStore) load(ctx context.Context) (model.CartState, error) {
	empty := model.CartState{Items: []model.CartItem{}}

	data, err := s.records.GetRecord(ctx, repository.RecordCart)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return empty, nil
	}
	if err != nil {
		return empty, &model.PersistenceError{Op: "load cart", Err: err}
	}
	state, err := DecodeCartSnapshot(data)
	if err != nil {
		log.WithField("component", "CartStore").Warnf("stored cart is malformed, starting empty: %v", err)
		return empty, nil
	}
	return state, nil
}

// Hydrate replaces the in-memory cart with the stored snapshot.
func (s *CartStore) Hydrate(ctx context.Context) error {
	state, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	log.WithField("component", "CartStore").Infof("hydrated cart: %d lines, version %d", len(state.Items), state.Version)
	return nil
}

// Rehydrate picks up a snapshot written by another instance. The stored cart
// wins only when its version is higher than the in-memory one.
func (s *CartStore) Rehydrate(ctx context.Context) (model.CartState, error) {
	stored, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.state.Clone(), err
	}
	if stored.Version > s.state.Version {
		s.state = stored
	}
	return s.state.Clone(), nil
}

// State returns a copy of the current cart.
func (s *CartStore) State() model.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Totals recomputes item count and total price.
func (s *CartStore) Totals() model.CartTotals {
	return s.State().Totals()
}

// AddItem adds one unit of p.
func (s *CartStore) AddItem(ctx context.Context, p model.ProductSnapshot) (model.CartState, error) {
	return s.mutate(ctx, "add item", func(state model.CartState) model.CartState {
		return model.AddItem(state, p)
	})
}

// RemoveItem deletes the line for id.
func (s *CartStore) RemoveItem(ctx context.Context, id model.ProductID) (model.CartState, error) {
	return s.mutate(ctx, "remove item", func(state model.CartState) model.CartState {
		return model.RemoveItem(state, id)
	})
}

// UpdateQuantity sets the quantity of id; zero or less removes the line.
func (s *CartStore) UpdateQuantity(ctx context.Context, id model.ProductID, quantity int) (model.CartState, error) {
	return s.mutate(ctx, "update quantity", func(state model.CartState) model.CartState {
		return model.UpdateQuantity(state, id, quantity)
	})
}

// ClearCart empties the cart.
func (s *CartStore) ClearCart(ctx context.Context) (model.CartState, error) {
	return s.mutate(ctx, "clear cart", model.ClearCart)
}

// mutate applies reduce and writes the whole snapshot before returning. On a
// write failure the new state is kept and returned with a PersistenceError;
// the next mutation writes the full snapshot again.
func (s *CartStore) mutate(ctx context.Context, op string, reduce func(model.CartState) model.CartState) (model.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := reduce(s.state)
	if next.Version == s.state.Version {
		return s.state.Clone(), nil
	}
	s.state = next

	data, err := EncodeCartSnapshot(next)
	if err == nil {
		err = s.records.PutRecord(ctx, repository.RecordCart, data)
	}
	if err != nil {
		metrics.RecordCartPersistFailure()
		log.WithFields(log.Fields{"component": "CartStore", "op": op}).Warnf("failed to persist cart: %v", err)
		return next.Clone(), &model.PersistenceError{Op: op, Err: err}
	}
	return next.Clone(), nil
}
