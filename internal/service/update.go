package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"fakestore-offline/internal/cache"
	"fakestore-offline/internal/metrics"
	"fakestore-offline/internal/model"
	"fakestore-offline/internal/repository"

	log "github.com/sirupsen/logrus"
)

// Update coordinator errors.
var (
	ErrNoPendingUpdate        = errors.New("no pending update")
	ErrActivationNotConfirmed = errors.New("activation has not been confirmed")
	ErrEmptyGeneration        = errors.New("generation must not be empty")
)

// UpdateCoordinator drives generation rollover: a newly installed generation
// waits in review until the user confirms, then every other generation is
// evicted and the new one takes control.
type UpdateCoordinator struct {
	// lifecycle serializes install, confirm and activate. mu guards state.
	lifecycle sync.Mutex
	mu        sync.Mutex
	state     model.UpdateState
	store     cache.Store
	records   repository.RecordStore
	publisher Publisher

	listenerMu sync.RWMutex
	listeners  map[uint64]func(model.UpdateState)
	nextID     uint64
}

// NewUpdateCoordinator creates a coordinator and reloads its persisted state.
// A missing or unreadable record starts it with no controlling generation.
func NewUpdateCoordinator(ctx context.Context, store cache.Store, records repository.RecordStore, publisher Publisher) *UpdateCoordinator {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	c := &UpdateCoordinator{
		state:     model.UpdateState{Phase: model.PhaseCurrent},
		store:     store,
		records:   records,
		publisher: publisher,
		listeners: make(map[uint64]func(model.UpdateState)),
	}

	data, err := records.GetRecord(ctx, repository.RecordUpdateState)
	switch {
	case err == nil:
		var saved model.UpdateState
		if jsonErr := json.Unmarshal(data, &saved); jsonErr != nil || saved.Phase == "" {
			c.logger().Warnf("ignoring unreadable update state: %v", jsonErr)
			break
		}
		c.state = saved
		c.logger().Infof("restored update state: current=%s phase=%s", saved.CurrentGeneration, saved.Phase)
	case errors.Is(err, repository.ErrRecordNotFound):
	default:
		c.logger().Warnf("failed to load update state: %v", err)
	}
	return c
}

func (c *UpdateCoordinator) logger() *log.Entry {
	return log.WithField("component", "UpdateCoordinator")
}

// State returns a copy of the current state.
func (c *UpdateCoordinator) State() model.UpdateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentGeneration returns the generation that controls the cache.
func (c *UpdateCoordinator) CurrentGeneration() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CurrentGeneration
}

// HasPendingUpdate reports whether a newer generation awaits confirmation.
func (c *UpdateCoordinator) HasPendingUpdate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.HasPendingUpdate()
}

// UpdateAvailable is HasPendingUpdate unless the user dismissed the notice.
func (c *UpdateCoordinator) UpdateAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.HasPendingUpdate() && !c.state.Dismissed
}

// Installed records that generation finished installing. With no controlling
// generation it takes control at once; otherwise it waits for review.
func (c *UpdateCoordinator) Installed(ctx context.Context, generation string) error {
	return c.Install(ctx, generation, nil)
}

// Install runs precache and then records generation as installed, holding
// off activations until both are done. While another generation is
// activating, a new one is refused with a *model.GenerationConflictError
// before precache runs.
func (c *UpdateCoordinator) Install(ctx context.Context, generation string, precache func(context.Context) error) error {
	if generation == "" {
		return ErrEmptyGeneration
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if err := c.admit(generation); err != nil {
		return err
	}
	if precache != nil {
		if err := precache(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	switch {
	case c.state.CurrentGeneration == "":
		c.state = model.UpdateState{CurrentGeneration: generation, Phase: model.PhaseCurrent}
	case c.state.CurrentGeneration == generation:
		c.mu.Unlock()
		return nil
	case c.state.Phase == model.PhaseActivating:
		// The pending generation, already confirmed.
		c.mu.Unlock()
		c.logger().Debugf("%s is already activating", generation)
		return nil
	default:
		c.state = model.UpdateState{
			CurrentGeneration: c.state.CurrentGeneration,
			PendingGeneration: generation,
			Phase:             model.PhasePendingReview,
		}
	}
	state := c.state
	err := c.persistLocked(ctx)
	c.mu.Unlock()

	c.logger().Infof("installed %s: phase=%s", generation, state.Phase)
	c.notify(state)
	return err
}

// admit refuses a generation other than the pending one while an activation
// is unfinished.
func (c *UpdateCoordinator) admit(generation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != model.PhaseActivating {
		return nil
	}
	if generation == c.state.PendingGeneration || generation == c.state.CurrentGeneration {
		return nil
	}
	return &model.GenerationConflictError{
		Generation: generation,
		Err:        fmt.Errorf("activation of %s is unfinished", c.state.PendingGeneration),
	}
}

// ConfirmActivation records the user's confirmation and activates the
// pending generation. From Activating it retries the activation.
func (c *UpdateCoordinator) ConfirmActivation(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.state.Phase != model.PhasePendingReview && c.state.Phase != model.PhaseActivating {
		c.mu.Unlock()
		return ErrNoPendingUpdate
	}
	c.state.ActivationConfirmed = true
	c.state.Phase = model.PhaseActivating
	state := c.state
	if err := c.persistLocked(ctx); err != nil {
		c.logger().Warnf("continuing activation without persisted confirmation: %v", err)
	}
	c.mu.Unlock()

	c.notify(state)
	return c.activate(ctx)
}

// Activate evicts every generation except the one taking control. In
// Activating it promotes the pending generation; in Current it only clears
// leftovers of older generations. On failure the state does not change and a
// retryable *model.GenerationConflictError is returned.
func (c *UpdateCoordinator) Activate(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.activate(ctx)
}

func (c *UpdateCoordinator) activate(ctx context.Context) error {
	c.mu.Lock()

	var target string
	switch c.state.Phase {
	case model.PhaseActivating:
		if !c.state.ActivationConfirmed {
			c.mu.Unlock()
			return ErrActivationNotConfirmed
		}
		target = c.state.PendingGeneration
	case model.PhasePendingReview:
		c.mu.Unlock()
		return ErrActivationNotConfirmed
	default:
		target = c.state.CurrentGeneration
	}
	if target == "" {
		c.mu.Unlock()
		return ErrEmptyGeneration
	}

	if err := c.evictAllExcept(ctx, target); err != nil {
		c.mu.Unlock()
		metrics.RecordEviction(false)
		c.logger().Warnf("activation of %s failed: %v", target, err)
		return &model.GenerationConflictError{Generation: target, Err: err}
	}
	metrics.RecordEviction(true)

	promoted := c.state.Phase == model.PhaseActivating
	c.state = model.UpdateState{CurrentGeneration: target, Phase: model.PhaseCurrent}
	state := c.state
	err := c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify(state)
	if promoted {
		c.logger().Infof("generation %s took control", target)
		c.publisher.Publish(model.HubMessage{Type: model.MessageReload, Data: map[string]string{"generation": target}})
	}
	return err
}

func (c *UpdateCoordinator) evictAllExcept(ctx context.Context, keep string) error {
	generations, err := c.store.ListGenerations(ctx)
	if err != nil {
		return fmt.Errorf("list generations: %w", err)
	}
	for _, g := range generations {
		if g == keep {
			continue
		}
		if err := c.store.EvictGeneration(ctx, g); err != nil {
			return fmt.Errorf("evict %s: %w", g, err)
		}
	}
	return nil
}

// Dismiss hides the update notice; the pending generation stays pending.
func (c *UpdateCoordinator) Dismiss(ctx context.Context) error {
	c.mu.Lock()
	c.state.Dismissed = true
	state := c.state
	err := c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify(state)
	return err
}

// Subscribe registers fn for state changes.
func (c *UpdateCoordinator) Subscribe(fn func(model.UpdateState)) (cancel func()) {
	c.listenerMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenerMu.Unlock()

	return func() {
		c.listenerMu.Lock()
		delete(c.listeners, id)
		c.listenerMu.Unlock()
	}
}

func (c *UpdateCoordinator) notify(state model.UpdateState) {
	c.listenerMu.RLock()
	for _, fn := range c.listeners {
		fn(state)
	}
	c.listenerMu.RUnlock()
	c.publisher.Publish(model.HubMessage{Type: model.MessageUpdate, Data: state})
}

// persistLocked writes the state record. Callers hold c.mu.
func (c *UpdateCoordinator) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(c.state)
	if err != nil {
		return &model.PersistenceError{Op: "encode update state", Err: err}
	}
	if err := c.records.PutRecord(ctx, repository.RecordUpdateState, data); err != nil {
		c.logger().Warnf("failed to persist update state: %v", err)
		return &model.PersistenceError{Op: "save update state", Err: err}
	}
	return nil
}
