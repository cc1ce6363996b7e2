package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"fakestore-offline/internal/model"

	log "github.com/sirupsen/logrus"
)

// Notification defaults for push messages.
const (
	NotificationTitle       = "Fake Store"
	NotificationDefaultBody = "Nova notificação da Fake Store"
	NotificationIcon        = "/icons/icon-192x192.png"
	NotificationBadge       = "/icons/icon-72x72.png"

	ActionExplore = "explore"
	ActionClose   = "close"

	// ExploreURL is opened when the explore action is clicked.
	ExploreURL = "/products"
)

// ErrUnsupportedEvent is returned for events the worker does not know.
var ErrUnsupportedEvent = errors.New("unsupported event")

// Worker is the single entry point for lifecycle, fetch and best-effort
// events.
type Worker struct {
	router    *CacheRouter
	updates   *UpdateCoordinator
	cart      *CartStore
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewWorker wires the worker. backgroundTimeout bounds each best-effort task.
func NewWorker(router *CacheRouter, updates *UpdateCoordinator, cart *CartStore, publisher Publisher, backgroundTimeout time.Duration) *Worker {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if backgroundTimeout <= 0 {
		backgroundTimeout = 30 * time.Second
	}
	return &Worker{
		router:    router,
		updates:   updates,
		cart:      cart,
		publisher: publisher,
		timeout:   backgroundTimeout,
		now:       time.Now,
	}
}

// Handle dispatches ev. Only FetchEvent produces a Response. Sync, push and
// notification click events return immediately and run in the background.
func (w *Worker) Handle(ctx context.Context, ev model.Event) (*model.Response, error) {
	switch e := ev.(type) {
	case model.InstallEvent:
		return nil, w.install(ctx, e)
	case model.ActivateEvent:
		return nil, w.updates.Activate(ctx)
	case model.FetchEvent:
		if e.Request == nil {
			return nil, errors.New("fetch event without request")
		}
		return w.router.Handle(ctx, e.Request)
	case model.ActivationConfirmed:
		return nil, w.updates.ConfirmActivation(ctx)
	case model.BackgroundSyncRequested:
		if e.Tag != model.BackgroundSyncTag {
			log.WithField("component", "Worker").Debugf("ignoring sync tag %q", e.Tag)
			return nil, nil
		}
		w.background("sync", w.backgroundSync)
		return nil, nil
	case model.PushReceived:
		n := BuildNotification(e.Payload, w.now())
		w.background("push", func(context.Context) error {
			w.publisher.Publish(model.HubMessage{Type: model.MessageNotification, Data: n})
			return nil
		})
		return nil, nil
	case model.NotificationClicked:
		action := e.Action
		w.background("notificationclick", func(context.Context) error {
			if action == ActionExplore {
				w.publisher.Publish(model.HubMessage{Type: model.MessageOpenWindow, Data: map[string]string{"url": ExploreURL}})
			}
			return nil
		})
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEvent, ev)
	}
}

func (w *Worker) install(ctx context.Context, e model.InstallEvent) error {
	if e.Generation == "" {
		return ErrEmptyGeneration
	}
	return w.updates.Install(ctx, e.Generation, func(ctx context.Context) error {
		if err := w.router.Precache(ctx, e.Generation, e.Manifest); err != nil {
			return fmt.Errorf("install %s: %w", e.Generation, err)
		}
		return nil
	})
}

// backgroundSync picks up cart changes made by other instances while this
// one was offline.
func (w *Worker) backgroundSync(ctx context.Context) error {
	if w.cart == nil {
		return nil
	}
	state, err := w.cart.Rehydrate(ctx)
	if err != nil {
		return err
	}
	log.WithField("component", "Worker").Infof("background sync done: cart version %d", state.Version)
	return nil
}

// background runs fn on its own goroutine with its own deadline. Failures
// and panics are logged and never reach the caller.
func (w *Worker) background(name string, fn func(ctx context.Context) error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{"component": "Worker", "task": name}).
					Errorf("PANIC: %v\n%s", r, debug.Stack())
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			log.WithFields(log.Fields{"component": "Worker", "task": name}).Warnf("background task failed: %v", err)
		}
	}()
}

// Wait blocks until every background task has finished.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// BuildNotification turns a push payload into the notification to show.
func BuildNotification(payload []byte, arrival time.Time) model.Notification {
	body := string(payload)
	if len(payload) == 0 {
		body = NotificationDefaultBody
	}
	return model.Notification{
		Title:         NotificationTitle,
		Body:          body,
		Icon:          NotificationIcon,
		Badge:         NotificationBadge,
		Vibrate:       []int{100, 50, 100},
		DateOfArrival: arrival,
		Actions: []model.NotificationAction{
			{Action: ActionExplore, Title: "Ver produtos", Icon: NotificationBadge},
			{Action: ActionClose, Title: "Fechar", Icon: NotificationBadge},
		},
	}
}
