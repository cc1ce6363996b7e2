package model

import (
	"net/http"
	"time"
)

// Event is one of the events a Worker handles. The set is closed: only the
// types in this file implement it.
type Event interface {
	eventName() string
}

// InstallEvent installs a new generation and pre-populates its shell assets.
type InstallEvent struct {
	Generation string
	Manifest   []string
}

// ActivateEvent signals that Generation is taking control.
type ActivateEvent struct {
	Generation string
}

// FetchEvent carries an intercepted request.
type FetchEvent struct {
	Request *http.Request
}

// ActivationConfirmed is the explicit confirmation message for a pending update.
type ActivationConfirmed struct{}

// BackgroundSyncRequested asks for a best-effort background sync.
type BackgroundSyncRequested struct {
	Tag string
}

// PushReceived carries a push message payload.
type PushReceived struct {
	Payload []byte
}

// NotificationClicked reports a click on a shown notification.
type NotificationClicked struct {
	Action string
}

func (InstallEvent) eventName() string            { return "install" }
func (ActivateEvent) eventName() string           { return "activate" }
func (FetchEvent) eventName() string              { return "fetch" }
func (ActivationConfirmed) eventName() string     { return "message" }
func (BackgroundSyncRequested) eventName() string { return "sync" }
func (PushReceived) eventName() string            { return "push" }
func (NotificationClicked) eventName() string     { return "notificationclick" }

// EventName returns the platform name of the event.
func EventName(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.eventName()
}

// BackgroundSyncTag is the only sync tag the worker acts on.
const BackgroundSyncTag = "background-sync"

// NotificationAction is a button on a notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Notification is a push notification to show to the user.
type Notification struct {
	Title         string               `json:"title"`
	Body          string               `json:"body"`
	Icon          string               `json:"icon,omitempty"`
	Badge         string               `json:"badge,omitempty"`
	Vibrate       []int                `json:"vibrate,omitempty"`
	DateOfArrival time.Time            `json:"date_of_arrival"`
	Actions       []NotificationAction `json:"actions,omitempty"`
}

// Hub message types.
const (
	MessageConnectivity = "connectivity"
	MessageUpdate       = "update"
	MessageReload       = "reload"
	MessageNotification = "notification"
	MessageOpenWindow   = "open_window"
	MessageInstall      = "install"
)

// HubMessage is a message fanned out to UI subscribers.
type HubMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
