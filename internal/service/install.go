package service

import (
	"context"
	"sync"

	"fakestore-offline/internal/model"

	log "github.com/sirupsen/logrus"
)

// DeferredPrompt is a captured install prompt. Prompt shows it and waits for
// the user's answer.
type DeferredPrompt interface {
	Prompt(ctx context.Context) (model.InstallOutcome, error)
}

// PromptFunc adapts a function to DeferredPrompt.
type PromptFunc func(ctx context.Context) (model.InstallOutcome, error)

// Prompt calls f.
func (f PromptFunc) Prompt(ctx context.Context) (model.InstallOutcome, error) {
	return f(ctx)
}

type outcomeKey struct{}

// WithInstallOutcome attaches the user's answer for a ClientPrompt.
func WithInstallOutcome(ctx context.Context, outcome model.InstallOutcome) context.Context {
	return context.WithValue(ctx, outcomeKey{}, outcome)
}

// ClientPrompt is a prompt shown by the client itself; the answer travels in
// the context of the InstallApp call. A missing answer counts as dismissed.
type ClientPrompt struct{}

// Prompt returns the outcome attached with WithInstallOutcome.
func (ClientPrompt) Prompt(ctx context.Context) (model.InstallOutcome, error) {
	if outcome, ok := ctx.Value(outcomeKey{}).(model.InstallOutcome); ok && outcome.Valid() {
		return outcome, nil
	}
	return model.InstallDismissed, nil
}

// InstallPrompter holds the deferred install prompt until it is used once.
type InstallPrompter struct {
	mu        sync.Mutex
	deferred  DeferredPrompt
	installed bool
	publisher Publisher
}

// NewInstallPrompter creates a prompter with nothing captured.
func NewInstallPrompter(publisher Publisher) *InstallPrompter {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &InstallPrompter{publisher: publisher}
}

// Capture stores p unless a prompt is already held or the app is installed.
// It reports whether p was kept.
func (i *InstallPrompter) Capture(p DeferredPrompt) bool {
	i.mu.Lock()
	if i.deferred != nil || i.installed || p == nil {
		i.mu.Unlock()
		return false
	}
	i.deferred = p
	status := i.statusLocked()
	i.mu.Unlock()

	i.publisher.Publish(model.HubMessage{Type: model.MessageInstall, Data: status})
	return true
}

// CanInstall reports whether a prompt is held.
func (i *InstallPrompter) CanInstall() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deferred != nil && !i.installed
}

// Status returns what UI collaborators see.
func (i *InstallPrompter) Status() model.InstallStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.statusLocked()
}

func (i *InstallPrompter) statusLocked() model.InstallStatus {
	return model.InstallStatus{CanInstall: i.deferred != nil && !i.installed, IsInstalled: i.installed}
}

// InstallApp shows the held prompt. The prompt is discarded before it
// resolves, so it is used at most once whatever the answer.
func (i *InstallPrompter) InstallApp(ctx context.Context) (model.InstallOutcome, error) {
	i.mu.Lock()
	p := i.deferred
	i.deferred = nil
	i.mu.Unlock()

	if p == nil {
		return "", model.ErrNoInstallPrompt
	}

	outcome, err := p.Prompt(ctx)
	if err != nil {
		log.WithField("component", "InstallPrompter").Warnf("install prompt failed: %v", err)
		i.publishStatus()
		return model.InstallDismissed, err
	}

	log.WithField("component", "InstallPrompter").Infof("install prompt answered: %s", outcome)
	i.publishStatus()
	return outcome, nil
}

// AppInstalled records that the platform installed the app.
func (i *InstallPrompter) AppInstalled() {
	i.mu.Lock()
	i.installed = true
	i.deferred = nil
	i.mu.Unlock()

	i.publishStatus()
}

func (i *InstallPrompter) publishStatus() {
	i.publisher.Publish(model.HubMessage{Type: model.MessageInstall, Data: i.Status()})
}
