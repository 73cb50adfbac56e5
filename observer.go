package modular

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer is notified of CloudEvents emitted by a Subject.
type Observer interface {
	// OnEvent handles an event. It runs on its own goroutine and should
	// return promptly.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID identifies the observer for registration and logging.
	ObserverID() string
}

// Subject maintains observers and notifies them of events.
type Subject interface {
	// RegisterObserver adds an observer, optionally filtered by event type.
	// No event types means every event.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. It is idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers delivers an event without blocking the caller.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers describes the registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event types emitted by the framework.
const (
	EventTypeModuleRegistered  = "com.modular.module.registered"
	EventTypeServiceRegistered = "com.modular.service.registered"

	EventTypeConfigLoaded    = "com.modular.config.loaded"
	EventTypeConfigValidated = "com.modular.config.validated"
	EventTypeConfigChanged   = "com.modular.config.changed"

	EventTypeApplicationStarted  = "com.modular.application.started"
	EventTypeApplicationStopping = "com.modular.application.stopping"
	EventTypeApplicationStopped  = "com.modular.application.stopped"
	EventTypeApplicationFailed   = "com.modular.application.failed"
)

// ObservableModule is implemented by modules that emit their own events.
type ObservableModule interface {
	Module

	// RegisterObservers is called after Init with the application as subject.
	RegisterObservers(subject Subject) error

	// EmitEvent emits an event through the subject. It returns
	// ErrNoSubjectForEventEmission before RegisterObservers was called.
	EmitEvent(ctx context.Context, event cloudevents.Event) error
}

// FunctionalObserver adapts a function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer calling handler for every event.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
