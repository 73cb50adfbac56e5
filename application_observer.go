package modular

import (
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// ObservableApplication extends StdApplication with CloudEvents observers.
// Modules implementing ObservableModule get the application as their subject
// after Init.
type ObservableApplication struct {
	*StdApplication
	observers     map[string]*observerRegistration
	observerMutex sync.RWMutex
}

// NewObservableApplication creates an application that notifies observers
// of its lifecycle.
func NewObservableApplication(cp ConfigProvider, logger Logger) *ObservableApplication {
	return &ObservableApplication{
		StdApplication: newStdApplication(cp, logger),
		observers:      make(map[string]*observerRegistration),
	}
}

// RegisterObserver adds an observer, optionally filtered by event type.
func (app *ObservableApplication) RegisterObserver(observer Observer, eventTypes ...string) error {
	app.observerMutex.Lock()
	defer app.observerMutex.Unlock()

	eventTypeMap := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	app.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}

	app.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer. It is idempotent.
func (app *ObservableApplication) UnregisterObserver(observer Observer) error {
	app.observerMutex.Lock()
	defer app.observerMutex.Unlock()

	if _, exists := app.observers[observer.ObserverID()]; exists {
		delete(app.observers, observer.ObserverID())
		app.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}
	return nil
}

// NotifyObservers validates the event and hands it to every interested
// observer on its own goroutine. Observer errors and panics are logged.
func (app *ObservableApplication) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		app.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	app.observerMutex.RLock()
	defer app.observerMutex.RUnlock()

	for _, registration := range app.observers {
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}

		go func(registration *observerRegistration) {
			defer func() {
				if r := recover(); r != nil {
					app.logger.Error("Observer panicked", "observerID", registration.observer.ObserverID(), "event", event.Type(), "panic", r)
				}
			}()

			if err := registration.observer.OnEvent(ctx, event); err != nil {
				app.logger.Error("Observer error", "observerID", registration.observer.ObserverID(), "event", event.Type(), "error", err)
			}
		}(registration)
	}
	return nil
}

// GetObservers describes the registered observers.
func (app *ObservableApplication) GetObservers() []ObserverInfo {
	app.observerMutex.RLock()
	defer app.observerMutex.RUnlock()

	info := make([]ObserverInfo, 0, len(app.observers))
	for _, registration := range app.observers {
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}
	return info
}

func (app *ObservableApplication) emitEvent(ctx context.Context, eventType string, data any, metadata map[string]any) {
	event := NewCloudEvent(eventType, "application", data, metadata)
	if err := app.NotifyObservers(ctx, event); err != nil {
		app.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}

// RegisterModule registers a module and emits an event.
func (app *ObservableApplication) RegisterModule(module Module) {
	app.StdApplication.RegisterModule(module)
	app.emitEvent(context.Background(), EventTypeModuleRegistered, map[string]any{
		"moduleName": module.Name(),
	}, nil)
}

// RegisterService registers a service and emits an event.
func (app *ObservableApplication) RegisterService(name string, service any) error {
	if err := app.StdApplication.RegisterService(name, service); err != nil {
		return err
	}
	app.emitEvent(context.Background(), EventTypeServiceRegistered, map[string]any{
		"serviceName": name,
	}, nil)
	return nil
}

// Init initializes the application and hands the observable modules their subject.
func (app *ObservableApplication) Init() error {
	ctx := context.Background()

	if err := app.StdApplication.Init(); err != nil {
		app.emitEvent(ctx, EventTypeApplicationFailed, map[string]any{"phase": "init", "error": err.Error()}, nil)
		return err
	}
	app.emitEvent(ctx, EventTypeConfigLoaded, nil, map[string]any{"phase": "init_complete"})

	for _, module := range app.Modules() {
		if observable, ok := module.(ObservableModule); ok {
			if err := observable.RegisterObservers(app); err != nil {
				app.logger.Error("Failed to register observers for module", "module", module.Name(), "error", err)
			}
		}
	}

	app.lifetime.OnStopping(func() {
		app.emitEvent(context.Background(), EventTypeApplicationStopping, nil, nil)
	})
	return nil
}

// Start starts the application and emits lifecycle events.
func (app *ObservableApplication) Start() error {
	ctx := context.Background()
	if err := app.StdApplication.Start(); err != nil {
		app.emitEvent(ctx, EventTypeApplicationFailed, map[string]any{"phase": "start", "error": err.Error()}, nil)
		return err
	}
	app.emitEvent(ctx, EventTypeApplicationStarted, nil, nil)
	return nil
}

// Stop stops the application and emits lifecycle events.
func (app *ObservableApplication) Stop() error {
	ctx := context.Background()
	if err := app.StdApplication.Stop(); err != nil {
		app.emitEvent(ctx, EventTypeApplicationFailed, map[string]any{"phase": "stop", "error": err.Error()}, nil)
		return err
	}
	app.emitEvent(ctx, EventTypeApplicationStopped, nil, nil)
	return nil
}

// Run mirrors StdApplication.Run through the observable lifecycle methods.
func (app *ObservableApplication) Run() error {
	return run(app)
}
