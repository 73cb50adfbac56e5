package modular

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Option represents a functional option for configuring applications
type Option func(*ApplicationBuilder) error

// ObserverFunc is a functional observer registered through WithObserver.
type ObserverFunc func(ctx context.Context, event cloudevents.Event) error

// ApplicationBuilder collects options and builds the application.
type ApplicationBuilder struct {
	logger         Logger
	configProvider ConfigProvider
	feeders        []Feeder
	modules        []Module
	observers      []ObserverFunc
	hostLifetime   HostLifetime
	environment    *HostEnvironment
}

// NewApplication creates a new application with the provided options.
// A logger is required. Observers switch the result to an ObservableApplication.
func NewApplication(opts ...Option) (Application, error) {
	builder := &ApplicationBuilder{}
	for _, opt := range opts {
		if err := opt(builder); err != nil {
			return nil, err
		}
	}
	return builder.Build()
}

// Build constructs the application.
func (b *ApplicationBuilder) Build() (Application, error) {
	if b.logger == nil {
		return nil, ErrLoggerNotSet
	}
	if b.configProvider == nil {
		b.configProvider = NewStdConfigProvider(&struct{}{})
	}

	var app Application
	var std *StdApplication
	if len(b.observers) > 0 {
		obs := NewObservableApplication(b.configProvider, b.logger)
		for i, fn := range b.observers {
			if err := obs.RegisterObserver(NewFunctionalObserver(fmt.Sprintf("observer-%d", i), fn)); err != nil {
				return nil, fmt.Errorf("failed to register observer: %w", err)
			}
		}
		app, std = obs, obs.StdApplication
	} else {
		std = newStdApplication(b.configProvider, b.logger)
		app = std
	}

	if b.feeders != nil {
		std.SetConfigFeeders(b.feeders)
	}
	if b.hostLifetime != nil {
		if err := std.SetHostLifetime(b.hostLifetime); err != nil {
			return nil, err
		}
	}
	if b.environment != nil {
		*std.environment = *b.environment
	}

	for _, module := range b.modules {
		app.RegisterModule(module)
	}
	return app, nil
}

// WithLogger sets the application logger.
func WithLogger(logger Logger) Option {
	return func(b *ApplicationBuilder) error {
		b.logger = logger
		return nil
	}
}

// WithConfigProvider sets the main configuration provider.
func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *ApplicationBuilder) error {
		b.configProvider = provider
		return nil
	}
}

// WithConfigFeeders sets the feeders used to load configuration.
func WithConfigFeeders(feeders ...Feeder) Option {
	return func(b *ApplicationBuilder) error {
		b.feeders = append(b.feeders, feeders...)
		return nil
	}
}

// WithModules registers modules.
func WithModules(modules ...Module) Option {
	return func(b *ApplicationBuilder) error {
		b.modules = append(b.modules, modules...)
		return nil
	}
}

// WithObserver registers functional observers and makes the application observable.
func WithObserver(observers ...ObserverFunc) Option {
	return func(b *ApplicationBuilder) error {
		b.observers = append(b.observers, observers...)
		return nil
	}
}

// WithHostLifetime replaces the console lifetime.
func WithHostLifetime(lifetime HostLifetime) Option {
	return func(b *ApplicationBuilder) error {
		if lifetime == nil {
			return ErrHostLifetimeNil
		}
		b.hostLifetime = lifetime
		return nil
	}
}

// WithEnvironment presets the host environment. Loaded configuration still
// overrides it.
func WithEnvironment(env HostEnvironment) Option {
	return func(b *ApplicationBuilder) error {
		b.environment = &env
		return nil
	}
}
