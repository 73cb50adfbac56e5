// Package modular hosts long-running services as modules with a shared
// lifecycle: configuration loading, dependency ordered initialization,
// service injection, start and stop, and host-wide lifetime notifications.
package modular

import "context"

// Module represents a registrable component in the application.
// Modules are initialized in dependency order and may optionally implement
// Configurable, DependencyAware, ServiceAware, Startable and Stoppable.
type Module interface {
	// Name returns the unique identifier for this module.
	Name() string

	// Init initializes the module with the application context.
	// Required services have already been injected when Init runs.
	Init(app Application) error
}

// Configurable is implemented by modules that register configuration sections.
type Configurable interface {
	// RegisterConfig registers the module's configuration sections.
	// It is called before configuration is loaded.
	RegisterConfig(app Application) error
}

// DependencyAware is implemented by modules that depend on other modules by name.
type DependencyAware interface {
	// Dependencies returns the names of modules that must be initialized first.
	Dependencies() []string
}

// ServiceAware is implemented by modules that provide or consume services.
type ServiceAware interface {
	// ProvidesServices returns the services this module registers after Init.
	ProvidesServices() []ServiceProvider

	// RequiresServices returns the services this module needs injected.
	RequiresServices() []ServiceDependency
}

// Startable is implemented by modules with runtime behavior.
type Startable interface {
	// Start begins the module's runtime operations. It is called after every
	// module has been initialized, in dependency order. Start must not block
	// for the lifetime of the module; long-running work belongs in goroutines.
	Start(ctx context.Context) error
}

// Stoppable is implemented by modules that need cleanup on shutdown.
type Stoppable interface {
	// Stop performs graceful shutdown. Modules are stopped in reverse
	// dependency order and the context carries the host shutdown timeout.
	Stop(ctx context.Context) error
}

// Constructable is implemented by modules that are rebuilt once their
// required services have been resolved.
type Constructable interface {
	Constructor() ModuleConstructor
}

// ModuleConstructor creates a module instance from the resolved services,
// keyed by service name.
type ModuleConstructor func(app Application, services map[string]any) (Module, error)

// ModuleRegistry represents a registry of modules keyed by their names.
type ModuleRegistry map[string]Module
