// Package gui hosts a single-threaded GUI event loop as a module of a
// modular application.
//
// The GUI runs on a dedicated goroutine locked to its OS thread. The module
// starts that thread when the host starts and asks the GUI to shut down,
// on its own thread, when the host stops. Installing the GUI lifetime with
// UseLifetime reverses the relationship: closing the GUI stops the host.
//
//	app, _ := modular.NewApplication(modular.WithLogger(logger), gui.UseLifetime())
//	m := gui.Register[MyApp](app)
//	_ = gui.UseInitialization(m.Thread())
//	_ = app.Run()
package gui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	modular "github.com/GoCodeAlone/modular-gui"
)

// ModuleName is the name of the module and of its configuration section.
const ModuleName = "gui"

// Services registered by the module named ModuleName, in addition to the
// per-module "<name>.context" and "<name>.thread".
const (
	ContextServiceName = "guiContext"
	ThreadServiceName  = "guiThread"
)

// Option configures a Module.
type Option[A Application] func(*Module[A])

// WithName names the module. Every GUI after the first needs its own name.
func WithName[A Application](name string) Option[A] {
	return func(m *Module[A]) {
		m.name = name
	}
}

// WithConfig presets the configuration. Loaded configuration overrides it.
func WithConfig[A Application](cfg Config) Option[A] {
	return func(m *Module[A]) {
		*m.config = cfg
	}
}

// Module runs one GUI application on its own UI thread.
type Module[A Application] struct {
	name    string
	config  *Config
	context *Context[A]
	thread  *Thread[A]
	app     modular.Application
	logger  modular.Logger

	mu      sync.RWMutex
	subject modular.Subject
}

// NewModule creates a module whose application is built by factory on the
// UI thread.
func NewModule[A Application](factory Factory[A], opts ...Option[A]) *Module[A] {
	appCtx := NewContext[A]()
	m := &Module[A]{
		name:    ModuleName,
		config:  &Config{},
		context: appCtx,
		thread:  NewThread(appCtx, factory),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register registers a module creating the zero value of T.
func Register[T any, PT interface {
	*T
	Application
}](app modular.Application, opts ...Option[PT]) *Module[PT] {
	return RegisterWithFactory(app, func(modular.Application) (PT, error) {
		return PT(new(T)), nil
	}, opts...)
}

// RegisterWithFactory registers a module using factory.
func RegisterWithFactory[A Application](app modular.Application, factory Factory[A], opts ...Option[A]) *Module[A] {
	m := NewModule(factory, opts...)
	app.RegisterModule(m)
	return m
}

func (m *Module[A]) Name() string {
	return m.name
}

// Thread returns the UI thread, for hooks and components.
func (m *Module[A]) Thread() *Thread[A] {
	return m.thread
}

// Context returns the shared application context.
func (m *Module[A]) Context() *Context[A] {
	return m.context
}

// Config returns the loaded configuration.
func (m *Module[A]) Config() *Config {
	return m.config
}

// RegisterConfig registers the "gui" section, or joins the one an earlier
// GUI module registered.
func (m *Module[A]) RegisterConfig(app modular.Application) error {
	if provider, err := app.GetConfigSection(ModuleName); err == nil {
		cfg, ok := provider.GetConfig().(*Config)
		if !ok {
			return fmt.Errorf("%w: %T", ErrConfigNotFound, provider.GetConfig())
		}
		m.config = cfg
		return nil
	}
	app.RegisterConfigSection(ModuleName, modular.NewStdConfigProvider(m.config))
	return nil
}

func (m *Module[A]) Init(app modular.Application) error {
	m.app = app
	m.logger = app.Logger()
	name := m.config.ThreadName
	if name == "" {
		name = m.name
	}
	m.thread.bind(app, name, m.emit)
	return nil
}

func (m *Module[A]) ProvidesServices() []modular.ServiceProvider {
	services := []modular.ServiceProvider{
		{Name: m.name + ".context", Description: "GUI application context", Instance: m.context},
		{Name: m.name + ".thread", Description: "GUI UI thread", Instance: m.thread},
	}
	if m.name == ModuleName {
		services = append(services,
			modular.ServiceProvider{Name: ContextServiceName, Description: "GUI application context", Instance: m.context},
			modular.ServiceProvider{Name: ThreadServiceName, Description: "GUI UI thread", Instance: m.thread},
		)
	}
	return services
}

func (m *Module[A]) RequiresServices() []modular.ServiceDependency {
	return nil
}

// Start launches the UI thread unless ctx is already cancelled.
func (m *Module[A]) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		m.logger.Debug("Start cancelled before the GUI thread was launched", "module", m.name)
		return nil
	}
	m.logger.Info("Starting GUI application", "module", m.name)
	if err := m.thread.Start(); err != nil {
		return fmt.Errorf("failed to start GUI thread: %w", err)
	}
	m.logger.Info("GUI thread started", "thread", m.thread.Name())
	return nil
}

// Stop shuts the application down on the UI thread when it is still
// running, and waits for that call. Concurrent stops shut down once.
func (m *Module[A]) Stop(ctx context.Context) error {
	app, ok := m.context.Application()
	if !ok || !m.context.IsRunning() {
		m.logger.Debug("GUI not running, nothing to stop", "module", m.name)
		return nil
	}
	if app.IsShutdown() {
		m.logger.Debug("GUI already shut down", "module", m.name)
		return nil
	}
	d := app.Dispatcher()
	if d == nil {
		return nil
	}

	if m.config.StopTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.StopTimeout)
		defer cancel()
	}

	m.logger.Info("Stopping GUI with Application.Shutdown() due to application exit", "module", m.name)
	err := d.Invoke(ctx, func() error {
		if app.IsShutdown() || !m.context.claimShutdown() {
			return nil
		}
		if err := app.Shutdown(0); err != nil && !errors.Is(err, ErrAlreadyShutdown) {
			return err
		}
		m.emit(EventTypeApplicationShutdown, map[string]any{"thread": m.thread.Name()})
		return nil
	})
	if errors.Is(err, ErrDispatcherClosed) {
		return nil
	}
	return err
}

func (m *Module[A]) RegisterObservers(subject modular.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subject = subject
	return nil
}

func (m *Module[A]) EmitEvent(ctx context.Context, event cloudevents.Event) error {
	m.mu.RLock()
	subject := m.subject
	m.mu.RUnlock()
	if subject == nil {
		return modular.ErrNoSubjectForEventEmission
	}
	return subject.NotifyObservers(ctx, event)
}

func (m *Module[A]) emit(eventType string, data map[string]any) {
	event := modular.NewCloudEvent(eventType, m.name, data, map[string]any{"emittedat": time.Now().UTC().Format(time.RFC3339Nano)})
	if err := m.EmitEvent(context.Background(), event); err != nil {
		modular.HandleEventEmissionError(err, m.logger, m.name, eventType)
	}
}
