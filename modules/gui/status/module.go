// Package status serves a small diagnostics API for a hosted GUI: the state
// of its application context and a way to close it remotely.
//
// The module requires the context and thread services of a gui module, so it
// is initialized after the GUI and stopped before it.
package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"sync"

	modular "github.com/GoCodeAlone/modular-gui"
	"github.com/GoCodeAlone/modular-gui/modules/gui"
)

// ModuleName is the name of the module and of its configuration section.
const ModuleName = "gui_status"

var (
	ErrServerStarted  = errors.New("status server already started")
	ErrMissingService = errors.New("status module is missing a GUI service")
)

// Module serves NewRouter over HTTP.
type Module struct {
	guiName string
	config  *Config

	appCtx gui.AppContext
	exiter Exiter
	logger modular.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	served   chan struct{}
}

// Option configures a Module.
type Option func(*Module)

// WithGUI binds the module to the GUI module named name instead of the
// default gui module.
func WithGUI(name string) Option {
	return func(m *Module) {
		if name != "" {
			m.guiName = name
		}
	}
}

// WithAddress presets the listen address. Loaded configuration overrides it.
func WithAddress(addr string) Option {
	return func(m *Module) {
		m.config.Address = addr
	}
}

// NewModule creates a status module.
func NewModule(opts ...Option) *Module {
	m := &Module{guiName: gui.ModuleName, config: &Config{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Name() string {
	return ModuleName
}

func (m *Module) RegisterConfig(app modular.Application) error {
	app.RegisterConfigSection(ModuleName, modular.NewStdConfigProvider(m.config))
	return nil
}

func (m *Module) contextService() string {
	if m.guiName == gui.ModuleName {
		return gui.ContextServiceName
	}
	return m.guiName + ".context"
}

func (m *Module) threadService() string {
	if m.guiName == gui.ModuleName {
		return gui.ThreadServiceName
	}
	return m.guiName + ".thread"
}

func (m *Module) ProvidesServices() []modular.ServiceProvider {
	return nil
}

func (m *Module) RequiresServices() []modular.ServiceDependency {
	return []modular.ServiceDependency{
		{
			Name:               m.contextService(),
			Required:           true,
			SatisfiesInterface: reflect.TypeFor[gui.AppContext](),
		},
		{
			Name:               m.threadService(),
			Required:           true,
			SatisfiesInterface: reflect.TypeFor[Exiter](),
		},
	}
}

// Constructor binds the resolved GUI services.
func (m *Module) Constructor() modular.ModuleConstructor {
	return func(app modular.Application, services map[string]any) (modular.Module, error) {
		appCtx, ok := services[m.contextService()].(gui.AppContext)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingService, m.contextService())
		}
		exiter, ok := services[m.threadService()].(Exiter)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingService, m.threadService())
		}
		m.appCtx = appCtx
		m.exiter = exiter
		return m, nil
	}
}

func (m *Module) Init(app modular.Application) error {
	m.logger = app.Logger()
	return nil
}

// Addr returns the address the server listens on, nil before Start.
func (m *Module) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Start listens on the configured address and serves in a goroutine.
func (m *Module) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server != nil {
		return ErrServerStarted
	}

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", m.config.Address)
	if err != nil {
		return fmt.Errorf("status server listen on %s: %w", m.config.Address, err)
	}
	m.listener = listener
	m.server = &http.Server{
		Handler:           NewRouter(m.appCtx, m.exiter, m.logger, m.config.UITimeout),
		ReadHeaderTimeout: m.config.ReadHeaderTimeout,
	}
	m.served = make(chan struct{})

	server, served := m.server, m.served
	go func() {
		defer close(served)
		m.logger.Info("Starting HTTP server", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (m *Module) Stop(ctx context.Context) error {
	m.mu.Lock()
	server, served := m.server, m.served
	m.server = nil
	m.mu.Unlock()
	if server == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.ShutdownTimeout)
		defer cancel()
	}

	m.logger.Info("Stopping HTTP server")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down status server: %w", err)
	}
	<-served
	m.logger.Info("HTTP server stopped successfully")
	return nil
}
