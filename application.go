package modular

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Application is the module host.
type Application interface {
	ConfigProvider() ConfigProvider
	SvcRegistry() ServiceRegistry
	RegisterModule(module Module)
	Modules() []Module
	RegisterConfigSection(section string, cp ConfigProvider)
	ConfigSections() map[string]ConfigProvider
	GetConfigSection(section string) (ConfigProvider, error)
	RegisterService(name string, service any) error
	GetService(name string, target any) error

	// Init loads configuration, orders modules by dependency, injects
	// services and initializes every module.
	Init() error
	// Start starts the host lifetime and then every Startable module.
	Start() error
	// Stop stops every Stoppable module in reverse order under the host
	// shutdown timeout. Module errors are joined.
	Stop() error
	// Run initializes, starts, waits for the stopping signal, stops and
	// closes the application.
	Run() error
	// Close releases the host lifetime. It is idempotent.
	Close() error

	Logger() Logger
	Lifetime() ApplicationLifetime
	HostOptions() *HostOptions
	Environment() *HostEnvironment
	ExitCode() int
	SetExitCode(code int)
}

// StdApplication represents the core StdApplication container
type StdApplication struct {
	cfgProvider    ConfigProvider
	cfgSections    map[string]ConfigProvider
	feeders        []Feeder
	svcRegistry    ServiceRegistry
	moduleRegistry ModuleRegistry
	logger         Logger
	lifetime       *StdLifetime
	hostLifetime   HostLifetime
	hostOptions    *HostOptions
	environment    *HostEnvironment
	exitCode       atomic.Int64

	mu          sync.Mutex
	initialized bool
	started     bool
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

// NewStdApplication creates a new application instance using the console
// host lifetime.
func NewStdApplication(cp ConfigProvider, logger Logger) Application {
	return newStdApplication(cp, logger)
}

func newStdApplication(cp ConfigProvider, logger Logger) *StdApplication {
	app := &StdApplication{
		cfgProvider:    cp,
		cfgSections:    make(map[string]ConfigProvider),
		svcRegistry:    make(ServiceRegistry),
		moduleRegistry: make(ModuleRegistry),
		logger:         logger,
		lifetime:       NewStdLifetime(logger),
		hostLifetime:   NewConsoleLifetime(),
		hostOptions:    &HostOptions{},
		environment:    &HostEnvironment{},
	}
	app.cfgSections[HostConfigSection] = NewStdConfigProvider(app.hostOptions)
	app.cfgSections[EnvironmentConfigSection] = NewStdConfigProvider(app.environment)
	return app
}

// ConfigProvider retrieves the application config provider
func (app *StdApplication) ConfigProvider() ConfigProvider {
	return app.cfgProvider
}

// SvcRegistry retrieves the service registry
func (app *StdApplication) SvcRegistry() ServiceRegistry {
	return app.svcRegistry
}

// RegisterModule adds a module to the application
func (app *StdApplication) RegisterModule(module Module) {
	app.moduleRegistry[module.Name()] = module
}

// Modules returns the registered modules sorted by name.
func (app *StdApplication) Modules() []Module {
	names := make([]string, 0, len(app.moduleRegistry))
	for name := range app.moduleRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	modules := make([]Module, 0, len(names))
	for _, name := range names {
		modules = append(modules, app.moduleRegistry[name])
	}
	return modules
}

// RegisterConfigSection registers a configuration section with the application
func (app *StdApplication) RegisterConfigSection(section string, cp ConfigProvider) {
	app.cfgSections[section] = cp
}

// ConfigSections retrieves all registered configuration sections
func (app *StdApplication) ConfigSections() map[string]ConfigProvider {
	return app.cfgSections
}

// GetConfigSection retrieves a configuration section
func (app *StdApplication) GetConfigSection(section string) (ConfigProvider, error) {
	cp, exists := app.cfgSections[section]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrConfigSectionNotFound, section)
	}
	return cp, nil
}

// SetConfigFeeders overrides the package level ConfigFeeders for this application.
func (app *StdApplication) SetConfigFeeders(feeders []Feeder) {
	app.feeders = feeders
}

func (app *StdApplication) configFeeders() []Feeder {
	if app.feeders != nil {
		return app.feeders
	}
	return ConfigFeeders
}

// SetHostLifetime replaces the host lifetime. It must be called before Start.
func (app *StdApplication) SetHostLifetime(l HostLifetime) error {
	if l == nil {
		return ErrHostLifetimeNil
	}
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.started {
		return ErrApplicationAlreadyStarted
	}
	app.hostLifetime = l
	return nil
}

// RegisterService adds a service with type checking
func (app *StdApplication) RegisterService(name string, service any) error {
	if _, exists := app.svcRegistry[name]; exists {
		return fmt.Errorf("%w: %s", ErrServiceAlreadyRegistered, name)
	}

	app.svcRegistry[name] = service
	app.logger.Debug("Registered service", "name", name, "type", reflect.TypeOf(service))
	return nil
}

// GetService retrieves a service and assigns it to target, which must be a
// pointer to an interface the service implements or to a compatible type.
func (app *StdApplication) GetService(name string, target any) error {
	service, exists := app.svcRegistry[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.IsNil() {
		return ErrTargetNotPointer
	}
	if !targetValue.Elem().IsValid() {
		return ErrTargetValueInvalid
	}

	serviceType := reflect.TypeOf(service)
	targetType := targetValue.Elem().Type()

	switch {
	case targetType.Kind() == reflect.Interface && serviceType.Implements(targetType):
		targetValue.Elem().Set(reflect.ValueOf(service))
		return nil
	case serviceType.AssignableTo(targetType):
		targetValue.Elem().Set(reflect.ValueOf(service))
		return nil
	case serviceType.Kind() == reflect.Ptr && serviceType.Elem().AssignableTo(targetType):
		targetValue.Elem().Set(reflect.ValueOf(service).Elem())
		return nil
	}

	return fmt.Errorf("%w: service '%s' of type %s cannot be assigned to %s",
		ErrServiceIncompatible, name, serviceType, targetType)
}

// Init initializes the application with the provided modules
func (app *StdApplication) Init() error {
	for _, module := range app.Modules() {
		configurable, ok := module.(Configurable)
		if !ok {
			app.logger.Debug("Module does not implement Configurable, skipping", "module", module.Name())
			continue
		}
		if err := configurable.RegisterConfig(app); err != nil {
			return fmt.Errorf("failed to register config for module %s: %w", module.Name(), err)
		}
	}

	if err := AppConfigLoader(app); err != nil {
		return fmt.Errorf("failed to load app config: %w", err)
	}
	app.environment.resolveContentRoot()

	for name, svc := range map[string]any{
		LifetimeServiceName:        ApplicationLifetime(app.lifetime),
		HostOptionsServiceName:     app.hostOptions,
		HostEnvironmentServiceName: app.environment,
	} {
		if err := app.RegisterService(name, svc); err != nil {
			return err
		}
	}

	moduleOrder, err := app.resolveDependencies()
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	for _, moduleName := range moduleOrder {
		if _, ok := app.moduleRegistry[moduleName].(ServiceAware); ok {
			app.moduleRegistry[moduleName], err = app.injectServices(app.moduleRegistry[moduleName])
			if err != nil {
				return fmt.Errorf("failed to inject services for module '%s': %w", moduleName, err)
			}
		}

		module := app.moduleRegistry[moduleName]
		if err = module.Init(app); err != nil {
			return fmt.Errorf("failed to initialize module '%s': %w", moduleName, err)
		}

		if svcAware, ok := module.(ServiceAware); ok {
			for _, svc := range svcAware.ProvidesServices() {
				if err = app.RegisterService(svc.Name, svc.Instance); err != nil {
					return fmt.Errorf("module '%s' failed to register service: %w", moduleName, err)
				}
			}
		}

		app.logger.Info(fmt.Sprintf("Initialized module %s of type %T", moduleName, module))
	}

	app.mu.Lock()
	app.initialized = true
	app.mu.Unlock()
	return nil
}

// Start starts the application
func (app *StdApplication) Start() error {
	app.mu.Lock()
	if !app.initialized {
		app.mu.Unlock()
		return ErrApplicationNotInitialized
	}
	if app.started {
		app.mu.Unlock()
		return ErrApplicationAlreadyStarted
	}
	app.started = true
	ctx, cancel := context.WithCancel(context.Background())
	app.ctx = ctx
	app.cancel = cancel
	hostLifetime := app.hostLifetime
	app.mu.Unlock()

	if err := hostLifetime.WaitForStart(ctx, app); err != nil {
		return fmt.Errorf("host lifetime failed to start: %w", err)
	}

	modules, err := app.resolveDependencies()
	if err != nil {
		return err
	}

	for _, name := range modules {
		startable, ok := app.moduleRegistry[name].(Startable)
		if !ok {
			app.logger.Debug("Module does not implement Startable, skipping", "module", name)
			continue
		}
		app.logger.Info("Starting module", "module", name)
		if err := startable.Start(ctx); err != nil {
			return fmt.Errorf("failed to start module %s: %w", name, err)
		}
	}

	app.lifetime.NotifyStarted()
	return nil
}

// Stop stops the application
func (app *StdApplication) Stop() error {
	app.lifetime.StopApplication()

	modules, err := app.resolveDependencies()
	if err != nil {
		return err
	}
	slices.Reverse(modules)

	ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout())
	defer cancel()

	var errs []error
	for _, name := range modules {
		stoppable, ok := app.moduleRegistry[name].(Stoppable)
		if !ok {
			app.logger.Debug("Module does not implement Stoppable, skipping", "module", name)
			continue
		}
		app.logger.Info("Stopping module", "module", name)
		if err := stoppable.Stop(ctx); err != nil {
			app.logger.Error("Error stopping module", "module", name, "error", err)
			errs = append(errs, fmt.Errorf("failed to stop module %s: %w", name, err))
		}
	}

	app.mu.Lock()
	hostLifetime := app.hostLifetime
	appCancel := app.cancel
	app.mu.Unlock()

	if err := hostLifetime.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("host lifetime failed to stop: %w", err))
	}

	app.lifetime.NotifyStopped()

	if appCancel != nil {
		appCancel()
	}

	return errors.Join(errs...)
}

// Run starts the application and blocks until the lifetime reports stopping.
func (app *StdApplication) Run() error {
	return run(app)
}

func run(app Application) error {
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger().Error("Failed to close application", "error", err)
		}
	}()

	if err := app.Init(); err != nil {
		return err
	}

	if err := app.Start(); err != nil {
		return errors.Join(err, app.Stop())
	}

	<-app.Lifetime().Stopping()

	return app.Stop()
}

// Close releases the host lifetime if it holds resources.
func (app *StdApplication) Close() error {
	app.closeOnce.Do(func() {
		app.mu.Lock()
		hostLifetime := app.hostLifetime
		app.mu.Unlock()
		if closer, ok := hostLifetime.(io.Closer); ok {
			app.closeErr = closer.Close()
		}
	})
	return app.closeErr
}

// Logger represents a logger
func (app *StdApplication) Logger() Logger {
	return app.logger
}

// Lifetime returns the host-wide lifecycle notifications.
func (app *StdApplication) Lifetime() ApplicationLifetime {
	return app.lifetime
}

// HostOptions returns the loaded host options.
func (app *StdApplication) HostOptions() *HostOptions {
	return app.hostOptions
}

// Environment returns the loaded host environment.
func (app *StdApplication) Environment() *HostEnvironment {
	return app.environment
}

// ExitCode is the process exit code the application asks for.
func (app *StdApplication) ExitCode() int {
	return int(app.exitCode.Load())
}

func (app *StdApplication) SetExitCode(code int) {
	app.exitCode.Store(int64(code))
}

func (app *StdApplication) shutdownTimeout() time.Duration {
	if app.hostOptions.ShutdownTimeout > 0 {
		return app.hostOptions.ShutdownTimeout
	}
	return defaultShutdownTimeout
}

// injectServices resolves the services a module requires and rebuilds it
// through its constructor when it has one.
func (app *StdApplication) injectServices(module Module) (Module, error) {
	requiredServices := make(map[string]any)
	for _, dep := range module.(ServiceAware).RequiresServices() {
		serviceName, service, found := app.findService(dep)
		if found {
			if valid, err := checkServiceCompatibility(service, dep); !valid {
				return nil, fmt.Errorf("failed to inject service '%s': %w", serviceName, err)
			}
			requiredServices[serviceName] = service
			continue
		}
		if !dep.Required {
			continue
		}
		if dep.MatchByInterface {
			return nil, fmt.Errorf("%w: no service found implementing interface %v for %s",
				ErrRequiredServiceNotFound, dep.SatisfiesInterface, module.Name())
		}
		return nil, fmt.Errorf("%w: %s for %s", ErrRequiredServiceNotFound, dep.Name, module.Name())
	}

	withConstructor, ok := module.(Constructable)
	if !ok {
		return module, nil
	}
	newModule, err := withConstructor.Constructor()(app, requiredServices)
	if err != nil {
		return nil, fmt.Errorf("failed to construct module '%s': %w", module.Name(), err)
	}
	app.moduleRegistry[module.Name()] = newModule
	return newModule, nil
}

func (app *StdApplication) findService(dep ServiceDependency) (string, any, bool) {
	if dep.MatchByInterface && dep.SatisfiesInterface != nil && dep.SatisfiesInterface.Kind() == reflect.Interface {
		names := make([]string, 0, len(app.svcRegistry))
		for name := range app.svcRegistry {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			svc := app.svcRegistry[name]
			if svc != nil && implementsInterface(reflect.TypeOf(svc), dep.SatisfiesInterface) {
				return name, svc, true
			}
		}
		return "", nil, false
	}
	if dep.Name == "" {
		return "", nil, false
	}
	svc, ok := app.svcRegistry[dep.Name]
	return dep.Name, svc, ok
}

// resolveDependencies returns modules in initialization order. Modules
// without an ordering constraint between them are ordered by name.
func (app *StdApplication) resolveDependencies() ([]string, error) {
	graph := make(map[string][]string)
	for name, module := range app.moduleRegistry {
		if depAware, ok := module.(DependencyAware); ok {
			graph[name] = depAware.Dependencies()
		} else {
			graph[name] = nil
		}
	}

	app.addImplicitDependencies(graph)

	var result []string
	visited := make(map[string]bool)
	temp := make(map[string]bool)

	var visit func(string) error
	visit = func(node string) error {
		if temp[node] {
			return fmt.Errorf("%w: %s", ErrCircularDependency, node)
		}
		if visited[node] {
			return nil
		}
		temp[node] = true

		deps := slices.Clone(graph[node])
		sort.Strings(deps)
		for _, dep := range deps {
			if _, exists := app.moduleRegistry[dep]; !exists {
				return fmt.Errorf("%w: %s depends on non-existent module %s",
					ErrModuleDependencyMissing, node, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		visited[node] = true
		temp[node] = false
		result = append(result, node)
		return nil
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if err := visit(node); err != nil {
			return nil, err
		}
	}

	app.logger.Debug("Module initialization order", "order", result)
	return result, nil
}

// addImplicitDependencies makes a module that requires a service depend on
// the module providing it, by name or by interface.
func (app *StdApplication) addImplicitDependencies(graph map[string][]string) {
	type provided struct {
		module string
		svc    any
	}
	providers := make(map[string]provided)
	for moduleName, module := range app.moduleRegistry {
		svcAware, ok := module.(ServiceAware)
		if !ok {
			continue
		}
		for _, svc := range svcAware.ProvidesServices() {
			if svc.Instance != nil {
				providers[svc.Name] = provided{module: moduleName, svc: svc.Instance}
			}
		}
	}

	serviceNames := make([]string, 0, len(providers))
	for name := range providers {
		serviceNames = append(serviceNames, name)
	}
	sort.Strings(serviceNames)

	for consumer, module := range app.moduleRegistry {
		svcAware, ok := module.(ServiceAware)
		if !ok {
			continue
		}
		for _, dep := range svcAware.RequiresServices() {
			if !dep.Required {
				continue
			}
			provider := ""
			if dep.MatchByInterface && dep.SatisfiesInterface != nil && dep.SatisfiesInterface.Kind() == reflect.Interface {
				for _, name := range serviceNames {
					if implementsInterface(reflect.TypeOf(providers[name].svc), dep.SatisfiesInterface) {
						provider = providers[name].module
						break
					}
				}
			} else if p, ok := providers[dep.Name]; ok {
				provider = p.module
			}

			if provider == "" || provider == consumer || slices.Contains(graph[consumer], provider) {
				continue
			}
			graph[consumer] = append(graph[consumer], provider)
			app.logger.Debug("Added implicit dependency due to service requirement",
				"consumer", consumer, "provider", provider, "service", dep.Name)
		}
	}
}
