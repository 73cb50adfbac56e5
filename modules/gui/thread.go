package gui

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"

	modular "github.com/GoCodeAlone/modular-gui"
)

// Factory creates the GUI application. It runs on the UI thread.
type Factory[A Application] func(host modular.Application) (A, error)

// Thread owns the UI thread of one GUI application: a goroutine locked to
// its OS thread that creates the application, runs the pre-start hook and
// the components, and then blocks in the event loop.
type Thread[A Application] struct {
	context *Context[A]
	factory Factory[A]

	mu         sync.Mutex
	name       string
	host       modular.Application
	logger     modular.Logger
	emit       func(eventType string, data map[string]any)
	preStart   func(*Context[A]) error
	hookLocked bool
	components []ComponentFactory
	err        error

	started       atomic.Bool
	exitRequested atomic.Bool
	dispatcher    atomic.Pointer[Dispatcher]
	done       chan struct{}
}

// NewThread creates a thread for the given context. The thread is bound to
// its host when the owning module is initialized.
func NewThread[A Application](appCtx *Context[A], factory Factory[A]) *Thread[A] {
	return &Thread[A]{
		context: appCtx,
		factory: factory,
		done:    make(chan struct{}),
		emit:    func(string, map[string]any) {},
	}
}

func (t *Thread[A]) bind(host modular.Application, name string, emit func(string, map[string]any)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.host = host
	t.logger = host.Logger()
	t.name = name
	if emit != nil {
		t.emit = emit
	}
}

// Name is the configured thread name.
func (t *Thread[A]) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// Host returns the application the thread is bound to, nil before the
// owning module was initialized.
func (t *Thread[A]) Host() modular.Application {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.host
}

// Context returns the shared application context.
func (t *Thread[A]) Context() *Context[A] {
	return t.context
}

// Start launches the UI thread. It does not wait for the application to
// be created.
func (t *Thread[A]) Start() error {
	t.mu.Lock()
	bound := t.host != nil
	t.mu.Unlock()
	if !bound {
		return ErrHostNotBound
	}
	if t.factory == nil {
		return ErrNoApplicationFactory
	}
	if !t.started.CompareAndSwap(false, true) {
		return ErrThreadAlreadyStarted
	}
	go t.run()
	return nil
}

// Started reports whether Start succeeded.
func (t *Thread[A]) Started() bool {
	return t.started.Load()
}

// Done is closed when the UI thread ended, normally or not.
func (t *Thread[A]) Done() <-chan struct{} {
	return t.done
}

// Err returns the failure that ended the UI thread before or instead of
// running the event loop.
func (t *Thread[A]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Dispatcher returns the UI thread's dispatcher.
func (t *Thread[A]) Dispatcher() (*Dispatcher, error) {
	d := t.dispatcher.Load()
	if d == nil {
		return nil, ErrThreadNotStarted
	}
	return d, nil
}

// CheckAccess reports whether the caller runs on this UI thread.
func (t *Thread[A]) CheckAccess() bool {
	d := t.dispatcher.Load()
	return d != nil && d.CheckAccess()
}

// SetPreStartHook installs the hook run on the UI thread after the
// application was created and before the event loop starts. Only one hook
// may be installed.
func (t *Thread[A]) SetPreStartHook(hook func(*Context[A]) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hookLocked {
		name := typeName[A]()
		return fmt.Errorf("%w: do not use UseInitialization[%s] and UseViewModelLocator[%s] together or call them multiple times",
			ErrInitializationLocked, name, name)
	}
	if t.started.Load() {
		return ErrThreadAlreadyStarted
	}
	t.preStart = hook
	t.hookLocked = true
	return nil
}

// AddComponent registers a component created on the UI thread before the
// event loop starts.
func (t *Thread[A]) AddComponent(factory ComponentFactory) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started.Load() {
		return ErrThreadAlreadyStarted
	}
	t.components = append(t.components, factory)
	return nil
}

// RequestExit closes every window on the UI thread and asks the host to
// stop. It does nothing unless the event loop is running, and only the
// first request acts.
func (t *Thread[A]) RequestExit() {
	t.RequestExitContext(context.Background())
}

// RequestExitContext is RequestExit with ctx bounding the wait for the
// windows to close. The host is asked to stop even when ctx expires first.
func (t *Thread[A]) RequestExitContext(ctx context.Context) {
	if !t.context.IsRunning() {
		return
	}
	// Closing the last window can end the loop and raise the exit event,
	// which calls back in here.
	if !t.exitRequested.CompareAndSwap(false, true) {
		return
	}

	if app, ok := t.context.Application(); ok {
		if d := app.Dispatcher(); d != nil {
			err := d.Invoke(ctx, app.CloseAllWindows)
			if err != nil && !errors.Is(err, ErrDispatcherClosed) {
				t.logger.Warn("Failed to close windows", "thread", t.Name(), "error", err)
			}
		}
	}

	t.emit(EventTypeExitRequested, map[string]any{"thread": t.Name()})
	t.host.Lifetime().StopApplication()
}

func (t *Thread[A]) run() {
	// Never unlocked: the OS thread exits with this goroutine and takes any
	// toolkit thread state with it.
	runtime.LockOSThread()
	defer close(t.done)

	d := NewDispatcher()
	d.Bind()
	t.dispatcher.Store(d)
	defer d.Close()

	t.emit(EventTypeThreadStarted, map[string]any{"thread": t.Name()})

	app, err := t.createApplication(d)
	if err != nil {
		t.fail(err)
		return
	}
	t.runLoop(app)
}

func (t *Thread[A]) createApplication(d *Dispatcher) (app A, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application construction panicked: %v", r)
		}
	}()

	app, err = t.factory(t.host)
	if err != nil {
		return app, fmt.Errorf("failed to create application: %w", err)
	}
	if isNil(app) {
		return app, ErrApplicationNil
	}
	app.Attach(d)

	if !t.context.IsLifetimeLinked() {
		app.OnExit(func(ExitEvent) { t.RequestExit() })
	}

	t.context.publish(app)
	t.emit(EventTypeApplicationCreated, map[string]any{"thread": t.Name(), "type": typeName[A]()})

	t.mu.Lock()
	hook := t.preStart
	t.mu.Unlock()
	if hook != nil {
		if err := hook(t.context); err != nil {
			return app, fmt.Errorf("initialization failed: %w", err)
		}
	}
	return app, nil
}

func (t *Thread[A]) runLoop(app A) {
	var components DisposableList
	defer func() {
		if err := components.Close(); err != nil {
			t.logger.Error("Failed to close UI components", "thread", t.Name(), "error", err)
		}
	}()

	t.mu.Lock()
	factories := append([]ComponentFactory(nil), t.components...)
	t.mu.Unlock()

	for _, factory := range factories {
		component, err := createComponent(factory)
		if component != nil {
			_ = components.Add(component)
		}
		if err != nil {
			t.fail(err)
			return
		}
	}

	t.context.setRunning()
	t.emit(EventTypeApplicationRunning, map[string]any{"thread": t.Name()})

	code := app.Run()

	t.context.claimShutdown()
	if code != 0 {
		t.host.SetExitCode(code)
	}
	t.logger.Debug("GUI event loop ended", "thread", t.Name(), "exitCode", code)
}

func createComponent(factory ComponentFactory) (c Component, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("component construction panicked: %v", r)
		}
	}()
	c, err = factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create component: %w", err)
	}
	if c == nil {
		return nil, nil
	}
	if err := c.InitializeComponent(); err != nil {
		return c, fmt.Errorf("failed to initialize component %T: %w", c, err)
	}
	return c, nil
}

func (t *Thread[A]) fail(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	t.logger.Error("GUI thread failed", "thread", t.Name(), "error", err)
	t.emit(EventTypeThreadFailed, map[string]any{"thread": t.Name(), "error": err.Error()})
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
