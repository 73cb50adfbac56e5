package gui

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

// Application is the GUI toolkit's application object. It is created and
// driven on the UI thread; only IsShutdown may be called from elsewhere.
type Application interface {
	// Attach hands the application the dispatcher of its UI thread.
	Attach(d *Dispatcher)
	// Dispatcher returns the attached dispatcher.
	Dispatcher() *Dispatcher
	// Run blocks in the event loop until Shutdown and returns the exit code.
	Run() int
	// Shutdown ends the event loop. A second call returns ErrAlreadyShutdown.
	Shutdown(exitCode int) error
	// IsShutdown reports whether Shutdown was accepted.
	IsShutdown() bool
	// OnExit subscribes to the exit event raised on the UI thread when the
	// loop ends.
	OnExit(handler ExitHandler) Subscription
	// Windows returns the open windows.
	Windows() []Window
	// CloseAllWindows closes every open window.
	CloseAllWindows() error
	// Resources is the application-level resource dictionary.
	Resources() *Resources
}

// ExitEvent is raised when the event loop ends.
type ExitEvent struct {
	ExitCode int
}

// ExitHandler handles the exit event.
type ExitHandler func(ExitEvent)

// Subscription is returned by OnExit.
type Subscription interface {
	Unsubscribe()
}

// Window is a top-level window of the application.
type Window interface {
	Title() string
	Close() error
}

// ShutdownMode controls whether closing windows ends the application.
type ShutdownMode int

const (
	// ShutdownOnExplicitShutdown ends the loop only on Shutdown.
	ShutdownOnExplicitShutdown ShutdownMode = iota
	// ShutdownOnLastWindowClose ends the loop when the last window closes.
	ShutdownOnLastWindowClose
)

// Base implements the toolkit-independent parts of Application. Toolkits
// embed it and replace Run with their own loop built on Done and
// CompleteRun. The zero value is ready to use.
type Base struct {
	ShutdownMode ShutdownMode

	initOnce   sync.Once
	dispatcher atomic.Pointer[Dispatcher]
	resources  *Resources
	quit       chan struct{}
	shutdown   atomic.Bool
	exitCode   atomic.Int64

	mu       sync.Mutex
	handlers []exitHandler
	nextID   uint64
	windows  []Window
}

type exitHandler struct {
	id uint64
	fn ExitHandler
}

func (b *Base) init() {
	b.initOnce.Do(func() {
		b.quit = make(chan struct{})
		b.resources = NewResources()
	})
}

func (b *Base) Attach(d *Dispatcher) {
	b.dispatcher.Store(d)
}

func (b *Base) Dispatcher() *Dispatcher {
	return b.dispatcher.Load()
}

// Run drains the dispatcher until Shutdown, raises the exit event and
// returns the exit code. Without an attached dispatcher it binds one to the
// calling thread.
func (b *Base) Run() int {
	d := b.Dispatcher()
	if d == nil {
		d = NewDispatcher()
		d.Bind()
		b.Attach(d)
	}
	done := b.Done()
	for {
		select {
		case <-d.Ready():
			d.Drain()
		case <-done:
			return b.CompleteRun()
		}
	}
}

// Done is closed when Shutdown is accepted.
func (b *Base) Done() <-chan struct{} {
	b.init()
	return b.quit
}

// CompleteRun raises the exit event and returns the exit code. Toolkit
// loops call it once, on the UI thread, after Done is closed.
func (b *Base) CompleteRun() int {
	code := b.ExitCode()
	b.mu.Lock()
	handlers := slices.Clone(b.handlers)
	b.mu.Unlock()
	for _, h := range handlers {
		h.fn(ExitEvent{ExitCode: code})
	}
	return code
}

func (b *Base) Shutdown(exitCode int) error {
	b.init()
	if !b.shutdown.CompareAndSwap(false, true) {
		return ErrAlreadyShutdown
	}
	b.exitCode.Store(int64(exitCode))
	close(b.quit)
	return nil
}

func (b *Base) IsShutdown() bool {
	return b.shutdown.Load()
}

// ExitCode is the code passed to Shutdown.
func (b *Base) ExitCode() int {
	return int(b.exitCode.Load())
}

func (b *Base) OnExit(handler ExitHandler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers = append(b.handlers, exitHandler{id: id, fn: handler})
	return subscriptionFunc(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers = slices.DeleteFunc(b.handlers, func(h exitHandler) bool { return h.id == id })
	})
}

// ExitHandlerCount reports the number of exit subscriptions.
func (b *Base) ExitHandlerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// AddWindow tracks an opened window.
func (b *Base) AddWindow(w Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows = append(b.windows, w)
}

// RemoveWindow forgets a closed window. Removing the last window shuts the
// application down under ShutdownOnLastWindowClose.
func (b *Base) RemoveWindow(w Window) {
	b.mu.Lock()
	before := len(b.windows)
	b.windows = slices.DeleteFunc(b.windows, func(o Window) bool { return o == w })
	last := before > 0 && len(b.windows) == 0
	b.mu.Unlock()

	if last && b.ShutdownMode == ShutdownOnLastWindowClose {
		_ = b.Shutdown(0)
	}
}

func (b *Base) Windows() []Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.windows)
}

// CloseAllWindows closes windows newest first and joins their errors.
func (b *Base) CloseAllWindows() error {
	windows := b.Windows()
	var errs []error
	for i := len(windows) - 1; i >= 0; i-- {
		if err := windows[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Base) Resources() *Resources {
	b.init()
	return b.resources
}

type subscriptionFunc func()

func (f subscriptionFunc) Unsubscribe() {
	f()
}
