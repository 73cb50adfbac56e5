package gui

import (
	"sync"
	"sync/atomic"
)

// AppContext is the state shared by the UI thread, the module and the
// lifetime, independent of the application type.
type AppContext interface {
	// IsRunning reports whether the event loop is running and no shutdown
	// has been accepted yet.
	IsRunning() bool
	// IsLifetimeLinked reports whether the GUI lifetime drives the host.
	IsLifetimeLinked() bool
	// SetLifetimeLinked is called by the GUI lifetime before the UI thread starts.
	SetLifetimeLinked(linked bool)
	// App returns the application once it was created.
	App() (Application, bool)
	// Created is closed when the application is published.
	Created() <-chan struct{}
	// Dispatcher returns the dispatcher of the published application.
	Dispatcher() (*Dispatcher, error)
}

// Context holds the application handle and the running flags of one GUI.
// The handle is published once by the UI thread; later publications are
// ignored.
type Context[A Application] struct {
	running        atomic.Bool
	lifetimeLinked atomic.Bool
	app            atomic.Pointer[A]
	created        chan struct{}
	createdOnce    sync.Once
}

// NewContext creates an empty context.
func NewContext[A Application]() *Context[A] {
	return &Context[A]{created: make(chan struct{})}
}

func (c *Context[A]) IsRunning() bool {
	return c.running.Load()
}

func (c *Context[A]) IsLifetimeLinked() bool {
	return c.lifetimeLinked.Load()
}

func (c *Context[A]) SetLifetimeLinked(linked bool) {
	c.lifetimeLinked.Store(linked)
}

// Application returns the typed application once it was created.
func (c *Context[A]) Application() (A, bool) {
	p := c.app.Load()
	if p == nil {
		var zero A
		return zero, false
	}
	return *p, true
}

func (c *Context[A]) App() (Application, bool) {
	app, ok := c.Application()
	if !ok {
		return nil, false
	}
	return app, true
}

func (c *Context[A]) Created() <-chan struct{} {
	return c.created
}

func (c *Context[A]) Dispatcher() (*Dispatcher, error) {
	app, ok := c.Application()
	if !ok {
		return nil, ErrApplicationNotCreated
	}
	d := app.Dispatcher()
	if d == nil {
		return nil, ErrThreadNotStarted
	}
	return d, nil
}

func (c *Context[A]) publish(app A) bool {
	if !c.app.CompareAndSwap(nil, &app) {
		return false
	}
	c.createdOnce.Do(func() { close(c.created) })
	return true
}

func (c *Context[A]) setRunning() {
	c.running.Store(true)
}

// claimShutdown clears the running flag. Only the caller that observed
// running=true wins.
func (c *Context[A]) claimShutdown() bool {
	return c.running.CompareAndSwap(true, false)
}
