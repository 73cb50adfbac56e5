package modular

import (
	"fmt"
	"sync"
)

// ApplicationLifetime exposes the host-wide lifecycle notifications and the
// request to stop the application. Each phase fires exactly once.
//
// Callbacks registered after a phase fired run immediately on the caller.
type ApplicationLifetime interface {
	// OnStarted registers a callback run once every module has started.
	OnStarted(callback func()) Registration

	// OnStopping registers a callback run when shutdown begins.
	OnStopping(callback func()) Registration

	// OnStopped registers a callback run once every module has stopped.
	OnStopped(callback func()) Registration

	// Started is closed when the started phase fires.
	Started() <-chan struct{}

	// Stopping is closed when the stopping phase fires.
	Stopping() <-chan struct{}

	// Stopped is closed when the stopped phase fires.
	Stopped() <-chan struct{}

	// StopApplication requests shutdown. Safe from any goroutine; the
	// stopping callbacks run synchronously on the first caller only.
	StopApplication()
}

// Registration is returned by the lifetime callbacks. Close unregisters the
// callback and is idempotent.
type Registration interface {
	Close() error
}

type registrationFunc func()

func (f registrationFunc) Close() error {
	f()
	return nil
}

// StdLifetime is the default ApplicationLifetime.
type StdLifetime struct {
	logger   Logger
	started  *notification
	stopping *notification
	stopped  *notification
}

// NewStdLifetime creates an ApplicationLifetime whose callback panics are
// reported to logger.
func NewStdLifetime(logger Logger) *StdLifetime {
	return &StdLifetime{
		logger:   logger,
		started:  newNotification("started"),
		stopping: newNotification("stopping"),
		stopped:  newNotification("stopped"),
	}
}

func (l *StdLifetime) OnStarted(callback func()) Registration {
	return l.started.register(callback, l.logger)
}

func (l *StdLifetime) OnStopping(callback func()) Registration {
	return l.stopping.register(callback, l.logger)
}

func (l *StdLifetime) OnStopped(callback func()) Registration {
	return l.stopped.register(callback, l.logger)
}

func (l *StdLifetime) Started() <-chan struct{}  { return l.started.done }
func (l *StdLifetime) Stopping() <-chan struct{} { return l.stopping.done }
func (l *StdLifetime) Stopped() <-chan struct{}  { return l.stopped.done }

func (l *StdLifetime) StopApplication() {
	l.stopping.fire(l.logger)
}

// NotifyStarted fires the started phase. Called by the application.
func (l *StdLifetime) NotifyStarted() {
	l.started.fire(l.logger)
}

// NotifyStopped fires the stopped phase. Called by the application.
func (l *StdLifetime) NotifyStopped() {
	l.stopped.fire(l.logger)
}

// notification is a one-shot broadcast with removable callbacks, run in
// registration order.
type notification struct {
	name      string
	mu        sync.Mutex
	fired     bool
	done      chan struct{}
	nextID    uint64
	order     []uint64
	callbacks map[uint64]func()
}

func newNotification(name string) *notification {
	return &notification{
		name:      name,
		done:      make(chan struct{}),
		callbacks: make(map[uint64]func()),
	}
}

func (n *notification) register(callback func(), logger Logger) Registration {
	n.mu.Lock()
	if n.fired {
		n.mu.Unlock()
		n.invoke(callback, logger)
		return registrationFunc(func() {})
	}
	id := n.nextID
	n.nextID++
	n.order = append(n.order, id)
	n.callbacks[id] = callback
	n.mu.Unlock()

	var once sync.Once
	return registrationFunc(func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.callbacks, id)
			n.mu.Unlock()
		})
	})
}

// fire runs the registered callbacks once. It reports whether this call
// was the one that fired.
func (n *notification) fire(logger Logger) bool {
	n.mu.Lock()
	if n.fired {
		n.mu.Unlock()
		return false
	}
	n.fired = true
	close(n.done)
	pending := make([]func(), 0, len(n.callbacks))
	for _, id := range n.order {
		if cb, ok := n.callbacks[id]; ok {
			pending = append(pending, cb)
		}
	}
	n.callbacks = map[uint64]func(){}
	n.order = nil
	n.mu.Unlock()

	for _, cb := range pending {
		n.invoke(cb, logger)
	}
	return true
}

func (n *notification) invoke(callback func(), logger Logger) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("Lifetime callback panicked", "phase", n.name, "panic", fmt.Sprint(r))
		}
	}()
	callback()
}
