package gui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	modular "github.com/GoCodeAlone/modular-gui"
)

// ProcessExitNotifier reports that the process is asked to exit. Notify
// runs hook on its own goroutine, at most once, and returns a function that
// unregisters it.
type ProcessExitNotifier interface {
	Notify(hook func()) (unregister func())
}

// SignalNotifier notifies on the given signals, SIGINT and SIGTERM when
// none are set.
type SignalNotifier struct {
	Signals []os.Signal
}

func (n SignalNotifier) Notify(hook func()) func() {
	signals := n.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			hook()
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// LifetimeOptions configures a Lifetime. Options are combined with the
// "gui" configuration section.
type LifetimeOptions struct {
	SuppressStatusMessages bool
	// ShutdownWaitTimeout overrides Config.ShutdownWaitTimeout.
	ShutdownWaitTimeout time.Duration
	// Notifier defaults to SignalNotifier{}.
	Notifier ProcessExitNotifier
}

// Lifetime is a host lifetime tied to the GUI: closing the GUI stops the
// host, and a process exit request stops the host and waits until it was
// closed.
type Lifetime struct {
	options  LifetimeOptions
	suppress atomic.Bool

	mu            sync.Mutex
	host          modular.Application
	logger        modular.Logger
	appCtx        AppContext
	waitTimeout   time.Duration
	registrations []modular.Registration
	unregister    func()
	subscription  Subscription
	stopping      bool
	closed        bool
	hookRunning   chan struct{}

	shutdownBlock chan struct{}
	closeOnce     sync.Once
}

// NewLifetime creates a GUI lifetime.
func NewLifetime(configure ...func(*LifetimeOptions)) *Lifetime {
	l := &Lifetime{shutdownBlock: make(chan struct{})}
	for _, fn := range configure {
		fn(&l.options)
	}
	if l.options.Notifier == nil {
		l.options.Notifier = SignalNotifier{}
	}
	l.suppress.Store(l.options.SuppressStatusMessages)
	return l
}

// UseLifetime installs a GUI lifetime as the host lifetime.
func UseLifetime(configure ...func(*LifetimeOptions)) modular.Option {
	return modular.WithHostLifetime(NewLifetime(configure...))
}

// SetSuppressStatusMessages toggles the status lines at runtime.
func (l *Lifetime) SetSuppressStatusMessages(suppress bool) {
	l.suppress.Store(suppress)
}

// SuppressStatusMessages reports whether status lines are suppressed.
func (l *Lifetime) SuppressStatusMessages() bool {
	return l.suppress.Load()
}

func (l *Lifetime) WaitForStart(_ context.Context, app modular.Application) error {
	var appCtx AppContext
	if err := app.GetService(ContextServiceName, &appCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrNoGUIRegistered, err)
	}

	waitTimeout := l.options.ShutdownWaitTimeout
	if provider, err := app.GetConfigSection(ModuleName); err == nil {
		if cfg, ok := provider.GetConfig().(*Config); ok {
			if cfg.SuppressStatusMessages {
				l.suppress.Store(true)
			}
			if waitTimeout <= 0 {
				waitTimeout = cfg.ShutdownWaitTimeout
			}
		}
	}
	if waitTimeout <= 0 {
		waitTimeout = app.HostOptions().ShutdownTimeout
	}
	if app.HostOptions().SuppressStatusMessages {
		l.suppress.Store(true)
	}

	// Linked before the UI thread starts, so the thread leaves the exit
	// event to the lifetime.
	appCtx.SetLifetimeLinked(true)

	lifetime := app.Lifetime()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.host = app
	l.logger = app.Logger()
	l.appCtx = appCtx
	l.waitTimeout = waitTimeout
	l.registrations = append(l.registrations,
		lifetime.OnStarted(l.onStarted),
		lifetime.OnStopping(l.onStopping),
		lifetime.OnStopped(l.onStopped),
	)
	l.unregister = l.options.Notifier.Notify(l.onProcessExit)
	return nil
}

func (l *Lifetime) Stop(context.Context) error {
	return nil
}

// Close releases a pending process exit, unregisters the process exit hook
// and the lifetime callbacks. It waits for a running process exit hook.
func (l *Lifetime) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.shutdownBlock)
		unregister := l.unregister
		l.unregister = nil
		registrations := l.registrations
		l.registrations = nil
		running := l.hookRunning
		l.mu.Unlock()

		if unregister != nil {
			unregister()
		}
		for _, r := range registrations {
			_ = r.Close()
		}
		if running != nil {
			<-running
		}
	})
	return nil
}

func (l *Lifetime) onStarted() {
	if !l.suppress.Load() {
		env := l.host.Environment()
		l.logger.Info("Application started. Close the application or press Ctrl+C to shut down.")
		l.logger.Info("Hosting environment", "environment", env.EnvironmentName)
		l.logger.Info("Content root path", "path", env.ContentRootPath)
	}
	go l.subscribeExit()
}

// subscribeExit subscribes to the GUI exit event on the UI thread once the
// application was created. A loop that was shut down before the
// subscription went through stops the host directly.
func (l *Lifetime) subscribeExit() {
	select {
	case <-l.appCtx.Created():
	case <-l.host.Lifetime().Stopping():
		return
	case <-l.shutdownBlock:
		return
	}

	app, ok := l.appCtx.App()
	if !ok {
		return
	}
	d := app.Dispatcher()
	if d == nil {
		return
	}

	err := d.Invoke(context.Background(), func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.stopping || l.closed {
			return nil
		}
		l.subscription = app.OnExit(l.onExit)
		return nil
	})
	switch {
	case errors.Is(err, ErrDispatcherClosed) && app.IsShutdown():
		l.logger.Debug("GUI loop ended before the exit event was subscribed")
		l.host.Lifetime().StopApplication()
	case errors.Is(err, ErrDispatcherClosed):
		// The thread failed before its loop ran; the host keeps running.
		l.logger.Debug("GUI thread ended without running its loop")
	case err != nil:
		l.logger.Warn("Failed to subscribe to the GUI exit event", "error", err)
	}
}

func (l *Lifetime) onExit(ExitEvent) {
	l.logger.Debug("GUI application exited, stopping host")
	l.host.Lifetime().StopApplication()
}

func (l *Lifetime) onStopping() {
	l.mu.Lock()
	l.stopping = true
	sub := l.subscription
	l.subscription = nil
	l.mu.Unlock()

	if !l.suppress.Load() {
		l.logger.Info("Application is shutting down...")
	}
	if sub == nil {
		return
	}

	app, ok := l.appCtx.App()
	if !ok || app.Dispatcher() == nil {
		sub.Unsubscribe()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.host.HostOptions().ShutdownTimeout)
	defer cancel()
	if err := app.Dispatcher().Invoke(ctx, func() error {
		sub.Unsubscribe()
		return nil
	}); err != nil {
		// The loop is gone or wedged; handlers are safe to drop from here.
		sub.Unsubscribe()
	}
}

func (l *Lifetime) onStopped() {
	if !l.suppress.Load() {
		l.logger.Info("Application stopped")
	}
}

func (l *Lifetime) onProcessExit() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	running := make(chan struct{})
	l.hookRunning = running
	host := l.host
	logger := l.logger
	wait := l.waitTimeout
	l.mu.Unlock()
	defer close(running)

	logger.Info("Process exit requested, stopping application")
	host.Lifetime().StopApplication()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-l.shutdownBlock:
	case <-timer.C:
		logger.Info("Waiting for the host to be disposed, please ensure all hosts are closed")
		<-l.shutdownBlock
	}

	host.SetExitCode(0)
}
