package modular

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// HostLifetime controls when the application starts and what triggers its
// shutdown. The application calls WaitForStart before starting modules and
// Stop after they stopped. Implementations that hold resources also
// implement io.Closer; Close is called once when the application is closed.
type HostLifetime interface {
	WaitForStart(ctx context.Context, app Application) error
	Stop(ctx context.Context) error
}

// ConsoleLifetime is the default HostLifetime. It stops the application on
// SIGINT or SIGTERM and prints status lines for the started and stopping
// phases unless HostOptions.SuppressStatusMessages is set.
type ConsoleLifetime struct {
	signals       []os.Signal
	mu            sync.Mutex
	sigCh         chan os.Signal
	done          chan struct{}
	registrations []Registration
	closeOnce     sync.Once
}

// NewConsoleLifetime creates a console lifetime listening for SIGINT and SIGTERM.
func NewConsoleLifetime() *ConsoleLifetime {
	return &ConsoleLifetime{
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		done:    make(chan struct{}),
	}
}

func (l *ConsoleLifetime) WaitForStart(_ context.Context, app Application) error {
	logger := app.Logger()
	lifetime := app.Lifetime()
	suppress := app.HostOptions().SuppressStatusMessages
	env := app.Environment()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !suppress {
		l.registrations = append(l.registrations,
			lifetime.OnStarted(func() {
				logger.Info("Application started. Press Ctrl+C to shut down.")
				logger.Info("Hosting environment", "environment", env.EnvironmentName)
				logger.Info("Content root path", "path", env.ContentRootPath)
			}),
			lifetime.OnStopping(func() {
				logger.Info("Application is shutting down...")
			}),
		)
	}

	l.sigCh = make(chan os.Signal, 1)
	signal.Notify(l.sigCh, l.signals...)
	go func(sigCh <-chan os.Signal) {
		select {
		case sig := <-sigCh:
			logger.Info("Received signal, shutting down", "signal", sig)
			lifetime.StopApplication()
		case <-l.done:
		}
	}(l.sigCh)

	return nil
}

func (l *ConsoleLifetime) Stop(context.Context) error {
	return nil
}

// Close stops listening for signals and drops the lifetime callbacks.
func (l *ConsoleLifetime) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.sigCh != nil {
			signal.Stop(l.sigCh)
		}
		close(l.done)
		for _, r := range l.registrations {
			_ = r.Close()
		}
		l.registrations = nil
	})
	return nil
}
