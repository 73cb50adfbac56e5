package gui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	modular "github.com/GoCodeAlone/modular-gui"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }

func (l *recordingLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if strings.HasPrefix(e.msg, prefix) {
			n++
		}
	}
	return n
}

func (l *recordingLogger) has(prefix string) bool {
	return l.count(prefix) > 0
}

// fakeNotifier hands the process exit hook to the test.
type fakeNotifier struct {
	mu           sync.Mutex
	hook         func()
	unregistered atomic.Bool
}

func (n *fakeNotifier) Notify(hook func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hook = hook
	return func() { n.unregistered.Store(true) }
}

// fire runs the hook like a signal would and returns a channel closed when
// the hook returned.
func (n *fakeNotifier) fire() <-chan struct{} {
	n.mu.Lock()
	hook := n.hook
	n.mu.Unlock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if hook != nil {
			hook()
		}
	}()
	return done
}

// countingApp counts Shutdown calls.
type countingApp struct {
	Headless
	shutdowns atomic.Int32
}

func (a *countingApp) Shutdown(exitCode int) error {
	a.shutdowns.Add(1)
	return a.Headless.Shutdown(exitCode)
}

// recordingComponent records its lifecycle into a shared journal.
type recordingComponent struct {
	name     string
	journal  *journal
	onUI     func() bool
	closeErr error
}

func (c *recordingComponent) InitializeComponent() error {
	c.journal.add(fmt.Sprintf("init %s ui=%t", c.name, c.onUI()))
	return nil
}

func (c *recordingComponent) Close() error {
	c.journal.add("close " + c.name)
	return c.closeErr
}

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func newHost(t *testing.T, logger modular.Logger, opts ...modular.Option) modular.Application {
	t.Helper()
	base := []modular.Option{
		modular.WithLogger(logger),
		modular.WithEnvironment(modular.HostEnvironment{EnvironmentName: "Testing", ApplicationName: "gui-test"}),
	}
	app, err := modular.NewApplication(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func startHost(t *testing.T, app modular.Application) {
	t.Helper()
	require.NoError(t, app.Init())
	require.NoError(t, app.Start())
}

func waitRunning[A Application](t *testing.T, m *Module[A]) A {
	t.Helper()
	require.Eventually(t, m.Context().IsRunning, waitFor, tick, "GUI never reached the running state")
	app, ok := m.Context().Application()
	require.True(t, ok)
	return app
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func invoke(t *testing.T, d *Dispatcher, fn func() error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, d.Invoke(ctx, fn))
}
